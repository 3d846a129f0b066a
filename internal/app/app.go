package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/identity-service/internal/config"
	"github.com/sandeepkv93/identity-service/internal/health"
	"github.com/sandeepkv93/identity-service/internal/observability"
	"github.com/sandeepkv93/identity-service/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner
	Codes         *service.VerificationCodeStore

	stopCleanup context.CancelFunc
	cleanupDone chan struct{}
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	codes *service.VerificationCodeStore,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Readiness:     readiness,
		Codes:         codes,
	}
}

// Start launches the expired-code sweeper and the HTTP listener. Listener
// failures other than a graceful close are sent on the returned channel.
func (a *App) Start() <-chan error {
	errCh := make(chan error, 1)
	if a.Codes != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopCleanup = cancel
		a.cleanupDone = make(chan struct{})
		interval := time.Duration(0)
		if a.Config != nil {
			interval = a.Config.VerificationCodeCleanupInterval
		}
		go func() {
			defer close(a.cleanupDone)
			a.Codes.RunCleanupLoop(ctx, interval, a.Logger)
		}()
	}
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown drains HTTP first, then flushes telemetry, then closes stores.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	httpTimeout := 10 * time.Second
	obsTimeout := 8 * time.Second
	if a.Config != nil {
		if a.Config.ShutdownHTTPDrainTimeout > 0 {
			httpTimeout = a.Config.ShutdownHTTPDrainTimeout
		}
		if a.Config.ShutdownObservabilityTimeout > 0 {
			obsTimeout = a.Config.ShutdownObservabilityTimeout
		}
	}

	if a.Server != nil {
		httpCtx, cancel := context.WithTimeout(ctx, httpTimeout)
		if err := a.Server.Shutdown(httpCtx); err != nil {
			a.Logger.Error("failed to shutdown http server", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.stopCleanup != nil {
		a.stopCleanup()
		<-a.cleanupDone
	}

	if a.Observability != nil {
		obsCtx, cancel := context.WithTimeout(ctx, obsTimeout)
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
