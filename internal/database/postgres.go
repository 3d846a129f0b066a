package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/identity-service/internal/config"
	"github.com/sandeepkv93/identity-service/internal/observability"
)

// Open connects to Postgres and verifies the connection. Unique violations
// surface as gorm.ErrDuplicatedKey.
func Open(cfg *config.Config) (*gorm.DB, error) {
	ctx := context.Background()
	start := time.Now()
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	observability.RecordDatabaseStartupDuration(ctx, "connect", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("open database: %w", err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "connect", "success")

	if err := configurePool(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func configurePool(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	err = sqlDB.PingContext(pingCtx)
	observability.RecordDatabaseStartupDuration(ctx, "ping", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "ping", "error")
		_ = sqlDB.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "ping", "success")
	return nil
}
