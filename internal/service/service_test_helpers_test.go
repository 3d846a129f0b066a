package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/repository"
)

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Account{}, &domain.VerificationCode{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type registrationFixture struct {
	svc      *RegistrationService
	accounts repository.AccountRepository
	codes    *VerificationCodeStore
	verifier *MockCaptchaVerifier
	mailer   *MockVerificationMailer
	clock    *testClock
	sent     []VerificationMessage
}

func newRegistrationFixture(t *testing.T, bypass bool) *registrationFixture {
	t.Helper()
	db := newServiceDBForTest(t)
	ctrl := gomock.NewController(t)

	fx := &registrationFixture{
		accounts: repository.NewAccountRepository(db),
		verifier: NewMockCaptchaVerifier(ctrl),
		mailer:   NewMockVerificationMailer(ctrl),
		clock:    &testClock{now: time.Now().UTC()},
	}
	fx.codes = NewVerificationCodeStore(repository.NewVerificationCodeRepository(db), 3*time.Minute)
	fx.codes.now = fx.clock.Now
	fx.svc = NewRegistrationService(fx.accounts, fx.codes, NewCaptchaGate(fx.verifier, true, bypass), fx.mailer)
	return fx
}

// captureMail records every message the service sends.
func (fx *registrationFixture) captureMail() {
	fx.mailer.EXPECT().SendVerificationCode(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, msg VerificationMessage) error {
			fx.sent = append(fx.sent, msg)
			return nil
		})
}

func (fx *registrationFixture) lastCode(t *testing.T) string {
	t.Helper()
	if len(fx.sent) == 0 {
		t.Fatal("expected a verification message to be sent")
	}
	return fx.sent[len(fx.sent)-1].Code
}
