package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/observability"
	"github.com/sandeepkv93/identity-service/internal/repository"
)

const (
	DefaultVerificationCodeTTL = 3 * time.Minute
	codeFloor                  = 100000
	codeSpan                   = 900000
)

// VerificationCodeStore issues and checks six-digit codes. Checking never
// deletes; callers consume a code through a repository.CodeClaim together
// with the write it authorizes.
type VerificationCodeStore struct {
	repo     repository.VerificationCodeRepository
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

func NewVerificationCodeStore(repo repository.VerificationCodeRepository, ttl time.Duration) *VerificationCodeStore {
	if ttl <= 0 {
		ttl = DefaultVerificationCodeTTL
	}
	return &VerificationCodeStore{
		repo:     repo,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		generate: GenerateCode,
	}
}

func (s *VerificationCodeStore) TTL() time.Duration { return s.ttl }

// Issue stores a fresh code for key, replacing any previous one.
func (s *VerificationCodeStore) Issue(ctx context.Context, purpose domain.CodePurpose, key string) (string, time.Time, error) {
	key = NormalizeEmail(key)
	code, err := s.generate()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate verification code: %w", err)
	}
	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.Upsert(ctx, &domain.VerificationCode{
		Key:       key,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: expiresAt,
	}); err != nil {
		observability.RecordVerificationCodeEvent(ctx, string(purpose), "issue_error")
		return "", time.Time{}, fmt.Errorf("store verification code: %w", err)
	}
	observability.RecordVerificationCodeEvent(ctx, string(purpose), "issued")
	return code, expiresAt, nil
}

// Check reports whether code matches the live code stored for key. It can be
// called any number of times while the code is live.
func (s *VerificationCodeStore) Check(ctx context.Context, purpose domain.CodePurpose, key, code string) (bool, error) {
	key = NormalizeEmail(key)
	if key == "" || code == "" {
		observability.RecordVerificationCodeEvent(ctx, string(purpose), "rejected")
		return false, nil
	}
	stored, err := s.repo.Find(ctx, key, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			observability.RecordVerificationCodeEvent(ctx, string(purpose), "missing")
			return false, nil
		}
		return false, fmt.Errorf("load verification code: %w", err)
	}
	if stored.Expired(s.now()) {
		observability.RecordVerificationCodeEvent(ctx, string(purpose), "expired")
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) != 1 {
		observability.RecordVerificationCodeEvent(ctx, string(purpose), "mismatch")
		return false, nil
	}
	observability.RecordVerificationCodeEvent(ctx, string(purpose), "valid")
	return true, nil
}

func (s *VerificationCodeStore) Delete(ctx context.Context, purpose domain.CodePurpose, key string) error {
	return s.repo.Delete(ctx, NormalizeEmail(key), purpose)
}

// Claim builds the consumption predicate for a code checked at this instant.
func (s *VerificationCodeStore) Claim(purpose domain.CodePurpose, key, code string) repository.CodeClaim {
	return repository.CodeClaim{Key: NormalizeEmail(key), Purpose: purpose, Code: code, Now: s.now()}
}

func (s *VerificationCodeStore) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		observability.RecordVerificationCodeCleanup(ctx, "error", 0)
		return deleted, err
	}
	observability.RecordVerificationCodeCleanup(ctx, "success", deleted)
	return deleted, nil
}

func (s *VerificationCodeStore) RunCleanupLoop(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.CleanupExpired(ctx)
			if err != nil {
				if logger != nil {
					logger.Warn("verification code cleanup failed", "error", err)
				}
				continue
			}
			if deleted > 0 && logger != nil {
				logger.Info("verification code cleanup removed expired codes", "deleted", deleted)
			}
		}
	}
}

// GenerateCode returns a uniformly random code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeFloor), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
