package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/identity-service/internal/apperr"
	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/observability"
	"github.com/sandeepkv93/identity-service/internal/repository"
	"github.com/sandeepkv93/identity-service/internal/security"
)

const TokenTypeBearer = "bearer"

type LoginResult struct {
	Account     *domain.Account
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

type AuthService struct {
	accounts repository.AccountRepository
	jwt      *security.JWTManager
}

func NewAuthService(accounts repository.AccountRepository, jwt *security.JWTManager) *AuthService {
	return &AuthService{accounts: accounts, jwt: jwt}
}

// Login exchanges a username and password for a bearer token. Unknown users
// and wrong passwords produce the same error after comparable work.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		observability.RecordAuthLogin(ctx, "missing_credentials")
		return nil, ErrMissingCredentials
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			security.EqualizeTiming(password)
			observability.RecordAuthLogin(ctx, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(fmt.Errorf("find account: %w", err))
	}

	ok, err := security.VerifyPassword(account.PasswordHash, password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		observability.RecordAuthLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if security.NeedsRehash(account.PasswordHash) {
		s.upgradeHash(ctx, account, password)
	}

	token, expiresAt, err := s.jwt.SignAccessToken(account.Username, account.ID, 0)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sign access token: %w", err))
	}
	observability.RecordAuthLogin(ctx, "success")
	return &LoginResult{Account: account, AccessToken: token, TokenType: TokenTypeBearer, ExpiresAt: expiresAt}, nil
}

// upgradeHash is best effort; a failure leaves the old hash in place.
func (s *AuthService) upgradeHash(ctx context.Context, account *domain.Account, password string) {
	hash, err := security.HashPassword(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, account.ID, hash)
	}
	if err != nil {
		observability.RecordPasswordRehash(ctx, "error")
		slog.WarnContext(ctx, "password rehash failed", "account_id", account.ID, "error", err)
		return
	}
	account.PasswordHash = hash
	observability.RecordPasswordRehash(ctx, "success")
}
