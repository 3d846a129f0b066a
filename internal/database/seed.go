package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/security"
)

var ErrSeedAccountExists = errors.New("seed account already exists")

type SeedAccountInput struct {
	Username string
	Email    string
	Password string
}

// SeedAccount creates a ready-to-use account without the verification
// flow. It is meant for local environments only.
func SeedAccount(ctx context.Context, db *gorm.DB, in SeedAccountInput) (*domain.Account, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("username, email and password are required")
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &domain.Account{Username: username, Email: email, PasswordHash: hash}
	if err := db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSeedAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}
