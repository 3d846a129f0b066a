package service

import (
	"context"

	"github.com/sandeepkv93/identity-service/internal/domain"
)

type RegistrationServiceInterface interface {
	RequestRegistrationCode(ctx context.Context, email string) error
	Register(ctx context.Context, in RegisterInput) (*domain.Account, error)
	RequestPasswordResetCode(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
}

type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

type AccountServiceInterface interface {
	List(ctx context.Context) ([]domain.Account, error)
	NameTaken(ctx context.Context, name string) (bool, error)
	Profile(ctx context.Context, id uint) (*domain.Account, error)
	Delete(ctx context.Context, requesterID, targetID uint) error
}
