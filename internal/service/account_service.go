package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/identity-service/internal/apperr"
	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/observability"
	"github.com/sandeepkv93/identity-service/internal/repository"
)

type AccountService struct {
	accounts repository.AccountRepository
}

func NewAccountService(accounts repository.AccountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

// NameTaken reports whether name is in use as a username or an email.
func (s *AccountService) NameTaken(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	taken, err := s.accounts.NameTaken(ctx, name)
	if err != nil {
		return false, apperr.Internal(fmt.Errorf("check name: %w", err))
	}
	return taken, nil
}

func (s *AccountService) Profile(ctx context.Context, id uint) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordAccountEvent(ctx, "profile", "not_found")
			return nil, ErrAccountNotFound
		}
		return nil, apperr.Internal(fmt.Errorf("load profile: %w", err))
	}
	observability.RecordAccountEvent(ctx, "profile", "success")
	return account, nil
}

// Delete removes targetID when the requester owns it.
func (s *AccountService) Delete(ctx context.Context, requesterID, targetID uint) error {
	if targetID == 0 {
		return ErrInvalidAccountInput
	}
	if requesterID != targetID {
		observability.RecordAccountEvent(ctx, "delete", "forbidden")
		return ErrNotAccountOwner
	}
	if err := s.accounts.DeleteByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordAccountEvent(ctx, "delete", "not_found")
			return ErrAccountNotFound
		}
		return apperr.Internal(fmt.Errorf("delete account: %w", err))
	}
	observability.RecordAccountEvent(ctx, "delete", "success")
	return nil
}
