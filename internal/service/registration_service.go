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
	"github.com/sandeepkv93/identity-service/internal/security"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Captcha  string
	Code     string
}

type ResetPasswordInput struct {
	Email    string
	Password string
	Code     string
}

type RegistrationService struct {
	accounts repository.AccountRepository
	codes    *VerificationCodeStore
	captcha  *CaptchaGate
	mailer   VerificationMailer
}

func NewRegistrationService(
	accounts repository.AccountRepository,
	codes *VerificationCodeStore,
	captcha *CaptchaGate,
	mailer VerificationMailer,
) *RegistrationService {
	return &RegistrationService{accounts: accounts, codes: codes, captcha: captcha, mailer: mailer}
}

// RequestRegistrationCode mails a sign-up code to an email that is not yet
// in use. Any earlier code for the same email stops working.
func (s *RegistrationService) RequestRegistrationCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		observability.RecordRegistrationEvent(ctx, "send_code", "invalid_email")
		return err
	}
	taken, err := s.accounts.EmailTaken(ctx, email)
	if err != nil {
		return apperr.Internal(fmt.Errorf("check email: %w", err))
	}
	if taken {
		observability.RecordRegistrationEvent(ctx, "send_code", "email_taken")
		return ErrEmailTaken
	}
	if err := s.issueAndSend(ctx, domain.CodePurposeRegister, email); err != nil {
		observability.RecordRegistrationEvent(ctx, "send_code", "error")
		return err
	}
	observability.RecordRegistrationEvent(ctx, "send_code", "success")
	return nil
}

// Register creates an account once the captcha, the name and the emailed
// code all check out. The code is consumed in the same transaction as the
// insert, so a code authorizes at most one account.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		observability.RecordRegistrationEvent(ctx, "register", "missing_fields")
		return nil, ErrMissingFields
	}
	if err := validateEmail(email); err != nil {
		observability.RecordRegistrationEvent(ctx, "register", "invalid_email")
		return nil, err
	}

	human, err := s.captcha.Check(ctx, in.Captcha)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("verify captcha: %w", err))
	}
	if !human {
		observability.RecordRegistrationEvent(ctx, "register", "invalid_captcha")
		return nil, ErrInvalidCaptcha
	}

	taken, err := s.accounts.NameTaken(ctx, username)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check username: %w", err))
	}
	if taken {
		observability.RecordRegistrationEvent(ctx, "register", "username_taken")
		return nil, ErrUsernameTaken
	}

	valid, err := s.codes.Check(ctx, domain.CodePurposeRegister, email, in.Code)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !valid {
		observability.RecordRegistrationEvent(ctx, "register", "invalid_code")
		return nil, ErrInvalidCode
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	account := &domain.Account{Username: username, Email: email, PasswordHash: hash}
	err = s.accounts.CreateConsumingCode(ctx, account, s.codes.Claim(domain.CodePurposeRegister, email, in.Code))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrVerificationCodeNotFound):
		observability.RecordRegistrationEvent(ctx, "register", "invalid_code")
		return nil, ErrInvalidCode
	case errors.Is(err, repository.ErrUsernameTaken):
		observability.RecordRegistrationEvent(ctx, "register", "username_taken")
		return nil, ErrUsernameTaken
	case errors.Is(err, repository.ErrEmailTaken):
		observability.RecordRegistrationEvent(ctx, "register", "email_taken")
		return nil, ErrEmailTaken
	default:
		return nil, apperr.Internal(fmt.Errorf("create account: %w", err))
	}
	observability.RecordRegistrationEvent(ctx, "register", "success")
	return account, nil
}

// RequestPasswordResetCode mails a reset code when the email belongs to an
// account. Unknown emails get the same nil result.
func (s *RegistrationService) RequestPasswordResetCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		observability.RecordRegistrationEvent(ctx, "send_reset_code", "invalid_email")
		return err
	}
	if _, err := s.accounts.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordRegistrationEvent(ctx, "send_reset_code", "unknown_email")
			return nil
		}
		return apperr.Internal(fmt.Errorf("find account: %w", err))
	}
	if err := s.issueAndSend(ctx, domain.CodePurposePasswordReset, email); err != nil {
		observability.RecordRegistrationEvent(ctx, "send_reset_code", "error")
		return err
	}
	observability.RecordRegistrationEvent(ctx, "send_reset_code", "success")
	return nil
}

func (s *RegistrationService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" || in.Code == "" {
		observability.RecordRegistrationEvent(ctx, "reset_password", "missing_fields")
		return ErrResetFieldsMissing
	}

	valid, err := s.codes.Check(ctx, domain.CodePurposePasswordReset, email, in.Code)
	if err != nil {
		return apperr.Internal(err)
	}
	if !valid {
		observability.RecordRegistrationEvent(ctx, "reset_password", "invalid_code")
		return ErrInvalidCode
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	err = s.accounts.UpdatePasswordConsumingCode(ctx, email, hash, s.codes.Claim(domain.CodePurposePasswordReset, email, in.Code))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrVerificationCodeNotFound), errors.Is(err, repository.ErrAccountNotFound):
		observability.RecordRegistrationEvent(ctx, "reset_password", "invalid_code")
		return ErrInvalidCode
	default:
		return apperr.Internal(fmt.Errorf("update password: %w", err))
	}
	observability.RecordRegistrationEvent(ctx, "reset_password", "success")
	return nil
}

func (s *RegistrationService) issueAndSend(ctx context.Context, purpose domain.CodePurpose, email string) error {
	code, expiresAt, err := s.codes.Issue(ctx, purpose, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.mailer.SendVerificationCode(ctx, VerificationMessage{
		To:        email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
		TTL:       s.codes.TTL(),
	}); err != nil {
		return apperr.Internal(fmt.Errorf("send verification code: %w", err))
	}
	return nil
}
