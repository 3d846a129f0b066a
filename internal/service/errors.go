package service

import "github.com/sandeepkv93/identity-service/internal/apperr"

var (
	ErrEmailRequired       = apperr.Client("EMAIL_REQUIRED", "email is required")
	ErrInvalidEmail        = apperr.Client("INVALID_EMAIL", "invalid email address")
	ErrMissingFields       = apperr.Client("VALIDATION_ERROR", "username, email and password are required")
	ErrResetFieldsMissing  = apperr.Client("VALIDATION_ERROR", "email, password and verification code are required")
	ErrMissingCredentials  = apperr.Client("VALIDATION_ERROR", "username and password are required")
	ErrEmailTaken          = apperr.New(apperr.KindConflict, "EMAIL_TAKEN", "email already registered")
	ErrUsernameTaken       = apperr.New(apperr.KindConflict, "USERNAME_TAKEN", "username already taken")
	ErrInvalidCaptcha      = apperr.Client("INVALID_CAPTCHA", "captcha verification failed")
	ErrInvalidCode         = apperr.Client("INVALID_VERIFICATION_CODE", "invalid or expired verification code")
	ErrInvalidCredentials  = apperr.Client("INVALID_CREDENTIALS", "invalid username or password")
	ErrNotAccountOwner     = apperr.New(apperr.KindForbidden, "FORBIDDEN", "not authorized to modify this account")
	ErrAccountNotFound     = apperr.New(apperr.KindNotFound, "NOT_FOUND", "account not found")
	ErrInvalidAccountInput = apperr.Client("BAD_REQUEST", "invalid account id")
)
