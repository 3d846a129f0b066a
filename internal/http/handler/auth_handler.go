package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sandeepkv93/identity-service/internal/apperr"
	"github.com/sandeepkv93/identity-service/internal/http/response"
	"github.com/sandeepkv93/identity-service/internal/observability"
	"github.com/sandeepkv93/identity-service/internal/service"
)

var errTooManyAttempts = apperr.New(apperr.KindRateLimited, "RATE_LIMITED", "too many attempts, try again later")

type AuthHandler struct {
	registration service.RegistrationServiceInterface
	authSvc      service.AuthServiceInterface
	abuse        service.AuthAbuseGuard
}

func NewAuthHandler(registration service.RegistrationServiceInterface, authSvc service.AuthServiceInterface, abuse service.AuthAbuseGuard) *AuthHandler {
	if abuse == nil {
		abuse = service.NewNoopAuthAbuseGuard()
	}
	return &AuthHandler{registration: registration, authSvc: authSvc, abuse: abuse}
}

type emailRequest struct {
	Email string `json:"email"`
}

type registerRequest struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
	Captcha string `json:"captcha"`
	Code    string `json:"code"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (h *AuthHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	h.timed("send_verification", func(w http.ResponseWriter, r *http.Request) error {
		var req emailRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		if err := h.throttleCodeRequest(w, r, req.Email); err != nil {
			return err
		}
		if err := h.registration.RequestRegistrationCode(r.Context(), req.Email); err != nil {
			h.audit(r, "auth.verification.request", "", "send_verification", err)
			return err
		}
		h.audit(r, "auth.verification.request", "", "send_verification", nil)
		response.JSON(w, r, http.StatusOK, messageResponse{Message: "Verification code sent to email"})
		return nil
	})(w, r)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.timed("register", func(w http.ResponseWriter, r *http.Request) error {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		account, err := h.registration.Register(r.Context(), service.RegisterInput{
			Username: req.User.Username,
			Email:    req.User.Email,
			Password: req.User.Password,
			Captcha:  req.Captcha,
			Code:     req.Code,
		})
		if err != nil {
			h.audit(r, "auth.register", "", "register", err)
			return err
		}
		h.audit(r, "auth.register", strconv.FormatUint(uint64(account.ID), 10), "register", nil)
		response.JSON(w, r, http.StatusCreated, messageResponse{Message: "User registered successfully"})
		return nil
	})(w, r)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.timed("login", func(w http.ResponseWriter, r *http.Request) error {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		ip := clientIP(r)
		if retry := h.guardCheck(r, service.AuthAbuseScopeLogin, req.Username, ip); retry > 0 {
			setRetryAfter(w, retry)
			h.audit(r, "auth.login", "", "login", errTooManyAttempts)
			return errTooManyAttempts
		}
		result, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				h.guardFailure(r, service.AuthAbuseScopeLogin, req.Username, ip)
			}
			h.audit(r, "auth.login", "", "login", err)
			return err
		}
		h.guardReset(r, service.AuthAbuseScopeLogin, req.Username, ip)
		h.audit(r, "auth.login", strconv.FormatUint(uint64(result.Account.ID), 10), "login", nil)
		response.JSON(w, r, http.StatusOK, loginResponse{
			AccessToken: result.AccessToken,
			TokenType:   result.TokenType,
			ExpiresAt:   result.ExpiresAt,
		})
		return nil
	})(w, r)
}

// SendResetCode answers 202 whether or not the email belongs to an account.
func (h *AuthHandler) SendResetCode(w http.ResponseWriter, r *http.Request) {
	h.timed("send_reset_code", func(w http.ResponseWriter, r *http.Request) error {
		var req emailRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		if err := h.throttleCodeRequest(w, r, req.Email); err != nil {
			return err
		}
		if err := h.registration.RequestPasswordResetCode(r.Context(), req.Email); err != nil {
			h.audit(r, "auth.password_reset.request", "", "send_reset_code", err)
			return err
		}
		h.audit(r, "auth.password_reset.request", "", "send_reset_code", nil)
		response.JSON(w, r, http.StatusAccepted, messageResponse{Message: "If the email is registered, a reset code has been sent"})
		return nil
	})(w, r)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	h.timed("reset_password", func(w http.ResponseWriter, r *http.Request) error {
		var req resetPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		if err := h.registration.ResetPassword(r.Context(), service.ResetPasswordInput{
			Email:    req.Email,
			Password: req.Password,
			Code:     req.Code,
		}); err != nil {
			h.audit(r, "auth.password_reset", "", "reset_password", err)
			return err
		}
		h.audit(r, "auth.password_reset", "", "reset_password", nil)
		response.JSON(w, r, http.StatusOK, detailResponse{Detail: "Password reset successful"})
		return nil
	})(w, r)
}

// throttleCodeRequest counts every mail request, so one address or client
// cannot trigger unbounded sends.
func (h *AuthHandler) throttleCodeRequest(w http.ResponseWriter, r *http.Request, email string) error {
	ip := clientIP(r)
	if retry := h.guardCheck(r, service.AuthAbuseScopeCodeRequest, email, ip); retry > 0 {
		setRetryAfter(w, retry)
		return errTooManyAttempts
	}
	h.guardFailure(r, service.AuthAbuseScopeCodeRequest, email, ip)
	return nil
}

// Guard backend errors never block a request; the route rate limiter still applies.
func (h *AuthHandler) guardCheck(r *http.Request, scope service.AuthAbuseScope, identity, ip string) time.Duration {
	retry, err := h.abuse.Check(r.Context(), scope, identity, ip)
	if err != nil {
		observability.RecordAuthAbuseEvent(r.Context(), string(scope), "backend_error")
		slog.WarnContext(r.Context(), "auth abuse guard check failed", "scope", string(scope), "error", err)
		return 0
	}
	if retry > 0 {
		observability.RecordAuthAbuseEvent(r.Context(), string(scope), "cooldown")
		return retry
	}
	observability.RecordAuthAbuseEvent(r.Context(), string(scope), "allowed")
	return 0
}

func (h *AuthHandler) guardFailure(r *http.Request, scope service.AuthAbuseScope, identity, ip string) {
	if _, err := h.abuse.RegisterFailure(r.Context(), scope, identity, ip); err != nil {
		observability.RecordAuthAbuseEvent(r.Context(), string(scope), "backend_error")
		slog.WarnContext(r.Context(), "auth abuse guard update failed", "scope", string(scope), "error", err)
		return
	}
	observability.RecordAuthAbuseEvent(r.Context(), string(scope), "failure_recorded")
}

func (h *AuthHandler) guardReset(r *http.Request, scope service.AuthAbuseScope, identity, ip string) {
	if err := h.abuse.Reset(r.Context(), scope, identity, ip); err != nil {
		observability.RecordAuthAbuseEvent(r.Context(), string(scope), "backend_error")
		slog.WarnContext(r.Context(), "auth abuse guard reset failed", "scope", string(scope), "error", err)
		return
	}
	observability.RecordAuthAbuseEvent(r.Context(), string(scope), "reset")
}

func (h *AuthHandler) timed(endpoint string, fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := "success"
		handle(func(w http.ResponseWriter, r *http.Request) error {
			err := fn(w, r)
			if err != nil {
				status = "failure"
			}
			return err
		})(w, r)
		observability.RecordAuthRequestDuration(r.Context(), endpoint, status, time.Since(start))
	}
}

func (h *AuthHandler) audit(r *http.Request, event, actorID, action string, err error) {
	in := observability.AuditInput{
		EventName:   event,
		ActorUserID: actorID,
		TargetType:  "account",
		TargetID:    actorID,
		Action:      action,
		Outcome:     "success",
	}
	if err != nil {
		in.Outcome = "failure"
		in.Reason = apperr.As(err).Code
	}
	observability.Audit(r, in)
}
