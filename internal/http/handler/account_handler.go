package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/identity-service/internal/apperr"
	"github.com/sandeepkv93/identity-service/internal/http/middleware"
	"github.com/sandeepkv93/identity-service/internal/http/response"
	"github.com/sandeepkv93/identity-service/internal/observability"
	"github.com/sandeepkv93/identity-service/internal/service"
)

var errMissingAuthContext = apperr.New(apperr.KindUnauthenticated, "UNAUTHORIZED", "could not validate credentials")

type AccountHandler struct {
	accounts service.AccountServiceInterface
}

func NewAccountHandler(accounts service.AccountServiceInterface) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type accountSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type nameTakenResponse struct {
	Taken bool `json:"taken"`
}

type meResponse struct {
	Username string `json:"username"`
	ID       uint   `json:"id"`
}

type profileResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	handle(func(w http.ResponseWriter, r *http.Request) error {
		accounts, err := h.accounts.List(r.Context())
		if err != nil {
			return err
		}
		out := make([]accountSummary, 0, len(accounts))
		for _, a := range accounts {
			out = append(out, accountSummary{ID: a.ID, Username: a.Username})
		}
		response.JSON(w, r, http.StatusOK, out)
		return nil
	})(w, r)
}

func (h *AccountHandler) NameTaken(w http.ResponseWriter, r *http.Request) {
	handle(func(w http.ResponseWriter, r *http.Request) error {
		name := chi.URLParam(r, "name")
		// chi matches on RawPath when the request carried escapes it had to keep.
		if r.URL.RawPath != "" {
			if unescaped, err := url.PathUnescape(name); err == nil {
				name = unescaped
			}
		}
		taken, err := h.accounts.NameTaken(r.Context(), name)
		if err != nil {
			return err
		}
		response.JSON(w, r, http.StatusOK, nameTakenResponse{Taken: taken})
		return nil
	})(w, r)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	handle(func(w http.ResponseWriter, r *http.Request) error {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			return errMissingAuthContext
		}
		response.JSON(w, r, http.StatusOK, meResponse{Username: claims.Subject, ID: claims.UserID})
		return nil
	})(w, r)
}

func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	handle(func(w http.ResponseWriter, r *http.Request) error {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			return errMissingAuthContext
		}
		account, err := h.accounts.Profile(r.Context(), claims.UserID)
		if err != nil {
			return err
		}
		response.JSON(w, r, http.StatusOK, profileResponse{
			ID:        account.ID,
			Username:  account.Username,
			Email:     account.Email,
			CreatedAt: account.CreatedAt,
			UpdatedAt: account.UpdatedAt,
		})
		return nil
	})(w, r)
}

// Delete removes the caller's own account. Any other id is forbidden.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	handle(func(w http.ResponseWriter, r *http.Request) error {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			return errMissingAuthContext
		}
		rawID := chi.URLParam(r, "id")
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil || id == 0 {
			return service.ErrInvalidAccountInput
		}
		actor := strconv.FormatUint(uint64(claims.UserID), 10)
		audit := observability.AuditInput{
			EventName:   "account.delete",
			ActorUserID: actor,
			TargetType:  "account",
			TargetID:    rawID,
			Action:      "delete",
			Outcome:     "success",
		}
		if err := h.accounts.Delete(r.Context(), claims.UserID, uint(id)); err != nil {
			audit.Outcome = "failure"
			audit.Reason = apperr.As(err).Code
			observability.Audit(r, audit)
			return err
		}
		observability.Audit(r, audit)
		response.JSON(w, r, http.StatusOK, detailResponse{Detail: fmt.Sprintf("User %d deleted", id)})
		return nil
	})(w, r)
}
