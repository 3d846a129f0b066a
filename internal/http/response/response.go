package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/identity-service/internal/apperr"
)

// ErrorBody is the shape of every non-2xx response. Detail carries the
// human-readable message clients display; Code is stable for programs.
type ErrorBody struct {
	Detail  string `json:"detail"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data as the top-level response body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, data)
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, r, status, ErrorBody{Detail: message, Code: code, Details: details})
}

// FromError writes err using its apperr kind. Errors outside the taxonomy
// become an opaque 500; the cause is logged, never returned.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.As(err)
	status := appErr.Kind.HTTPStatus()
	if appErr.Kind == apperr.KindInternal {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
		Error(w, r, status, "INTERNAL", "internal server error", nil)
		return
	}
	Error(w, r, status, appErr.Code, appErr.Message, nil)
}

func write(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.WarnContext(r.Context(), "write response failed", "error", err)
	}
}
