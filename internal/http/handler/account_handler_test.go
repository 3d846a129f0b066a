package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/http/middleware"
	"github.com/sandeepkv93/identity-service/internal/security"
	"github.com/sandeepkv93/identity-service/internal/service"
)

type stubAccountService struct {
	listFn      func() ([]domain.Account, error)
	nameTakenFn func(name string) (bool, error)
	profileFn   func(id uint) (*domain.Account, error)
	deleteFn    func(requesterID, targetID uint) error
}

func (s *stubAccountService) List(context.Context) ([]domain.Account, error) {
	if s.listFn != nil {
		return s.listFn()
	}
	return nil, errors.New("not implemented")
}

func (s *stubAccountService) NameTaken(_ context.Context, name string) (bool, error) {
	if s.nameTakenFn != nil {
		return s.nameTakenFn(name)
	}
	return false, errors.New("not implemented")
}

func (s *stubAccountService) Profile(_ context.Context, id uint) (*domain.Account, error) {
	if s.profileFn != nil {
		return s.profileFn(id)
	}
	return nil, errors.New("not implemented")
}

func (s *stubAccountService) Delete(_ context.Context, requesterID, targetID uint) error {
	if s.deleteFn != nil {
		return s.deleteFn(requesterID, targetID)
	}
	return errors.New("not implemented")
}

func withClaims(r *http.Request, username string, id uint) *http.Request {
	claims := &security.Claims{UserID: id, RegisteredClaims: jwt.RegisteredClaims{Subject: username}}
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsContextKey, claims))
}

func serveAccountRoute(h *AccountHandler, method, pattern, target string, decorate func(*http.Request) *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	switch method {
	case http.MethodGet:
		switch pattern {
		case "/users":
			r.Get(pattern, h.List)
		case "/name_taken/{name}":
			r.Get(pattern, h.NameTaken)
		case "/me":
			r.Get(pattern, h.Me)
		case "/profile":
			r.Get(pattern, h.Profile)
		}
	case http.MethodDelete:
		r.Delete(pattern, h.Delete)
	}
	req := httptest.NewRequest(method, target, nil)
	if decorate != nil {
		req = decorate(req)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAccountHandlerListOmitsPrivateFields(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{listFn: func() ([]domain.Account, error) {
		return []domain.Account{{ID: 1, Username: "alice", Email: "a@example.com", PasswordHash: "secret-hash"}}, nil
	}})
	rr := serveAccountRoute(h, http.MethodGet, "/users", "/users", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var env []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env) != 1 || len(env[0]) != 2 || env[0]["username"] != "alice" {
		t.Fatalf("expected only id and username, got %+v", env)
	}
}

func TestAccountHandlerNameTakenUnescapesPath(t *testing.T) {
	var seen string
	h := NewAccountHandler(&stubAccountService{nameTakenFn: func(name string) (bool, error) {
		seen = name
		return name == "a b@example.com", nil
	}})
	rr := serveAccountRoute(h, http.MethodGet, "/name_taken/{name}", "/name_taken/a%20b@example.com", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if seen != "a b@example.com" {
		t.Fatalf("expected unescaped name, got %q", seen)
	}
	var env nameTakenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Taken {
		t.Fatal("expected taken=true")
	}
}

func TestAccountHandlerNameTakenKeepsLiteralPercent(t *testing.T) {
	for _, tc := range []struct {
		target string
		want   string
	}{
		{"/name_taken/100%25", "100%"},
		{"/name_taken/50%25off", "50%off"},
		{"/name_taken/carol%40example.com", "carol@example.com"},
		{"/name_taken/%2Fslash", "/slash"},
	} {
		var seen string
		h := NewAccountHandler(&stubAccountService{nameTakenFn: func(name string) (bool, error) {
			seen = name
			return false, nil
		}})
		rr := serveAccountRoute(h, http.MethodGet, "/name_taken/{name}", tc.target, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", tc.target, rr.Code, rr.Body.String())
		}
		if seen != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.target, tc.want, seen)
		}
	}
}

func TestAccountHandlerMeAndProfile(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := NewAccountHandler(&stubAccountService{profileFn: func(id uint) (*domain.Account, error) {
		if id != 7 {
			return nil, service.ErrAccountNotFound
		}
		return &domain.Account{ID: 7, Username: "alice", Email: "a@example.com", CreatedAt: created, UpdatedAt: created}, nil
	}})

	rr := serveAccountRoute(h, http.MethodGet, "/me", "/me", func(r *http.Request) *http.Request { return withClaims(r, "alice", 7) })
	var me meResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if rr.Code != http.StatusOK || me.Username != "alice" || me.ID != 7 {
		t.Fatalf("unexpected /me response %d %+v", rr.Code, me)
	}

	rr = serveAccountRoute(h, http.MethodGet, "/me", "/me", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", rr.Code)
	}

	rr = serveAccountRoute(h, http.MethodGet, "/profile", "/profile", func(r *http.Request) *http.Request { return withClaims(r, "alice", 7) })
	var profile profileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if rr.Code != http.StatusOK || profile.Email != "a@example.com" || !profile.CreatedAt.Equal(created) {
		t.Fatalf("unexpected profile %d %+v", rr.Code, profile)
	}

	rr = serveAccountRoute(h, http.MethodGet, "/profile", "/profile", func(r *http.Request) *http.Request { return withClaims(r, "ghost", 8) })
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted account, got %d", rr.Code)
	}
}

func TestAccountHandlerDeleteMatrix(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{deleteFn: func(requesterID, targetID uint) error {
		if requesterID != targetID {
			return service.ErrNotAccountOwner
		}
		return nil
	}})
	asAlice := func(r *http.Request) *http.Request { return withClaims(r, "alice", 7) }

	cases := []struct {
		name   string
		target string
		want   int
	}{
		{"own account", "/users/7", http.StatusOK},
		{"foreign account", "/users/8", http.StatusForbidden},
		{"non numeric id", "/users/abc", http.StatusBadRequest},
		{"zero id", "/users/0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serveAccountRoute(h, http.MethodDelete, "/users/{id}", tc.target, asAlice)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rr.Code, rr.Body.String())
			}
			if tc.want == http.StatusOK {
				var env detailResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if env.Detail != "User 7 deleted" {
					t.Fatalf("unexpected detail %q", env.Detail)
				}
			}
		})
	}
}
