package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var errSample = Client("SAMPLE", "sample failure")

func TestIsMatchesByCodeThroughWrapping(t *testing.T) {
	copied := &Error{Kind: errSample.Kind, Code: errSample.Code, Message: errSample.Message, Cause: errors.New("db")}
	wrapped := fmt.Errorf("outer: %w", copied)
	if !errors.Is(wrapped, errSample) {
		t.Fatal("expected wrapped error to match sentinel")
	}
	if errors.Is(wrapped, Client("OTHER", "sample failure")) {
		t.Fatal("expected different code not to match")
	}
}

func TestAsFallsBackToInternal(t *testing.T) {
	got := As(errors.New("boom"))
	if got.Kind != KindInternal || got.Code != "INTERNAL" {
		t.Fatalf("unexpected fallback: %+v", got)
	}
	if got.Message != "internal server error" {
		t.Fatalf("internal message must stay opaque, got %q", got.Message)
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if As(fmt.Errorf("x: %w", errSample)).Code != "SAMPLE" {
		t.Fatal("expected sentinel to be extracted")
	}
}

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindClient:          http.StatusBadRequest,
		KindConflict:        http.StatusConflict,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindRateLimited:     http.StatusTooManyRequests,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Fatalf("kind %d: got %d want %d", kind, got, want)
		}
	}
}
