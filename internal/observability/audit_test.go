package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestBuildAuditEventIncludesRequiredFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("X-Request-Id", "req-test-1")
	req.RemoteAddr = "127.0.0.1:12345"

	ev := BuildAuditEvent(req, AuditInput{
		EventName:   "auth.login",
		ActorUserID: "42",
		TargetType:  "account",
		TargetID:    "42",
		Action:      "login",
		Outcome:     "success",
		Reason:      "credentials_valid",
	})

	if ev.EventVersion != 1 {
		t.Fatalf("expected event version 1, got %d", ev.EventVersion)
	}
	if ev.ActorIP != "127.0.0.1" {
		t.Fatalf("expected actor ip without port, got %q", ev.ActorIP)
	}
	if ev.RequestID != "req-test-1" {
		t.Fatalf("unexpected request id: %s", ev.RequestID)
	}
	if _, err := time.Parse(time.RFC3339, ev.TS); err != nil {
		t.Fatalf("expected RFC3339 ts, got %q err=%v", ev.TS, err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestBuildAuditEventFillsUnknowns(t *testing.T) {
	req := httptest.NewRequest("POST", "/register", nil)
	ev := BuildAuditEvent(req, AuditInput{EventName: "auth.register", Action: "register", Outcome: "rejected"})
	if ev.ActorUserID != "unknown" || ev.TargetID != "unknown" || ev.RequestID != "unknown" || ev.Reason != "unknown" {
		t.Fatalf("expected unknown placeholders, got %+v", ev)
	}
}

func TestBuildAuditEventUsesGeneratedRequestID(t *testing.T) {
	var ev AuditEvent
	var generated string
	h := chimiddleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		generated = chimiddleware.GetReqID(r.Context())
		ev = BuildAuditEvent(r, AuditInput{EventName: "auth.login", Action: "login", Outcome: "success"})
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil))

	if generated == "" {
		t.Fatal("expected the middleware to generate a request id")
	}
	if ev.RequestID != generated {
		t.Fatalf("expected audit request id %q, got %q", generated, ev.RequestID)
	}
}

func TestAuditEventValidateRejectsMissingEventName(t *testing.T) {
	ev := AuditEvent{
		EventVersion: 1,
		ActorUserID:  "42",
		ActorIP:      "127.0.0.1",
		TargetType:   "account",
		TargetID:     "42",
		Action:       "login",
		Outcome:      "success",
		Reason:       "ok",
		RequestID:    "req-1",
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
	if err := ev.Validate(); err == nil {
		t.Fatal("expected validation error for missing event_name")
	}
}
