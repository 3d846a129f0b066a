package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/repository"
)

func newCodeStoreForTest(t *testing.T) (*VerificationCodeStore, *testClock) {
	t.Helper()
	db := newServiceDBForTest(t)
	clock := &testClock{now: time.Now().UTC()}
	store := NewVerificationCodeStore(repository.NewVerificationCodeRepository(db), 3*time.Minute)
	store.now = clock.Now
	return store, clock
}

func TestVerificationCodeStoreIssueAndCheck(t *testing.T) {
	store, clock := newCodeStoreForTest(t)
	ctx := context.Background()

	code, expiresAt, err := store.Issue(ctx, domain.CodePurposeRegister, " Alice@Example.com ")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(clock.now.Add(3 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	// Checking is repeatable and does not consume the code.
	for i := 0; i < 3; i++ {
		ok, err := store.Check(ctx, domain.CodePurposeRegister, "alice@example.com", code)
		if err != nil || !ok {
			t.Fatalf("check #%d: ok=%v err=%v", i, ok, err)
		}
	}

	if ok, _ := store.Check(ctx, domain.CodePurposeRegister, "alice@example.com", "000000"); ok && code != "000000" {
		t.Fatal("wrong code must not match")
	}
	if ok, _ := store.Check(ctx, domain.CodePurposePasswordReset, "alice@example.com", code); ok {
		t.Fatal("code issued for registration must not match a reset check")
	}
	if ok, _ := store.Check(ctx, domain.CodePurposeRegister, "alice@example.com", ""); ok {
		t.Fatal("empty code must not match")
	}

	clock.Advance(3 * time.Minute)
	if ok, _ := store.Check(ctx, domain.CodePurposeRegister, "alice@example.com", code); ok {
		t.Fatal("code must be expired at exactly its expiry instant")
	}
}

func TestVerificationCodeStoreReissueInvalidatesPreviousCode(t *testing.T) {
	store, _ := newCodeStoreForTest(t)
	ctx := context.Background()

	codes := []string{"111111", "222222"}
	store.generate = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	if _, _, err := store.Issue(ctx, domain.CodePurposeRegister, "bob@example.com"); err != nil {
		t.Fatalf("issue first: %v", err)
	}
	if _, _, err := store.Issue(ctx, domain.CodePurposeRegister, "bob@example.com"); err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if ok, _ := store.Check(ctx, domain.CodePurposeRegister, "bob@example.com", "111111"); ok {
		t.Fatal("superseded code must not match")
	}
	if ok, _ := store.Check(ctx, domain.CodePurposeRegister, "bob@example.com", "222222"); !ok {
		t.Fatal("latest code must match")
	}

	if err := store.Delete(ctx, domain.CodePurposeRegister, "BOB@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := store.Check(ctx, domain.CodePurposeRegister, "bob@example.com", "222222"); ok {
		t.Fatal("deleted code must not match")
	}
}

func TestVerificationCodeStoreCleanupExpired(t *testing.T) {
	store, clock := newCodeStoreForTest(t)
	ctx := context.Background()

	if _, _, err := store.Issue(ctx, domain.CodePurposeRegister, "old@example.com"); err != nil {
		t.Fatalf("issue old: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, _, err := store.Issue(ctx, domain.CodePurposeRegister, "new@example.com"); err != nil {
		t.Fatalf("issue new: %v", err)
	}
	clock.Advance(90 * time.Second)

	deleted, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 expired code removed, got %d", deleted)
	}
}

func TestVerificationCodeStoreRunCleanupLoopStopsOnCancel(t *testing.T) {
	store, _ := newCodeStoreForTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunCleanupLoop(ctx, 5*time.Millisecond, nil)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup loop did not stop after cancel")
	}
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected six digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 100000 || n > 999999 {
			t.Fatalf("code out of range: %q", code)
		}
	}
}
