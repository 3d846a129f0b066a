package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFileKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nIDENTITY_TEST_NEW=\"fresh\"\nIDENTITY_TEST_SET=from-file\nnot-a-pair\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("IDENTITY_TEST_SET", "from-env")
	t.Setenv("IDENTITY_TEST_NEW", "")
	_ = os.Unsetenv("IDENTITY_TEST_NEW")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("IDENTITY_TEST_NEW"); got != "fresh" {
		t.Fatalf("expected quoted value to be unwrapped, got %q", got)
	}
	if got := os.Getenv("IDENTITY_TEST_SET"); got != "from-env" {
		t.Fatalf("existing env must win, got %q", got)
	}
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("empty path should be ignored, got %v", err)
	}
}

func TestInstrumentPassesThrough(t *testing.T) {
	want := errors.New("boom")
	details, err := Instrument("seed", "account", func(context.Context) ([]string, error) {
		return []string{"partial"}, want
	})(context.Background())
	if !errors.Is(err, want) {
		t.Fatalf("expected wrapped action error, got %v", err)
	}
	if len(details) != 1 || details[0] != "partial" {
		t.Fatalf("unexpected details: %v", details)
	}
}
