package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sandeepkv93/identity-service/internal/observability"
)

// CaptchaBypassToken skips the remote check when the gate allows bypass.
const CaptchaBypassToken = "dev-bypass"

type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// RecaptchaVerifier checks tokens against a reCAPTCHA-compatible siteverify endpoint.
type RecaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewRecaptchaVerifier(secret, verifyURL string, timeout time.Duration, transport http.RoundTripper) *RecaptchaVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &RecaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout, Transport: transport},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns an error only when the provider could not give an answer.
// An undecodable answer counts as a failed check.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{"secret": {v.secret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verify request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return false, fmt.Errorf("captcha verify request: upstream status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	var body siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return false, nil
	}
	return body.Success, nil
}

// CaptchaGate fails closed: no secret or no token means no pass.
type CaptchaGate struct {
	verifier         CaptchaVerifier
	secretConfigured bool
	bypassEnabled    bool
}

func NewCaptchaGate(verifier CaptchaVerifier, secretConfigured, bypassEnabled bool) *CaptchaGate {
	return &CaptchaGate{verifier: verifier, secretConfigured: secretConfigured, bypassEnabled: bypassEnabled}
}

func (g *CaptchaGate) Check(ctx context.Context, token string) (bool, error) {
	if token == CaptchaBypassToken && g.bypassEnabled {
		observability.RecordCaptchaCheck(ctx, "bypass")
		return true, nil
	}
	if token == "" || !g.secretConfigured || g.verifier == nil {
		observability.RecordCaptchaCheck(ctx, "rejected")
		return false, nil
	}

	start := time.Now()
	ok, err := g.verifier.Verify(ctx, token)
	outcome := "passed"
	switch {
	case err != nil:
		outcome = "error"
	case !ok:
		outcome = "failed"
	}
	observability.RecordCaptchaCheck(ctx, outcome)
	observability.RecordCaptchaDuration(ctx, outcome, time.Since(start))
	if err != nil {
		return false, err
	}
	return ok, nil
}
