package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/sandeepkv93/identity-service/internal/domain"
	"github.com/sandeepkv93/identity-service/internal/observability"
)

const (
	verificationSubject = "Your Verification Code"
	implicitTLSPort     = 465
)

type VerificationMessage struct {
	To        string
	Code      string
	Purpose   domain.CodePurpose
	ExpiresAt time.Time
	TTL       time.Duration
}

type VerificationMailer interface {
	SendVerificationCode(ctx context.Context, msg VerificationMessage) error
}

// DevVerificationMailer writes codes to the log instead of sending mail.
type DevVerificationMailer struct {
	logger *slog.Logger
}

func NewDevVerificationMailer(logger *slog.Logger) *DevVerificationMailer {
	return &DevVerificationMailer{logger: logger}
}

func (m *DevVerificationMailer) SendVerificationCode(ctx context.Context, msg VerificationMessage) error {
	m.logger.InfoContext(ctx, "verification code issued",
		"email", msg.To,
		"purpose", string(msg.Purpose),
		"code", msg.Code,
		"expires_at", msg.ExpiresAt,
	)
	observability.RecordMailDelivery(ctx, "log", "success")
	return nil
}

type SMTPMailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer delivers codes over authenticated SMTP. Port 465 uses implicit
// TLS, every other port must offer STARTTLS.
type SMTPMailer struct {
	cfg SMTPMailerConfig
	now func() time.Time
}

func NewSMTPMailer(cfg SMTPMailerConfig) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{cfg: cfg, now: time.Now}
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, msg VerificationMessage) error {
	start := time.Now()
	err := m.send(ctx, msg)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordMailDelivery(ctx, "smtp", outcome)
	observability.RecordMailDuration(ctx, outcome, time.Since(start))
	return err
}

func (m *SMTPMailer) send(ctx context.Context, msg VerificationMessage) error {
	mm, err := m.compose(msg)
	if err != nil {
		return err
	}
	client, err := m.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSConfig(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}),
	}
	if m.cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return mail.NewClient(m.cfg.Host, opts...)
}

func (m *SMTPMailer) compose(msg VerificationMessage) (*mail.Msg, error) {
	mm := mail.NewMsg()
	// Address parsing rejects embedded line breaks.
	if err := mm.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from address: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp to address: %w", err)
	}
	domainPart := m.cfg.Host
	if at := strings.LastIndex(m.cfg.From, "@"); at >= 0 {
		domainPart = m.cfg.From[at+1:]
	}
	mm.Subject(verificationSubject)
	mm.SetDateWithValue(m.now())
	mm.SetMessageIDWithValue(uuid.NewString() + "@" + domainPart)
	mm.SetBodyString(mail.TypeTextPlain, messageBody(msg))
	return mm, nil
}

func messageBody(msg VerificationMessage) string {
	lead := "Your verification code is"
	if msg.Purpose == domain.CodePurposePasswordReset {
		lead = "Your password reset code is"
	}
	return fmt.Sprintf("%s: %s\r\n\r\nThis code will expire in %s.\r\n", lead, msg.Code, describeTTL(msg.TTL))
}

func describeTTL(d time.Duration) string {
	if d <= 0 {
		d = DefaultVerificationCodeTTL
	}
	if d%time.Minute == 0 {
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	}
	return fmt.Sprintf("%d seconds", int(d.Round(time.Second)/time.Second))
}
