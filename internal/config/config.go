package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	SecretKey    string
	JWTIssuer    string
	JWTAudience  string
	JWTAccessTTL time.Duration

	RecaptchaSecret      string
	RecaptchaVerifyURL   string
	CaptchaTimeout       time.Duration
	CaptchaBypassEnabled bool

	SMTPServer   string
	SMTPPort     int
	SMTPEmail    string
	SMTPPassword string
	SMTPTimeout  time.Duration

	VerificationCodeTTL             time.Duration
	VerificationCodeCleanupInterval time.Duration

	CORSAllowedOrigins  []string
	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	RateLimitRedisEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RateLimitRedisPrefix  string

	AuthAbuseFreeAttempts int
	AuthAbuseBaseDelay    time.Duration
	AuthAbuseMaxDelay     time.Duration
	AuthAbuseResetWindow  time.Duration

	ServerReadTimeout            time.Duration
	ServerWriteTimeout           time.Duration
	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

const DefaultRecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:                   env,
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		DBHost:                os.Getenv("DB_HOST"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                os.Getenv("DB_NAME"),
		DBSSLMode:             getEnv("DB_SSLMODE", "disable"),
		SecretKey:             os.Getenv("SECRET_KEY"),
		JWTIssuer:             getEnv("JWT_ISSUER", "identity-service"),
		JWTAudience:           getEnv("JWT_AUDIENCE", "identity-service-api"),
		RecaptchaSecret:       os.Getenv("RECAPTCHA_SECRET"),
		RecaptchaVerifyURL:    getEnv("RECAPTCHA_VERIFY_URL", DefaultRecaptchaVerifyURL),
		CaptchaBypassEnabled:  getEnvBool("CAPTCHA_BYPASS_ENABLED", isLocalLikeEnv(env)),
		SMTPServer:            os.Getenv("SMTP_SERVER"),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPEmail:             os.Getenv("SMTP_EMAIL"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		CORSAllowedOrigins:    splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimitPerMin:   getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:    getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnabled: getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		RateLimitRedisPrefix:  getEnv("RATE_LIMIT_REDIS_PREFIX", "identity:rl"),
		AuthAbuseFreeAttempts: getEnvInt("AUTH_ABUSE_FREE_ATTEMPTS", 5),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "identity-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.BuildDatabaseURL()
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"JWT_ACCESS_TTL", "30m", &cfg.JWTAccessTTL},
		{"CAPTCHA_TIMEOUT", "5s", &cfg.CaptchaTimeout},
		{"SMTP_TIMEOUT", "5s", &cfg.SMTPTimeout},
		{"HTTP_READ_TIMEOUT", "10s", &cfg.ServerReadTimeout},
		{"HTTP_WRITE_TIMEOUT", "15s", &cfg.ServerWriteTimeout},
		{"VERIFICATION_CODE_TTL", "3m", &cfg.VerificationCodeTTL},
		{"VERIFICATION_CODE_CLEANUP_INTERVAL", "5m", &cfg.VerificationCodeCleanupInterval},
		{"AUTH_ABUSE_BASE_DELAY", "2s", &cfg.AuthAbuseBaseDelay},
		{"AUTH_ABUSE_MAX_DELAY", "5m", &cfg.AuthAbuseMaxDelay},
		{"AUTH_ABUSE_RESET_WINDOW", "30m", &cfg.AuthAbuseResetWindow},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildDatabaseURL assembles a postgres URL from the DB_* parts. It returns
// an empty string when no host is configured.
func (c *Config) BuildDatabaseURL() string {
	if c.DBHost == "" {
		return ""
	}
	port := c.DBPort
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, port),
		Path:   "/" + c.DBName,
	}
	if c.DBUser != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.DBSSLMode}}.Encode()
	}
	return u.String()
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPServer != "" && c.SMTPEmail != ""
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production") || strings.EqualFold(strings.TrimSpace(c.Env), "prod")
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL or DB_HOST is required")
	}
	if len(c.SecretKey) < 32 {
		errs = append(errs, "SECRET_KEY must be at least 32 chars")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > 24*time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 24h")
	}
	if c.VerificationCodeTTL <= 0 || c.VerificationCodeTTL > time.Hour {
		errs = append(errs, "VERIFICATION_CODE_TTL must be between 1s and 1h")
	}
	if c.CaptchaTimeout <= 0 {
		errs = append(errs, "CAPTCHA_TIMEOUT must be > 0")
	}
	if c.RecaptchaVerifyURL == "" {
		errs = append(errs, "RECAPTCHA_VERIFY_URL must not be empty")
	}
	if c.SMTPTimeout <= 0 {
		errs = append(errs, "SMTP_TIMEOUT must be > 0")
	}
	if c.ServerReadTimeout <= 0 || c.ServerWriteTimeout <= 0 {
		errs = append(errs, "HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be > 0")
	}
	// Outbound calls made inside a request must finish before the server
	// gives up on writing the response.
	if c.ServerWriteTimeout > 0 && c.SMTPTimeout >= c.ServerWriteTimeout {
		errs = append(errs, "SMTP_TIMEOUT must be shorter than HTTP_WRITE_TIMEOUT")
	}
	if c.ServerWriteTimeout > 0 && c.CaptchaTimeout >= c.ServerWriteTimeout {
		errs = append(errs, "CAPTCHA_TIMEOUT must be shorter than HTTP_WRITE_TIMEOUT")
	}
	if c.SMTPServer != "" && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		errs = append(errs, "SMTP_PORT must be a valid port")
	}
	if c.IsProduction() {
		if !c.SMTPConfigured() || c.SMTPPassword == "" {
			errs = append(errs, "SMTP_SERVER, SMTP_EMAIL and SMTP_PASSWORD are required in production")
		}
		if c.CaptchaBypassEnabled {
			errs = append(errs, "CAPTCHA_BYPASS_ENABLED must be false in production")
		}
		if c.RecaptchaSecret == "" {
			errs = append(errs, "RECAPTCHA_SECRET is required in production")
		}
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.AuthAbuseFreeAttempts < 0 {
		errs = append(errs, "AUTH_ABUSE_FREE_ATTEMPTS must be >= 0")
	}
	if c.RateLimitRedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when RATE_LIMIT_REDIS_ENABLED=true")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservabilityTimeout <= 0 || c.ShutdownObservabilityTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsEnabled && c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
