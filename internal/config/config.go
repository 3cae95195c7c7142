package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN      string
	DBMaxConns int32

	LogLevel string

	RateLimitRPM int
	MaxBodyBytes int64

	DefaultTZ          *time.Location
	IgnoredRecipients  []string
	MailDomain         string
	CORSAllowedOrigins []string

	IntakeUser         string
	IntakePasswordHash string

	ErrorRetentionDays int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("FR_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("FR_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("FR_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("FR_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FR_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("FR_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("FR_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("FR_DB_DSN is required")
	}

	maxConns, err := getEnvIntOrDefault("FR_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	if maxConns < 1 || maxConns > 1000 {
		return nil, fmt.Errorf("FR_DB_MAX_CONNS must be between 1 and 1000 (got: %d)", maxConns)
	}
	cfg.DBMaxConns = int32(maxConns)

	cfg.LogLevel = getEnvOrDefault("FR_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("FR_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	cfg.RateLimitRPM, err = getEnvIntOrDefault("FR_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM <= 0 {
		return nil, fmt.Errorf("FR_RATE_LIMIT_RPM must be positive (got: %d)", cfg.RateLimitRPM)
	}

	cfg.MaxBodyBytes, err = getEnvInt64OrDefault("FR_MAX_BODY_BYTES", 10*1024*1024)
	if err != nil {
		return nil, err
	}
	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("FR_MAX_BODY_BYTES must be positive (got: %d)", cfg.MaxBodyBytes)
	}

	tzName := getEnvOrDefault("FR_DEFAULT_TZ", "UTC")
	cfg.DefaultTZ, err = time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("FR_DEFAULT_TZ must be an IANA time zone (got: %q)", tzName)
	}

	cfg.IgnoredRecipients = getEnvList("FR_IGNORED_RECIPIENTS")
	cfg.MailDomain = getEnvOrDefault("FR_MAIL_DOMAIN", "virginia.edu")
	cfg.CORSAllowedOrigins = getEnvList("FR_CORS_ORIGINS")

	cfg.IntakeUser = strings.TrimSpace(os.Getenv("FR_INTAKE_USER"))
	cfg.IntakePasswordHash = strings.TrimSpace(os.Getenv("FR_INTAKE_PASSWORD_HASH"))
	if (cfg.IntakeUser == "") != (cfg.IntakePasswordHash == "") {
		return nil, fmt.Errorf("FR_INTAKE_USER and FR_INTAKE_PASSWORD_HASH must be set together")
	}
	if cfg.IntakePasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.IntakePasswordHash)); err != nil {
			return nil, fmt.Errorf("FR_INTAKE_PASSWORD_HASH must be a bcrypt hash: %w", err)
		}
	}
	if cfg.Env == "prod" && cfg.IntakeUser == "" {
		return nil, fmt.Errorf("FR_INTAKE_USER is required when FR_ENV=prod")
	}

	cfg.ErrorRetentionDays, err = getEnvIntOrDefault("FR_ERROR_RETENTION_DAYS", 90)
	if err != nil {
		return nil, err
	}
	if cfg.ErrorRetentionDays < 1 {
		return nil, fmt.Errorf("FR_ERROR_RETENTION_DAYS must be at least 1 (got: %d)", cfg.ErrorRetentionDays)
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// IntakeAuthEnabled reports whether the intake webhook requires basic auth.
func (c *Config) IntakeAuthEnabled() bool {
	return c.IntakeUser != ""
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	hash := ""
	if c.IntakePasswordHash != "" {
		hash = "[REDACTED]"
	}
	tz := ""
	if c.DefaultTZ != nil {
		tz = c.DefaultTZ.String()
	}
	return map[string]string{
		"FR_ENV":                  c.Env,
		"FR_HTTP_ADDR":            c.HTTPAddr,
		"FR_BASE_URL":             c.BaseURL,
		"FR_DB_DSN":               redactDSN(c.DBDSN),
		"FR_DB_MAX_CONNS":         fmt.Sprintf("%d", c.DBMaxConns),
		"FR_LOG_LEVEL":            c.LogLevel,
		"FR_RATE_LIMIT_RPM":       fmt.Sprintf("%d", c.RateLimitRPM),
		"FR_MAX_BODY_BYTES":       fmt.Sprintf("%d", c.MaxBodyBytes),
		"FR_DEFAULT_TZ":           tz,
		"FR_IGNORED_RECIPIENTS":   strings.Join(c.IgnoredRecipients, ","),
		"FR_MAIL_DOMAIN":          c.MailDomain,
		"FR_CORS_ORIGINS":         strings.Join(c.CORSAllowedOrigins, ","),
		"FR_INTAKE_USER":          c.IntakeUser,
		"FR_INTAKE_PASSWORD_HASH": hash,
		"FR_ERROR_RETENTION_DAYS": fmt.Sprintf("%d", c.ErrorRetentionDays),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}

func getEnvInt64OrDefault(key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
