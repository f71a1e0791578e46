package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileEnv names the environment variable holding an optional YAML config file
const ConfigFileEnv = "SVP_CONFIG"

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string `mapstructure:"database_url"`

	// HTTP
	APIPort int    `mapstructure:"api_port"`
	AppURL  string `mapstructure:"app_url"`

	// Storage
	UploadsDir string `mapstructure:"uploads_dir"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Security
	AppEnv            string `mapstructure:"app_env"`
	JWTSecret         string `mapstructure:"jwt_secret"`
	AllowedOrigins    string `mapstructure:"allowed_origins"`
	MailgunSigningKey string `mapstructure:"mailgun_signing_key"`

	// Rate Limiting
	RateLimitRequests float64 `mapstructure:"rate_limit_requests"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`

	// Outbound mail
	EmailHost    string `mapstructure:"email_host"`
	EmailPort    int    `mapstructure:"email_port"`
	EmailUser    string `mapstructure:"email_user"`
	EmailPass    string `mapstructure:"email_pass"`
	EmailFrom    string `mapstructure:"email_from"`
	EmailReplyTo string `mapstructure:"email_reply_to"`

	// Inbound SMTP
	SMTPEnabled   bool   `mapstructure:"smtp_enabled"`
	SMTPAddr      string `mapstructure:"smtp_addr"`
	SMTPDomain    string `mapstructure:"smtp_domain"`
	SMTPTLSCert   string `mapstructure:"smtp_tls_cert"`
	SMTPTLSKey    string `mapstructure:"smtp_tls_key"`
	SMTPTLSReload string `mapstructure:"smtp_tls_reload"`

	// Orphan upload sweeper
	UploadSweepSchedule string        `mapstructure:"upload_sweep_schedule"`
	UploadSweepGrace    time.Duration `mapstructure:"upload_sweep_grace"`
}

var defaults = map[string]any{
	"database_url":          "",
	"api_port":              3001,
	"app_url":               "http://localhost:3001",
	"uploads_dir":           "./uploads",
	"log_level":             "info",
	"log_format":            "json",
	"app_env":               "development",
	"jwt_secret":            "",
	"allowed_origins":       "http://localhost:5173",
	"mailgun_signing_key":   "",
	"rate_limit_requests":   10.0,
	"rate_limit_burst":      20,
	"email_host":            "",
	"email_port":            587,
	"email_user":            "",
	"email_pass":            "",
	"email_from":            "",
	"email_reply_to":        "",
	"smtp_enabled":          false,
	"smtp_addr":             ":2525",
	"smtp_domain":           "localhost",
	"smtp_tls_cert":         "",
	"smtp_tls_key":          "",
	"smtp_tls_reload":       "@hourly",
	"upload_sweep_schedule": "@daily",
	"upload_sweep_grace":    "24h",
}

// Load reads configuration from environment variables, layered over an
// optional YAML file. configFile falls back to $SVP_CONFIG.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv(ConfigFileEnv)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation(configFile string) (*Config, error) {
	cfg, err := Load(configFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV selects production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Origins returns the allowed browser origins as a list
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.UploadsDir == "" {
		return fmt.Errorf("UploadsDir cannot be empty")
	}
	if !strings.HasPrefix(c.AppURL, "http://") && !strings.HasPrefix(c.AppURL, "https://") {
		return fmt.Errorf("APP_URL must be an absolute http(s) URL")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}
	if c.UploadSweepGrace <= 0 {
		return fmt.Errorf("UPLOAD_SWEEP_GRACE must be positive")
	}
	if (c.SMTPTLSCert == "") != (c.SMTPTLSKey == "") {
		return fmt.Errorf("SMTP_TLS_CERT and SMTP_TLS_KEY must be set together")
	}
	return nil
}

// SMTPTLSEnabled reports whether the inbound listener offers STARTTLS
func (c *Config) SMTPTLSEnabled() bool {
	return c.SMTPTLSCert != "" && c.SMTPTLSKey != ""
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.EmailHost == "" || c.EmailFrom == "" {
		return fmt.Errorf("EMAIL_HOST and EMAIL_FROM are required in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.String("app_url", c.AppURL),
		slog.String("uploads_dir", c.UploadsDir),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("jwt_secret_set", c.JWTSecret != ""),
		slog.Bool("webhook_signing_set", c.MailgunSigningKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.String("email_host", c.EmailHost),
		slog.Bool("smtp_enabled", c.SMTPEnabled),
		slog.Bool("smtp_tls", c.SMTPTLSEnabled()),
		slog.String("upload_sweep_schedule", c.UploadSweepSchedule),
	)
}
