package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	Env                   string        `mapstructure:"app_env"`
	LogLevel              string        `mapstructure:"log_level"`
	APIBaseURL            string        `mapstructure:"api_base_url"`
	ProfilesFile          string        `mapstructure:"profiles_file"`
	AuditFile             string        `mapstructure:"audit_file"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	CredentialStore           string        `mapstructure:"credential_store"`
	BBoltPath                 string        `mapstructure:"bbolt_path"`
	CredentialKey             string        `mapstructure:"credential_key"`
	CredentialEnvPrefix       string        `mapstructure:"credential_env_prefix"`
	CredentialTTLSeconds      int64         `mapstructure:"credential_ttl_seconds"`
	CredentialCleanupSeconds  int64         `mapstructure:"credential_cleanup_interval_seconds"`
	CredentialTTL             time.Duration `mapstructure:"-"`
	CredentialCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "samvad-ops-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "warn")
	v.SetDefault("api_base_url", "http://localhost:8080")
	v.SetDefault("profiles_file", "")
	v.SetDefault("audit_file", "")
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("credential_store", "bbolt")
	v.SetDefault("bbolt_path", "./data/credentials.db")
	v.SetDefault("credential_key", "ops_token")
	v.SetDefault("credential_env_prefix", "OPS_CREDENTIAL_")
	v.SetDefault("credential_ttl_seconds", 0) // never expires
	v.SetDefault("credential_cleanup_interval_seconds", int64((time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if err := validateBaseURL(cfg.APIBaseURL); err != nil {
		return nil, err
	}

	if cfg.RequestTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	cfg.CredentialKey = strings.TrimSpace(cfg.CredentialKey)
	if cfg.CredentialKey == "" {
		return nil, fmt.Errorf("credential_key must not be empty")
	}

	if cfg.CredentialTTLSeconds < 0 {
		return nil, fmt.Errorf("invalid credential_ttl_seconds (must be zero or positive seconds)")
	}
	if cfg.CredentialCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid credential_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.CredentialTTL = time.Duration(cfg.CredentialTTLSeconds) * time.Second
	cfg.CredentialCleanupInterval = time.Duration(cfg.CredentialCleanupSeconds) * time.Second

	return &cfg, nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse api_base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base_url must be an http(s) origin, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api_base_url is missing a host: %q", raw)
	}
	return nil
}
