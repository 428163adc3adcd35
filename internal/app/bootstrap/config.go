package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the session service.
// It merges file defaults and environment overrides to support both local
// and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	CookieSecret  string
	SecureCookies bool

	SessionLifetime time.Duration
	CodeValidity    time.Duration
	CodeLength      int
	EmailFrom       string

	SendThreshold int
	SendWindow    time.Duration

	OAuthStateTTL    time.Duration
	OAuthHTTPTimeout time.Duration
	OAuthProviders   map[string]OAuthProviderFileConfig

	GeoCity    string
	GeoRegion  string
	GeoCountry string

	KafkaBrokers    []string
	KafkaTopic      string
	KafkaEmailTopic string

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
	SweepInterval      time.Duration
}

type OAuthProviderFileConfig struct {
	AuthorizeURL string   `yaml:"authorize_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay
// internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Sessions struct {
		LifetimeDays  int    `yaml:"lifetime_days"`
		CookieSecret  string `yaml:"cookie_secret"`
		SecureCookies *bool  `yaml:"secure_cookies"`
	} `yaml:"sessions"`
	Codes struct {
		ValidityMinutes int    `yaml:"validity_minutes"`
		Length          int    `yaml:"length"`
		EmailFrom       string `yaml:"email_from"`
	} `yaml:"codes"`
	OAuth struct {
		Providers map[string]OAuthProviderFileConfig `yaml:"providers"`
	} `yaml:"oauth"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "session-service",
		HTTPPort:           8080,
		GRPCPort:           9090,
		SecureCookies:      true,
		SessionLifetime:    7 * 24 * time.Hour,
		CodeValidity:       10 * time.Minute,
		CodeLength:         12,
		EmailFrom:          "no-reply@nimbusboard.io",
		SendThreshold:      5,
		SendWindow:         15 * time.Minute,
		OAuthStateTTL:      10 * time.Minute,
		OAuthHTTPTimeout:   8 * time.Second,
		KafkaTopic:         "auth.events",
		KafkaEmailTopic:    "notification.email.requested",
		MaxDBConns:         20,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		OutboxClaimTTL:     30 * time.Second,
		OutboxMaxRetries:   5,
		SweepInterval:      5 * time.Minute,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Sessions.LifetimeDays > 0 {
			cfg.SessionLifetime = time.Duration(f.Sessions.LifetimeDays) * 24 * time.Hour
		}
		if f.Sessions.CookieSecret != "" {
			cfg.CookieSecret = f.Sessions.CookieSecret
		}
		if f.Sessions.SecureCookies != nil {
			cfg.SecureCookies = *f.Sessions.SecureCookies
		}
		if f.Codes.ValidityMinutes > 0 {
			cfg.CodeValidity = time.Duration(f.Codes.ValidityMinutes) * time.Minute
		}
		if f.Codes.Length > 0 {
			cfg.CodeLength = f.Codes.Length
		}
		if f.Codes.EmailFrom != "" {
			cfg.EmailFrom = f.Codes.EmailFrom
		}
		if len(f.OAuth.Providers) > 0 {
			cfg.OAuthProviders = f.OAuth.Providers
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.CookieSecret = envOrDefault("COOKIE_SECRET", cfg.CookieSecret)
	cfg.SecureCookies = envBool("SECURE_COOKIES", cfg.SecureCookies)
	cfg.EmailFrom = envOrDefault("EMAIL_FROM", cfg.EmailFrom)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaEmailTopic = envOrDefault("KAFKA_EMAIL_TOPIC", cfg.KafkaEmailTopic)
	cfg.GeoCity = envOrDefault("GEO_STATIC_CITY", cfg.GeoCity)
	cfg.GeoRegion = envOrDefault("GEO_STATIC_REGION", cfg.GeoRegion)
	cfg.GeoCountry = envOrDefault("GEO_STATIC_COUNTRY", cfg.GeoCountry)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.CodeLength = envInt("CODE_LENGTH", cfg.CodeLength)
	cfg.SendThreshold = envInt("SEND_THRESHOLD", cfg.SendThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.SessionLifetime = time.Duration(envInt("SESSION_LIFETIME_DAYS", int(cfg.SessionLifetime.Hours()/24))) * 24 * time.Hour
	cfg.CodeValidity = time.Duration(envInt("CODE_VALIDITY_MINUTES", int(cfg.CodeValidity.Minutes()))) * time.Minute
	cfg.SendWindow = time.Duration(envInt("SEND_WINDOW_MINUTES", int(cfg.SendWindow.Minutes()))) * time.Minute
	cfg.OAuthStateTTL = time.Duration(envInt("OAUTH_STATE_TTL_MINUTES", int(cfg.OAuthStateTTL.Minutes()))) * time.Minute
	cfg.OAuthHTTPTimeout = time.Duration(envInt("OAUTH_HTTP_TIMEOUT_SECONDS", int(cfg.OAuthHTTPTimeout.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.SweepInterval = time.Duration(envInt("CODE_SWEEP_INTERVAL_MINUTES", int(cfg.SweepInterval.Minutes()))) * time.Minute

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.CookieSecret == "" {
		return Config{}, fmt.Errorf("missing COOKIE_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
