package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
service:
  id: session-service-test
  http_port: 18080
dependencies:
  postgres_url: postgres://localhost:5432/test
  redis_url: redis://localhost:6379/1
sessions:
  lifetime_days: 3
  cookie_secret: file-secret
  secure_cookies: false
codes:
  validity_minutes: 5
  length: 8
  email_from: codes@test.local
oauth:
  providers:
    google:
      authorize_url: https://accounts.google.com/o/oauth2/v2/auth
      token_url: https://oauth2.googleapis.com/token
      client_id: cid
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.ServiceID != "session-service-test" || cfg.HTTPPort != 18080 {
		t.Fatalf("file service section not applied: %+v", cfg)
	}
	if cfg.GRPCPort != 9090 {
		t.Fatalf("expected default grpc port kept, got %d", cfg.GRPCPort)
	}
	if cfg.SessionLifetime != 3*24*time.Hour {
		t.Fatalf("expected 3 day lifetime, got %v", cfg.SessionLifetime)
	}
	if cfg.SecureCookies {
		t.Fatalf("expected secure_cookies false from file")
	}
	if cfg.CodeValidity != 5*time.Minute || cfg.CodeLength != 8 {
		t.Fatalf("codes section not applied: %v %d", cfg.CodeValidity, cfg.CodeLength)
	}
	if cfg.EmailFrom != "codes@test.local" {
		t.Fatalf("email_from not applied: %q", cfg.EmailFrom)
	}
	if cfg.OAuthProviders["google"].ClientID != "cid" {
		t.Fatalf("oauth providers not applied: %+v", cfg.OAuthProviders)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
dependencies:
  postgres_url: postgres://file:5432/db
  redis_url: redis://file:6379/0
sessions:
  cookie_secret: file-secret
`)
	t.Setenv("DB_URL", "postgres://env:5432/db")
	t.Setenv("COOKIE_SECRET", "env-secret")
	t.Setenv("SESSION_LIFETIME_DAYS", "14")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env:5432/db" {
		t.Fatalf("env DB_URL must win, got %q", cfg.DatabaseURL)
	}
	if cfg.CookieSecret != "env-secret" {
		t.Fatalf("env COOKIE_SECRET must win, got %q", cfg.CookieSecret)
	}
	if cfg.SessionLifetime != 14*24*time.Hour {
		t.Fatalf("env lifetime not applied: %v", cfg.SessionLifetime)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("broker list not parsed: %+v", cfg.KafkaBrokers)
	}
}

func TestLoadConfigRejectsMissingSecrets(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("COOKIE_SECRET", "")

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing database url")
	}

	path := writeConfigFile(t, `
dependencies:
  postgres_url: postgres://localhost:5432/db
  redis_url: redis://localhost:6379/0
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for missing cookie secret")
	}
}
