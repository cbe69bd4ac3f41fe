package config

import (
	"testing"
	"time"
)

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "production", Port: 8080},
		Storage: StorageConfig{Backend: BackendPostgres},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "arrestlog"},
		Redis:   RedisConfig{Host: "localhost", Port: 6379},
		Auth:    AuthConfig{JWTSecret: "secret", JWTIssuer: "arrestlog"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "local", Port: 8080},
		DB:   DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "arrestlog"},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Storage.Backend != BackendPostgres {
		t.Fatalf("expected postgres backend default, got %q", c.Storage.Backend)
	}
	if c.Webhook.FollowUpDelay != time.Second {
		t.Fatalf("expected 1s follow-up delay, got %s", c.Webhook.FollowUpDelay)
	}
	if c.ImageHost.Endpoint == "" {
		t.Fatalf("expected image host endpoint default")
	}
	if c.App.Namespace == "" || c.App.Timezone == "" {
		t.Fatalf("expected namespace and timezone defaults")
	}
	if c.RedisEnabled() {
		t.Fatalf("redis should be disabled without REDIS_HOST")
	}
}

func TestValidate_MemoryBackendSkipsDB(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "dev", Port: 8080},
		Storage: StorageConfig{Backend: BackendMemory},
		Auth:    AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_MemoryBackendRejectedInProduction(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "production", Port: 8080},
		Storage: StorageConfig{Backend: BackendMemory},
		Redis:   RedisConfig{Host: "localhost", Port: 6379},
		Auth:    AuthConfig{JWTSecret: "secret", JWTIssuer: "x"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate_RejectsBadWebhookURL(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "dev", Port: 8080},
		Storage: StorageConfig{Backend: BackendMemory},
		Auth:    AuthConfig{JWTSecret: "secret"},
		Webhook: WebhookConfig{DefaultURL: "ftp://example.com/hook"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected webhook url error")
	}
}

func TestValidate_BootstrapPairRequired(t *testing.T) {
	c := Config{
		App:       AppConfig{Env: "dev", Port: 8080},
		Storage:   StorageConfig{Backend: BackendMemory},
		Auth:      AuthConfig{JWTSecret: "secret"},
		Bootstrap: BootstrapConfig{AdminUsername: "root"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected bootstrap error")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("WEBHOOK_FOLLOWUP_DELAY", "250ms")
	t.Setenv("WEBHOOK_MAX_INFLIGHT", "3")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr() != ":9090" {
		t.Fatalf("unexpected addr %q", c.HTTPAddr())
	}
	if c.Webhook.FollowUpDelay != 250*time.Millisecond || c.Webhook.MaxInFlight != 3 {
		t.Fatalf("unexpected webhook config: %+v", c.Webhook)
	}
	if c.Location().String() != "America/Sao_Paulo" {
		t.Fatalf("unexpected location %s", c.Location())
	}
}

func TestValidateHTTPURL(t *testing.T) {
	for _, ok := range []string{"https://discord.com/api/webhooks/1/x", "http://cdn.example/logo.png"} {
		if err := ValidateHTTPURL(ok); err != nil {
			t.Fatalf("%q: unexpected err %v", ok, err)
		}
	}
	for _, bad := range []string{"", "ftp://x", "https://", "not a url", "javascript:alert(1)"} {
		if err := ValidateHTTPURL(bad); err == nil {
			t.Fatalf("%q: expected rejection", bad)
		}
	}
}
