package config

import (
	"strings"
	"testing"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestNew_MemoryDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"LOYALTY_STORAGE":      "memory",
		"LOYALTY_BUS_PROVIDER": "",
		"LOYALTY_REDIS_HOST":   "",
	})

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BusProvider != "local" {
		t.Errorf("expected local bus, got %q", cfg.BusProvider)
	}
	if cfg.ApiAddr() != ":8080" {
		t.Errorf("unexpected api addr %q", cfg.ApiAddr())
	}
	if cfg.CacheEnabled() {
		t.Error("expected cache to be disabled without redis host")
	}
	if cfg.NotifyBuffer != 1024 {
		t.Errorf("unexpected notify buffer %d", cfg.NotifyBuffer)
	}
	if _, err := cfg.GRPCListenAddr(); err == nil {
		t.Error("expected grpc listen addr to be disabled")
	}
}

func TestNew_PostgresRequiresCredentials(t *testing.T) {
	setEnv(t, map[string]string{
		"LOYALTY_STORAGE":       "postgres",
		"LOYALTY_POSTGRES_USER": "",
		"LOYALTY_POSTGRES_HOST": "",
		"LOYALTY_POSTGRES_DB":   "",
	})

	if _, err := New(); err == nil || !strings.Contains(err.Error(), "LOYALTY_POSTGRES") {
		t.Fatalf("expected database config error, got %v", err)
	}
}

func TestNew_PostgresDSN(t *testing.T) {
	setEnv(t, map[string]string{
		"LOYALTY_STORAGE":           "postgres",
		"LOYALTY_POSTGRES_USER":     "rewards",
		"LOYALTY_POSTGRES_PASSWORD": "secret",
		"LOYALTY_POSTGRES_HOST":     "db",
		"LOYALTY_POSTGRES_PORT":     "5433",
		"LOYALTY_POSTGRES_DB":       "loyalty",
		"LOYALTY_POSTGRES_SSLMODE":  "require",
		"LOYALTY_BUS_PROVIDER":      "local",
		"LOYALTY_REDIS_HOST":        "cache",
		"LOYALTY_REDIS_PORT":        "6380",
	})

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := cfg.DSN(), "postgres://rewards:secret@db:5433/loyalty?sslmode=require"; got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
	if got := cfg.RedisAddr(); got != "cache:6380" {
		t.Errorf("RedisAddr = %q", got)
	}
	if !cfg.CacheEnabled() {
		t.Error("expected cache to be enabled")
	}
}

func TestNew_BusValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown provider", map[string]string{"LOYALTY_BUS_PROVIDER": "kafka"}, "invalid bus provider"},
		{"nats without host", map[string]string{"LOYALTY_BUS_PROVIDER": "nats", "LOYALTY_NATS_HOST": ""}, "LOYALTY_NATS_HOST"},
		{"grpc without target", map[string]string{"LOYALTY_BUS_PROVIDER": "grpc", "LOYALTY_GRPC_HOST": ""}, "LOYALTY_GRPC_HOST"},
		{"bad storage", map[string]string{"LOYALTY_STORAGE": "mongo"}, "invalid storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOYALTY_STORAGE", "memory")
			setEnv(t, tt.env)
			if _, err := New(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_NatsAddr(t *testing.T) {
	setEnv(t, map[string]string{
		"LOYALTY_STORAGE":      "memory",
		"LOYALTY_BUS_PROVIDER": "nats",
		"LOYALTY_NATS_HOST":    "nats",
		"LOYALTY_NATS_PORT":    "",
	})

	cfg, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.NatsAddr(); got != "nats://nats:4222" {
		t.Errorf("NatsAddr = %q", got)
	}
}
