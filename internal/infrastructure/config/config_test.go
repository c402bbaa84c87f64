package config

import (
	"os"
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg = applyDefaults(cfg)

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.HTTP.Addr)
	}
	if cfg.Auth.TokenTTL.Minutes() != 30 {
		t.Errorf("expected 30m, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Session.Timeout != 30*time.Minute {
		t.Errorf("expected 30m session timeout, got %v", cfg.Session.Timeout)
	}
	if cfg.Session.WarningLead != 30*time.Second {
		t.Errorf("expected 30s warning lead, got %v", cfg.Session.WarningLead)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected default redis addr, got %s", cfg.Redis.Addr)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("SESSION_TIMEOUT", "45m")
	os.Setenv("AUDIT_BROKERS", "k1:9092, k2:9092")
	defer func() {
		os.Unsetenv("HTTP_ADDR")
		os.Unsetenv("SESSION_TIMEOUT")
		os.Unsetenv("AUDIT_BROKERS")
	}()

	cfg := Config{}
	cfg = applyEnv(cfg)

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.HTTP.Addr)
	}
	if cfg.Session.Timeout != 45*time.Minute {
		t.Errorf("expected 45m, got %v", cfg.Session.Timeout)
	}
	if len(cfg.Audit.Brokers) != 2 || cfg.Audit.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Audit.Brokers)
	}
}
