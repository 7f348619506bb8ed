package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	if cfg.Timeout != 60*time.Second {
		t.Fatalf("expected default 60s timeout, got %v", cfg.Timeout)
	}
	if cfg.RetryConfig.MaxRetries != 2 {
		t.Fatalf("expected default MaxRetries 2, got %d", cfg.RetryConfig.MaxRetries)
	}
	if cfg.HTTPClient != nil {
		t.Fatalf("expected nil HTTPClient by default")
	}
}

func TestWithOptions(t *testing.T) {
	cfg := New(
		WithMaxRetries(5),
		WithBetaHeaders("tool-use-2024-05-16", "computer-use-2025-01-24"),
	)
	if cfg.RetryConfig.MaxRetries != 5 {
		t.Fatalf("expected MaxRetries 5, got %d", cfg.RetryConfig.MaxRetries)
	}
	if len(cfg.BetaHeaders) != 2 || cfg.BetaHeaders[0] != "tool-use-2024-05-16" {
		t.Fatalf("unexpected beta headers: %v", cfg.BetaHeaders)
	}
}

func TestClientDefaultsTimeout(t *testing.T) {
	cfg := New(WithTimeout(5 * time.Second))
	hc := cfg.Client()
	if hc.Timeout != 5*time.Second {
		t.Fatalf("expected client timeout 5s, got %v", hc.Timeout)
	}
}
