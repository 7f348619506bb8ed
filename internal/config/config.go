// Package config holds the ambient per-provider settings shared across
// llmkit's provider clients: HTTP transport, default timeout, retry caps,
// and Anthropic beta headers. Settings are applied through functional
// options passed to New.
package config

import (
	"net/http"
	"time"

	"github.com/harborwave/llmkit/pkg/internal/retry"
)

// Config holds the ambient settings a caller assembles before building any
// provider client: HTTP transport, default timeout, and retry policy.
type Config struct {
	HTTPClient  *http.Client
	Timeout     time.Duration
	RetryConfig retry.Config
	BetaHeaders []string
}

// Option mutates a Config during New.
type Option func(*Config)

// New builds a Config from the given options, starting from
// retry.DefaultConfig() and a 60s timeout.
func New(opts ...Option) Config {
	cfg := Config{
		Timeout:     60 * time.Second,
		RetryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithTimeout sets the per-request timeout that Client applies to the
// *http.Client it builds when cfg.HTTPClient is nil.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxRetries caps the number of retry attempts a provider client's
// requests will make.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.RetryConfig.MaxRetries = n
	}
}

// WithBetaHeaders sets the anthropic-beta feature flags forwarded on every
// Anthropic request. No-op for providers that don't use beta headers.
func WithBetaHeaders(betas ...string) Option {
	return func(c *Config) {
		c.BetaHeaders = betas
	}
}

// WithHTTPClient overrides the transport used for every provider request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = hc
	}
}

// Client returns cfg.HTTPClient, defaulting to an *http.Client with
// cfg.Timeout applied when none was supplied.
func (c Config) Client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}
