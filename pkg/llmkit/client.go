// Package llmkit is the public orchestrator: one Client exposing a
// Provider per backend (Anthropic, OpenAI Chat Completions, OpenAI
// Responses, Gemini), each implementing the same Generate/Stream surface
// over pkg/llm's provider-neutral data model.
package llmkit

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/harborwave/llmkit/pkg/internal/retry"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmkitlog"
	"github.com/harborwave/llmkit/pkg/providers/anthropic"
	"github.com/harborwave/llmkit/pkg/providers/google"
	"github.com/harborwave/llmkit/pkg/providers/openai"
	"github.com/harborwave/llmkit/pkg/providers/openairesponses"
)

// Provider is the common surface every backend client implements.
type Provider interface {
	Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error)
	Stream(ctx context.Context, req llm.Request) (*StreamIterator, error)
}

// StreamIterator yields successive GenerationResponse snapshots for one
// streaming turn, regardless of backend. io.EOF signals a clean end.
type StreamIterator struct {
	next  func(ctx context.Context) (*llm.GenerationResponse, error)
	close func() error
}

// Next advances the stream by one step.
func (s *StreamIterator) Next(ctx context.Context) (*llm.GenerationResponse, error) {
	return s.next(ctx)
}

// Close releases resources held by the underlying transport.
func (s *StreamIterator) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Config configures a Client. HTTPClient is used as every provider's
// transport; pass one with a custom http.RoundTripper for proxying,
// mocking in tests, or adding middleware — the full injectable-interface
// form spec'd for HTTPDoer reduces to this concrete type here, since
// *http.Client already satisfies it and a custom Transport covers every
// interception need without widening the provider constructors' signatures.
type Config struct {
	HTTPClient  *http.Client
	Logger      llmkitlog.Logger
	RetryPolicy *retry.Config
}

// Client is the public llmkit entry point: construct it once, then obtain
// one Provider per backend you intend to talk to.
type Client struct {
	cfg Config
}

// New builds a Client from cfg. A nil Logger defaults to llmkitlog.Nop{}.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = llmkitlog.Nop{}
	}
	return &Client{cfg: cfg}
}

// retryConfig returns the effective retry.Config for a new provider client:
// the caller-supplied policy (or retry.DefaultConfig()) with an OnRetry hook
// that logs each wait at Debug, per spec §7's ambient logging requirement.
func (c *Client) retryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	if c.cfg.RetryPolicy != nil {
		cfg = *c.cfg.RetryPolicy
	}
	logger := c.cfg.Logger
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Log(llmkitlog.Debug, "retrying request",
			llmkitlog.Field{Key: "attempt", Value: attempt},
			llmkitlog.Field{Key: "delay", Value: delay},
			llmkitlog.Field{Key: "error", Value: err})
	}
	return &cfg
}

// Anthropic returns a Provider backed by the Anthropic Messages API.
func (c *Client) Anthropic(apiKey string) Provider {
	client := anthropic.NewClient(anthropic.Config{
		APIKey:      apiKey,
		HTTPClient:  c.cfg.HTTPClient,
		RetryConfig: c.retryConfig(),
	})
	return anthropicProvider{client: client, log: c.cfg.Logger}
}

// OpenAI returns a Provider backed by the OpenAI Chat Completions API.
// An empty baseURL uses the default OpenAI endpoint; pass a different one
// to target an OpenAI-compatible gateway.
func (c *Client) OpenAI(apiKey, baseURL string) Provider {
	client := openai.NewClient(openai.Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		HTTPClient:  c.cfg.HTTPClient,
		RetryConfig: c.retryConfig(),
	})
	return openAIProvider{client: client, log: c.cfg.Logger}
}

// OpenAIResponses returns a Provider backed by the OpenAI Responses API.
func (c *Client) OpenAIResponses(apiKey string) OpenAIResponsesProvider {
	client := openairesponses.NewClient(openairesponses.Config{
		APIKey:      apiKey,
		HTTPClient:  c.cfg.HTTPClient,
		RetryConfig: c.retryConfig(),
	})
	return OpenAIResponsesProvider{client: client, log: c.cfg.Logger}
}

// Gemini returns a Provider backed by Gemini's streamGenerateContent API.
func (c *Client) Gemini(apiKey string) Provider {
	client := google.NewClient(google.Config{
		APIKey:      apiKey,
		HTTPClient:  c.cfg.HTTPClient,
		RetryConfig: c.retryConfig(),
	})
	return googleProvider{client: client, log: c.cfg.Logger}
}

type anthropicProvider struct {
	client *anthropic.Client
	log    llmkitlog.Logger
}

func (p anthropicProvider) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	return p.client.Generate(ctx, req)
}

func (p anthropicProvider) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	it, err := p.client.Stream(ctx, req)
	if err != nil {
		p.log.Log(llmkitlog.Error, "anthropic stream start failed", llmkitlog.Field{Key: "error", Value: err})
		return nil, err
	}
	return &StreamIterator{next: it.Next, close: it.Close}, nil
}

type openAIProvider struct {
	client *openai.Client
	log    llmkitlog.Logger
}

func (p openAIProvider) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	return p.client.Generate(ctx, req)
}

func (p openAIProvider) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	it, err := p.client.Stream(ctx, req)
	if err != nil {
		p.log.Log(llmkitlog.Error, "openai stream start failed", llmkitlog.Field{Key: "error", Value: err})
		return nil, err
	}
	return &StreamIterator{next: it.Next, close: it.Close}, nil
}

type OpenAIResponsesProvider struct {
	client *openairesponses.Client
	log    llmkitlog.Logger
}

func (p OpenAIResponsesProvider) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	return p.client.Generate(ctx, req)
}

func (p OpenAIResponsesProvider) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	it, err := p.client.Stream(ctx, req)
	if err != nil {
		p.log.Log(llmkitlog.Error, "openai responses stream start failed", llmkitlog.Field{Key: "error", Value: err})
		return nil, err
	}
	return &StreamIterator{next: it.Next, close: it.Close}, nil
}

// Background returns a StreamIterator over a background (resumable)
// Responses API turn. Unlike the other providers' Stream, this is only
// available on OpenAIResponses, reflecting that background mode is a
// Responses API-specific capability (spec §4.7).
func (p OpenAIResponsesProvider) Background(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	it, err := p.client.StreamBackground(ctx, req)
	if err != nil {
		return nil, err
	}
	return &StreamIterator{next: it.Next, close: it.Close}, nil
}

// StartBackground creates a background response without opening an SSE
// connection, for callers that want to observe it via plain status
// polling (WaitBackground) instead of a resumable stream.
func (p OpenAIResponsesProvider) StartBackground(ctx context.Context, req llm.Request) (string, error) {
	return p.client.StartBackground(ctx, req)
}

// WaitBackground polls a background response created by StartBackground
// until it completes, fails, or is cancelled.
func (p OpenAIResponsesProvider) WaitBackground(ctx context.Context, responseID string) (*llm.GenerationResponse, error) {
	return p.client.WaitBackground(ctx, responseID)
}

// Cancel requests cancellation of a still-running background response.
func (p OpenAIResponsesProvider) Cancel(ctx context.Context, responseID string) error {
	return p.client.Cancel(ctx, responseID)
}

// Delete removes a stored background response.
func (p OpenAIResponsesProvider) Delete(ctx context.Context, responseID string) error {
	return p.client.Delete(ctx, responseID)
}

type googleProvider struct {
	client *google.Client
	log    llmkitlog.Logger
}

func (p googleProvider) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	return p.client.Generate(ctx, req)
}

func (p googleProvider) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	it, err := p.client.Stream(ctx, req)
	if err != nil {
		p.log.Log(llmkitlog.Error, "google stream start failed", llmkitlog.Field{Key: "error", Value: err})
		return nil, err
	}
	return &StreamIterator{next: it.Next, close: it.Close}, nil
}

var _ io.Closer = (*StreamIterator)(nil)
