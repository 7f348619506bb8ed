package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	internalhttp "github.com/harborwave/llmkit/pkg/internal/http"
	"github.com/harborwave/llmkit/pkg/internal/retry"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
	"github.com/harborwave/llmkit/pkg/providerutils"
	"github.com/harborwave/llmkit/pkg/sse"
)

const defaultBaseURL = "https://api.anthropic.com"

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	APIVersion  string   // defaults to "2023-06-01"
	BetaHeaders []string // sent as a comma-joined anthropic-beta header
	HTTPClient  *http.Client
	RetryConfig *retry.Config
}

// Client is the Anthropic Messages API provider.
type Client struct {
	http    *internalhttp.Client
	version string
	betas   []string
	retry   retry.Config
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = "2023-06-01"
	}

	headers := map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": version,
	}

	retryCfg := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryCfg = *cfg.RetryConfig
	}

	return &Client{
		http: internalhttp.NewClient(internalhttp.Config{
			BaseURL:    baseURL,
			Headers:    headers,
			HTTPClient: cfg.HTTPClient,
		}),
		version: version,
		betas:   cfg.BetaHeaders,
		retry:   retryCfg,
	}
}

// Name identifies this provider for error tagging and logging.
func (c *Client) Name() string { return "anthropic" }

func (c *Client) requestHeaders() map[string]string {
	if len(c.betas) == 0 {
		return nil
	}
	joined := ""
	for i, b := range c.betas {
		if i > 0 {
			joined += ","
		}
		joined += b
	}
	return map[string]string{"anthropic-beta": joined}
}

func (c *Client) buildBody(req llm.Request, stream bool) (map[string]interface{}, error) {
	system, rest := providerutils.SplitSystemMessages(req.Messages)

	messages := make([]map[string]interface{}, 0, len(rest))
	for _, m := range rest {
		blocks, err := providerutils.AnthropicContent(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, map[string]interface{}{
			"role":    providerutils.AnthropicRole(m.Role),
			"content": blocks,
		})
	}

	body := map[string]interface{}{
		"model":      req.Model,
		"max_tokens": req.MaxTokens,
		"messages":   messages,
		"stream":     stream,
	}
	if system != "" {
		body["system"] = system
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]interface{}, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]interface{}{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.RawInputSchema.ToAny(),
			}
		}
		body["tools"] = tools
	}
	return body, nil
}

// Generate performs a single non-streaming request (stream:false) and
// decodes the single JSON response with the same field names the assembler
// expects in message_start/message_delta.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	body, err := c.buildBody(req, false)
	if err != nil {
		return nil, err
	}

	var resp *internalhttp.Response
	err = retry.Do(ctx, c.retry, func(ctx context.Context) error {
		r, doErr := c.http.Do(ctx, internalhttp.Request{
			Method:  http.MethodPost,
			Path:    "/v1/messages",
			Headers: c.requestHeaders(),
			Body:    body,
		})
		if doErr != nil {
			return llmerr.FromContext("anthropic", doErr)
		}
		if r.StatusCode >= 400 {
			return llmerr.FromHTTPStatus("anthropic", r.StatusCode, "", string(r.Body))
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	asm := New()
	if err := asm.ingestNonStreamingBody(resp.Body); err != nil {
		return nil, err
	}
	snap := asm.Snapshot()
	return &snap, nil
}

func (a *Assembler) ingestNonStreamingBody(raw []byte) error {
	var msg struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Content []struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return llmerr.New(llmerr.KindParsing, "anthropic", "invalid response body", err)
	}

	a.responseID = msg.ID
	a.model = msg.Model
	a.inputTokens = intp(msg.Usage.InputTokens)
	a.outputTokens = intp(msg.Usage.OutputTokens)
	a.stopReason = msg.StopReason

	for _, c := range msg.Content {
		switch c.Type {
		case "text":
			a.response.WriteString(c.Text)
		case "tool_use":
			params := map[string]interface{}{}
			if len(c.Input) > 0 {
				var v interface{}
				if json.Unmarshal(c.Input, &v) == nil {
					if m, ok := v.(map[string]interface{}); ok {
						params = m
					}
				}
			}
			a.upsertToolCall(c.ID, c.Name, params)
		}
	}
	a.terminal = true
	return nil
}

// StreamIterator yields successive GenerationResponse snapshots from one
// Anthropic streaming turn.
type StreamIterator struct {
	payloads *sse.DataPayloads
	asm      *Assembler
	closer   io.Closer
}

// Next advances the stream by one SSE event and returns the latest
// snapshot. It returns io.EOF once the stream ends cleanly.
func (s *StreamIterator) Next(ctx context.Context) (*llm.GenerationResponse, error) {
	if s.asm.Done() {
		return nil, io.EOF
	}
	payload, ok := s.payloads.Next()
	if !ok {
		if err := s.payloads.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				// spec: a cancelled stream completes cleanly with the last
				// assembled snapshot rather than raising.
				s.asm.terminal = true
				snap := s.asm.Snapshot()
				return &snap, nil
			}
			return nil, llmerr.FromContext("anthropic", err)
		}
		return nil, io.EOF
	}
	if err := s.asm.HandleEvent(payload); err != nil {
		return nil, err
	}
	snap := s.asm.Snapshot()
	return &snap, nil
}

// Close releases the underlying HTTP response body.
func (s *StreamIterator) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Stream issues a streaming Messages request and returns an iterator over
// successive snapshots.
func (c *Client) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	body, err := c.buildBody(req, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.http.DoStream(ctx, internalhttp.Request{
		Method:  http.MethodPost,
		Path:    "/v1/messages",
		Headers: c.requestHeaders(),
		Body:    body,
	})
	if err != nil {
		return nil, llmerr.FromContext("anthropic", err)
	}

	return &StreamIterator{
		payloads: sse.NewDataPayloads(httpResp.Body),
		asm:      New(),
		closer:   httpResp.Body,
	}, nil
}
