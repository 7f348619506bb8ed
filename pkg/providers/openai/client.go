package openai

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

const defaultBaseURL = "https://api.openai.com"

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	Organization string
	HTTPClient  *http.Client
	RetryConfig *retry.Config
}

// Client is the OpenAI Chat Completions provider.
type Client struct {
	http  *internalhttp.Client
	retry retry.Config
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	headers := map[string]string{
		"Authorization": "Bearer " + cfg.APIKey,
	}
	if cfg.Organization != "" {
		headers["OpenAI-Organization"] = cfg.Organization
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
		retry: retryCfg,
	}
}

// Name identifies this provider for error tagging and logging.
func (c *Client) Name() string { return "openai" }

func (c *Client) buildBody(req llm.Request, stream bool) map[string]interface{} {
	messages := make([]map[string]interface{}, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, providerutils.ChatCompletionsMessage(m)...)
	}

	body := map[string]interface{}{
		"model":    req.Model,
		"messages": messages,
		"stream":   stream,
	}
	if stream {
		body["stream_options"] = map[string]interface{}{"include_usage": true}
	}
	if req.MaxTokens > 0 {
		body["max_completion_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]interface{}, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  providerutils.ToStrictSchema(t.RawInputSchema).ToAny(),
					"strict":      true,
				},
			}
		}
		body["tools"] = tools
	}
	return body
}

// Generate performs a single non-streaming request.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	body := c.buildBody(req, false)

	var resp *internalhttp.Response
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		r, doErr := c.http.Do(ctx, internalhttp.Request{
			Method: http.MethodPost,
			Path:   "/v1/chat/completions",
			Body:   body,
		})
		if doErr != nil {
			return llmerr.FromContext("openai", doErr)
		}
		if r.StatusCode >= 400 {
			return llmerr.FromHTTPStatus("openai", r.StatusCode, "", string(r.Body))
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	var respBody struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(resp.Body, &respBody); err != nil {
		return nil, llmerr.New(llmerr.KindParsing, "openai", "invalid response body", err)
	}

	asm := New()
	asm.responseID = respBody.ID
	asm.model = respBody.Model
	asm.inputTokens = intp(respBody.Usage.PromptTokens)
	asm.outputTokens = intp(respBody.Usage.CompletionTokens)
	asm.totalTokens = intp(respBody.Usage.TotalTokens)
	if len(respBody.Choices) > 0 {
		ch := respBody.Choices[0]
		asm.response.WriteString(ch.Message.Content)
		asm.finishReason = ch.FinishReason
		for i, tc := range ch.Message.ToolCalls {
			var params map[string]interface{}
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &params)
			asm.accumulateToolCall(i, tc.ID, tc.Function.Name, "")
			asm.toolCalls[i].argsBuf.Append(tc.Function.Arguments)
		}
	}
	asm.terminal = true

	snap := asm.Snapshot()
	return &snap, nil
}

// StreamIterator yields successive GenerationResponse snapshots from one
// Chat Completions streaming turn.
type StreamIterator struct {
	payloads *sse.DataPayloads
	asm      *Assembler
	closer   io.Closer
}

// Next advances the stream by one SSE event and returns the latest
// snapshot, or io.EOF once the stream ends cleanly.
func (s *StreamIterator) Next(ctx context.Context) (*llm.GenerationResponse, error) {
	if s.asm.Done() {
		return nil, io.EOF
	}
	payload, ok := s.payloads.Next()
	if !ok {
		if err := s.payloads.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				s.asm.terminal = true
				snap := s.asm.Snapshot()
				return &snap, nil
			}
			return nil, llmerr.FromContext("openai", err)
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

// Stream issues a streaming Chat Completions request and returns an
// iterator over successive snapshots.
func (c *Client) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	body := c.buildBody(req, true)

	httpResp, err := c.http.DoStream(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   "/v1/chat/completions",
		Body:   body,
	})
	if err != nil {
		return nil, llmerr.FromContext("openai", err)
	}

	return &StreamIterator{
		payloads: sse.NewDataPayloads(httpResp.Body),
		asm:      New(),
		closer:   httpResp.Body,
	}, nil
}
