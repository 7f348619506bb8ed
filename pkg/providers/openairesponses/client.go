package openairesponses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	internalhttp "github.com/harborwave/llmkit/pkg/internal/http"
	"github.com/harborwave/llmkit/pkg/internal/polling"
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
	HTTPClient  *http.Client
	RetryConfig *retry.Config
	// PollInterval is the wait before a background stream reconnects after
	// its SSE connection drops, and the interval at which WaitBackground
	// polls a background response. Defaults to 2 seconds.
	PollInterval time.Duration
}

// Client is the OpenAI Responses API provider, including its background
// (asynchronous, resumable) response mode.
type Client struct {
	http  *internalhttp.Client
	retry retry.Config
	poll  time.Duration
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	retryCfg := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryCfg = *cfg.RetryConfig
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}

	return &Client{
		http: internalhttp.NewClient(internalhttp.Config{
			BaseURL:    baseURL,
			Headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
			HTTPClient: cfg.HTTPClient,
		}),
		retry: retryCfg,
		poll:  poll,
	}
}

// Name identifies this provider for error tagging and logging.
func (c *Client) Name() string { return "openai-responses" }

func (c *Client) buildBody(req llm.Request, stream, background bool) map[string]interface{} {
	system, rest := providerutils.SplitSystemMessages(req.Messages)

	input := make([]map[string]interface{}, 0, len(rest))
	for _, m := range rest {
		input = append(input, providerutils.ResponsesInputItems(m)...)
	}

	body := map[string]interface{}{
		"model":  req.Model,
		"input":  input,
		"stream": stream,
	}
	if system != "" {
		body["instructions"] = system
	}
	if req.MaxTokens > 0 {
		body["max_output_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if background {
		body["background"] = true
		body["store"] = true
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]interface{}, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]interface{}{
				"type":        "function",
				"name":        t.Name,
				"description": t.Description,
				"parameters":  providerutils.ToStrictSchema(t.RawInputSchema).ToAny(),
			}
		}
		body["tools"] = tools
	}
	return body
}

// Generate opens a foreground streaming request, drains it, and returns the
// last snapshot.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	it, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var last *llm.GenerationResponse
	for {
		snap, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		last = snap
	}
	return last, nil
}

// StreamIterator yields successive GenerationResponse snapshots from one
// Responses API turn. In background mode (StreamBackground) it reconnects
// transparently (with `starting_after`) if the underlying SSE connection
// drops mid-stream; a foreground stream does not reconnect.
type StreamIterator struct {
	client *Client
	req    llm.Request

	payloads   *sse.DataPayloads
	asm        *Assembler
	closer     io.Closer
	responseID string
	background bool
}

// Next advances the stream by one SSE event and returns the latest
// snapshot, or io.EOF once the stream ends cleanly. In background mode a
// dropped connection is reconnected transparently; in foreground mode a
// read error is returned.
func (s *StreamIterator) Next(ctx context.Context) (*llm.GenerationResponse, error) {
	for {
		if s.asm.Done() {
			return nil, io.EOF
		}
		if s.payloads == nil {
			if err := s.reconnect(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return s.cancelledSnapshot()
				}
				return nil, err
			}
		}

		payload, ok := s.payloads.Next()
		if !ok {
			err := s.payloads.Err()
			s.payloads = nil
			if err != nil && errors.Is(err, context.Canceled) {
				return s.cancelledSnapshot()
			}
			if err == nil {
				// Clean disconnect before completion: the background
				// response is still running server-side; resume from the
				// last sequence number observed.
				if s.background && !s.asm.Done() {
					if waitErr := s.waitBeforeReconnect(ctx); waitErr != nil {
						if errors.Is(waitErr, context.Canceled) {
							return s.cancelledSnapshot()
						}
						return nil, waitErr
					}
					continue
				}
				return nil, io.EOF
			}
			if !s.background {
				return nil, llmerr.FromContext(s.client.Name(), err)
			}
			if waitErr := s.waitBeforeReconnect(ctx); waitErr != nil {
				if errors.Is(waitErr, context.Canceled) {
					return s.cancelledSnapshot()
				}
				return nil, waitErr
			}
			continue // transient drop: reconnect and resume
		}

		if err := s.asm.HandleEvent(payload); err != nil {
			return nil, err
		}
		if id := s.asm.ResponseID(); id != "" {
			s.responseID = id
		}
		snap := s.asm.Snapshot()
		return &snap, nil
	}
}

// cancelledSnapshot completes the stream cleanly on ctx cancellation,
// yielding whatever was assembled so far rather than raising: spec's
// cancellation contract treats a cancelled stream like any other clean
// completion, not a failure.
func (s *StreamIterator) cancelledSnapshot() (*llm.GenerationResponse, error) {
	s.asm.terminal = true
	snap := s.asm.Snapshot()
	return &snap, nil
}

// waitBeforeReconnect pauses for the configured poll interval before a
// background-mode resume, so a dropped connection doesn't spin reconnects
// hot against a response that is still generating server-side.
func (s *StreamIterator) waitBeforeReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.client.poll):
		return nil
	}
}

func (s *StreamIterator) reconnect(ctx context.Context) error {
	path := fmt.Sprintf("/v1/responses/%s?stream=true", s.responseID)
	if s.asm.LastSequence() > 0 {
		path += fmt.Sprintf("&starting_after=%d", s.asm.LastSequence())
	}
	httpResp, err := s.client.http.DoStream(ctx, internalhttp.Request{
		Method:  http.MethodGet,
		Path:    path,
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return llmerr.FromContext(s.client.Name(), err)
	}
	s.payloads = sse.NewDataPayloads(httpResp.Body)
	s.closer = httpResp.Body
	return nil
}

// Close releases the underlying HTTP response body.
func (s *StreamIterator) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Stream issues a streaming Responses request over a single foreground SSE
// connection. Resumable background execution is available through
// StreamBackground.
func (c *Client) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	body := c.buildBody(req, true, false)
	httpResp, err := c.http.DoStream(ctx, internalhttp.Request{
		Method:  http.MethodPost,
		Path:    "/v1/responses",
		Body:    body,
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return nil, llmerr.FromContext(c.Name(), err)
	}
	return &StreamIterator{
		client:   c,
		req:      req,
		payloads: sse.NewDataPayloads(httpResp.Body),
		asm:      New(),
		closer:   httpResp.Body,
	}, nil
}

// StreamBackground creates a background:true/store:true response and
// returns a StreamIterator that transparently reconnects with
// starting_after on any SSE drop, per the Responses API's resumable
// background-mode contract.
func (c *Client) StreamBackground(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	body := c.buildBody(req, true, true)
	httpResp, err := c.http.DoStream(ctx, internalhttp.Request{
		Method:  http.MethodPost,
		Path:    "/v1/responses",
		Body:    body,
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return nil, llmerr.FromContext(c.Name(), err)
	}

	it := &StreamIterator{
		client:     c,
		req:        req,
		payloads:   sse.NewDataPayloads(httpResp.Body),
		asm:        New(),
		closer:     httpResp.Body,
		background: true,
	}
	return it, nil
}

// StartBackground creates a background:true/store:true response without
// opening an SSE connection and returns its id, for callers that want to
// observe progress via plain status polling (spec §4.7 "Background
// non-stream") rather than a resumable SSE connection.
func (c *Client) StartBackground(ctx context.Context, req llm.Request) (string, error) {
	body := c.buildBody(req, false, true)
	var resp *internalhttp.Response
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		r, doErr := c.http.Do(ctx, internalhttp.Request{Method: http.MethodPost, Path: "/v1/responses", Body: body})
		if doErr != nil {
			return llmerr.FromContext(c.Name(), doErr)
		}
		if r.StatusCode >= 400 {
			return llmerr.FromHTTPStatus(c.Name(), r.StatusCode, "", string(r.Body))
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return "", llmerr.New(llmerr.KindParsing, c.Name(), "invalid background-create response body", err)
	}
	return created.ID, nil
}

// WaitBackground polls GET /v1/responses/{id} every c.poll until the
// response's status is completed, failed or cancelled, then rebuilds the final
// GenerationResponse from the returned response object.
func (c *Client) WaitBackground(ctx context.Context, responseID string) (*llm.GenerationResponse, error) {
	result, err := polling.PollForCompletion(ctx, func(ctx context.Context) (*polling.JobResult, error) {
		r, doErr := c.http.Do(ctx, internalhttp.Request{
			Method: http.MethodGet,
			Path:   fmt.Sprintf("/v1/responses/%s", responseID),
		})
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 400 {
			return nil, llmerr.FromHTTPStatus(c.Name(), r.StatusCode, "", string(r.Body))
		}
		var status struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(r.Body, &status); err != nil {
			return nil, err
		}
		switch status.Status {
		case "completed":
			return &polling.JobResult{Status: polling.JobStatusCompleted, Metadata: map[string]interface{}{"body": r.Body}}, nil
		case "failed":
			return &polling.JobResult{Status: polling.JobStatusFailed, Error: "background response failed"}, nil
		case "cancelled":
			return &polling.JobResult{Status: polling.JobStatusCancelled}, nil
		default:
			return &polling.JobResult{Status: polling.JobStatusProcessing}, nil
		}
	}, polling.PollOptions{
		PollIntervalMs: int(c.poll / time.Millisecond),
		// spec §5: background polls have no per-request deadline — only
		// ctx cancellation bounds this wait. PollForCompletion requires a
		// concrete timeout, so use a long one well past any real response.
		PollTimeoutMs: 24 * 60 * 60 * 1000,
	})

	if err != nil {
		if strings.Contains(err.Error(), "cancelled") {
			// spec §4.7: a cancelled background response "finishes cleanly" — no error.
			return &llm.GenerationResponse{}, nil
		}
		return nil, llmerr.FromContext(c.Name(), err)
	}

	asm := New()
	if raw, ok := result.Metadata["body"].([]byte); ok {
		if err := asm.IngestFinal(raw); err != nil {
			return nil, err
		}
	}
	snap := asm.Snapshot()
	return &snap, nil
}

// Cancel requests cancellation of a still-running background response.
func (c *Client) Cancel(ctx context.Context, responseID string) error {
	resp, err := c.http.Do(ctx, internalhttp.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v1/responses/%s/cancel", responseID),
	})
	if err != nil {
		return llmerr.FromContext(c.Name(), err)
	}
	if resp.StatusCode == http.StatusConflict {
		// spec §4.7: 409 ("already cancelled") is treated as success.
		return nil
	}
	if resp.StatusCode >= 400 {
		return llmerr.FromHTTPStatus(c.Name(), resp.StatusCode, "", string(resp.Body))
	}
	return nil
}

// Delete removes a stored background response.
func (c *Client) Delete(ctx context.Context, responseID string) error {
	resp, err := c.http.Do(ctx, internalhttp.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/v1/responses/%s", responseID),
	})
	if err != nil {
		return llmerr.FromContext(c.Name(), err)
	}
	if resp.StatusCode >= 400 {
		return llmerr.FromHTTPStatus(c.Name(), resp.StatusCode, "", string(resp.Body))
	}
	return nil
}
