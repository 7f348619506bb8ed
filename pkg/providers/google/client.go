package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	internalhttp "github.com/harborwave/llmkit/pkg/internal/http"
	"github.com/harborwave/llmkit/pkg/internal/retry"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
	"github.com/harborwave/llmkit/pkg/providerutils"
	"github.com/harborwave/llmkit/pkg/sse"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	HTTPClient  *http.Client
	RetryConfig *retry.Config
}

// Client is the Gemini streamGenerateContent provider.
type Client struct {
	http     *internalhttp.Client
	uploader *Uploader
	rawHTTP  *http.Client // shared with the assembler for grounding HEAD resolution
	apiKey   string
	retry    retry.Config
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
	rawHTTP := cfg.HTTPClient
	if rawHTTP == nil {
		rawHTTP = http.DefaultClient
	}

	return &Client{
		http: internalhttp.NewClient(internalhttp.Config{
			BaseURL:    baseURL,
			HTTPClient: cfg.HTTPClient,
		}),
		uploader: NewUploader(cfg.HTTPClient, baseURL, cfg.APIKey),
		rawHTTP:  rawHTTP,
		apiKey:   cfg.APIKey,
		retry:    retryCfg,
	}
}

// newAssembler returns a fresh Assembler wired to this client's HTTP client
// for grounding-metadata redirect resolution.
func (c *Client) newAssembler() *Assembler {
	asm := New()
	asm.httpClient = c.rawHTTP
	return asm
}

// Name identifies this provider for error tagging and logging.
func (c *Client) Name() string { return "google" }

func (c *Client) buildBody(req llm.Request) (map[string]interface{}, error) {
	system, rest := providerutils.SplitSystemMessages(req.Messages)

	contents := make([]map[string]interface{}, 0, len(rest))
	for _, m := range rest {
		parts, err := providerutils.GeminiParts(m, c.uploader)
		if err != nil {
			return nil, err
		}
		contents = append(contents, map[string]interface{}{
			"role":  providerutils.GeminiRole(m.Role),
			"parts": parts,
		})
	}

	body := map[string]interface{}{"contents": contents}
	if system != "" {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": system}},
		}
	}

	genConfig := map[string]interface{}{}
	if req.MaxTokens > 0 {
		genConfig["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		genConfig["temperature"] = *req.Temperature
	}
	if len(genConfig) > 0 {
		body["generationConfig"] = genConfig
	}

	if len(req.Tools) > 0 {
		decls := make([]map[string]interface{}, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  providerutils.ToGeminiSchema(t.RawInputSchema).ToAny(),
			}
		}
		body["tools"] = []map[string]interface{}{{"functionDeclarations": decls}}
	}
	return body, nil
}

// Generate performs a single non-streaming request against generateContent.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.GenerationResponse, error) {
	body, err := c.buildBody(req)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", req.Model, c.apiKey)

	var resp *internalhttp.Response
	err = retry.Do(ctx, c.retry, func(ctx context.Context) error {
		r, doErr := c.http.Do(ctx, internalhttp.Request{Method: http.MethodPost, Path: path, Body: body})
		if doErr != nil {
			return llmerr.FromContext("google", doErr)
		}
		if r.StatusCode >= 400 {
			return llmerr.FromHTTPStatus("google", r.StatusCode, "", string(r.Body))
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	asm := c.newAssembler()
	if err := asm.HandleEvent(string(resp.Body)); err != nil {
		return nil, err
	}
	asm.terminal = true
	snap := asm.Snapshot()
	return &snap, nil
}

// StreamIterator yields successive GenerationResponse snapshots from one
// streamGenerateContent turn.
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
			return nil, llmerr.FromContext("google", err)
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

// Stream issues a streamGenerateContent request (alt=sse) and returns an
// iterator over successive snapshots.
func (c *Client) Stream(ctx context.Context, req llm.Request) (*StreamIterator, error) {
	body, err := c.buildBody(req)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", req.Model, c.apiKey)

	httpResp, err := c.http.DoStream(ctx, internalhttp.Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    body,
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		return nil, llmerr.FromContext("google", err)
	}

	return &StreamIterator{
		payloads: sse.NewDataPayloads(httpResp.Body),
		asm:      c.newAssembler(),
		closer:   httpResp.Body,
	}, nil
}
