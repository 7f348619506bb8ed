// Package google implements the Gemini streamGenerateContent provider: the
// streaming state machine that turns successive candidate snapshots into
// llm.GenerationResponse snapshots (spec §4.8), plus the request builder
// and Provider wiring.
package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
	"github.com/harborwave/llmkit/pkg/providerutils"
)

// pendingToolCall tracks a functionCall part awaiting a freshly-minted id;
// Gemini itself never assigns one.
type pendingToolCall struct {
	id               string
	name             string
	args             map[string]interface{}
	thoughtSignature string
}

// Assembler is the per-turn Gemini streaming state machine. Not safe for
// concurrent use.
type Assembler struct {
	model string

	response  strings.Builder
	reasoning strings.Builder
	notes     []string

	toolCalls []pendingToolCall

	finishReason  string
	failureReason string // SAFETY/RECITATION: surfaced as an error, not a FinishReason
	inputTokens   *int
	outputTokens  *int
	totalTokens   *int

	idGen func() string

	// httpClient resolves groundingChunks[].web.uri redirects via HEAD
	// request; nil defaults to http.DefaultClient.
	httpClient *http.Client

	terminal bool
	err      error
}

// New returns a fresh Assembler.
func New() *Assembler {
	return &Assembler{idGen: func() string { return uuid.NewString() }}
}

type part struct {
	Text             string          `json:"text"`
	Thought          bool            `json:"thought"`
	ThoughtSignature string          `json:"thoughtSignature"`
	FunctionCall     *functionCall   `json:"functionCall"`
	ExecutableCode   *executableCode `json:"executableCode"`
	CodeExecResult   *codeExecResult `json:"codeExecutionResult"`
}

type functionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type executableCode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type codeExecResult struct {
	Outcome string `json:"outcome"`
	Output  string `json:"output"`
}

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web"`
}

type candidate struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
	FinishReason      string `json:"finishReason"`
	GroundingMetadata *struct {
		GroundingChunks []groundingChunk `json:"groundingChunks"`
	} `json:"groundingMetadata"`
}

type promptFeedback struct {
	BlockReason        string `json:"blockReason"`
	BlockReasonMessage string `json:"blockReasonMessage"`
}

type response struct {
	ModelVersion   string          `json:"modelVersion"`
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
	UsageMetadata  *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// HandleEvent decodes one SSE data payload — a full candidate snapshot
// object, per streamGenerateContent's alt=sse framing — and folds its
// content into the running snapshot.
func (a *Assembler) HandleEvent(raw string) error {
	if a.terminal {
		return nil
	}

	var r response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "google", "malformed stream chunk", err)
		return a.err
	}

	if r.ModelVersion != "" {
		a.model = r.ModelVersion
	}

	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		msg := r.PromptFeedback.BlockReasonMessage
		if msg == "" {
			msg = "prompt blocked: " + r.PromptFeedback.BlockReason
		}
		a.failureReason = r.PromptFeedback.BlockReason
		a.err = llmerr.New(llmerr.KindServerError, "google", msg, nil)
		a.terminal = true
		return a.err
	}

	if len(r.Candidates) > 0 {
		c := r.Candidates[0]
		for _, p := range c.Content.Parts {
			a.applyPart(p)
		}
		if c.GroundingMetadata != nil {
			a.notes = append(a.notes, renderGrounding(a.httpClient, c.GroundingMetadata.GroundingChunks))
		}
		if c.FinishReason != "" {
			switch c.FinishReason {
			case "SAFETY", "RECITATION":
				a.failureReason = c.FinishReason
				a.err = llmerr.New(llmerr.KindServerError, "google", "generation blocked: "+c.FinishReason, nil)
				a.terminal = true
				return a.err
			default:
				a.finishReason = c.FinishReason
				a.terminal = true
			}
		}
	}

	if r.UsageMetadata != nil {
		a.inputTokens = intp(r.UsageMetadata.PromptTokenCount)
		a.outputTokens = intp(r.UsageMetadata.CandidatesTokenCount)
		a.totalTokens = intp(r.UsageMetadata.TotalTokenCount)
	}
	return nil
}

func (a *Assembler) applyPart(p part) {
	switch {
	case p.FunctionCall != nil:
		a.toolCalls = append(a.toolCalls, pendingToolCall{
			id:               a.idGen(),
			name:             p.FunctionCall.Name,
			args:             p.FunctionCall.Args,
			thoughtSignature: p.ThoughtSignature,
		})
	case p.ExecutableCode != nil:
		lang := strings.ToLower(p.ExecutableCode.Language)
		a.notes = append(a.notes, fmt.Sprintf("```%s\n%s\n```", lang, p.ExecutableCode.Code))
	case p.CodeExecResult != nil:
		a.notes = append(a.notes, fmt.Sprintf("```\n%s\n```", p.CodeExecResult.Output))
	case p.Thought:
		a.reasoning.WriteString(p.Text)
	default:
		a.response.WriteString(p.Text)
	}
}

// renderGrounding resolves each chunk's web.uri by following its redirects
// (parallelised across chunks) and builds a deduplicated, sorted bulleted
// markdown list of the resulting sources.
func renderGrounding(client *http.Client, chunks []groundingChunk) string {
	if client == nil {
		client = http.DefaultClient
	}

	type resolved struct {
		uri   string
		title string
	}
	results := make([]resolved, len(chunks))
	var wg sync.WaitGroup
	for i, c := range chunks {
		if c.Web == nil || c.Web.URI == "" {
			continue
		}
		wg.Add(1)
		go func(i int, c groundingChunk) {
			defer wg.Done()
			results[i] = resolved{uri: resolveRedirect(client, c.Web.URI), title: c.Web.Title}
		}(i, c)
	}
	wg.Wait()

	seen := map[string]string{}
	for _, r := range results {
		if r.uri == "" {
			continue
		}
		seen[r.uri] = r.title
	}
	uris := make([]string, 0, len(seen))
	for uri := range seen {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	lines := make([]string, 0, len(uris))
	for _, uri := range uris {
		title := seen[uri]
		if title == "" {
			title = uri
		}
		lines = append(lines, fmt.Sprintf("- [%s](%s)", title, uri))
	}
	return strings.Join(lines, "\n")
}

// resolveRedirect issues a HEAD request to follow uri's redirect chain,
// returning the final URL. On an ATS/TLS transport failure, it falls back
// to extracting the original URL from the returned *url.Error rather than
// dropping the citation.
func resolveRedirect(client *http.Client, uri string) string {
	req, err := http.NewRequest(http.MethodHead, uri, nil)
	if err != nil {
		return uri
	}
	resp, err := client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.URL != "" {
			return urlErr.URL
		}
		return uri
	}
	defer resp.Body.Close()
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return uri
}

// Err returns the terminal error, if any.
func (a *Assembler) Err() error { return a.err }

// Done reports whether a finishReason (or a SAFETY/RECITATION failure) has
// been observed.
func (a *Assembler) Done() bool { return a.terminal }

// Snapshot returns the current accumulated GenerationResponse.
func (a *Assembler) Snapshot() llm.GenerationResponse {
	calls := make([]llm.ToolCall, len(a.toolCalls))
	for i, tc := range a.toolCalls {
		calls[i] = llm.ToolCall{
			Name:       tc.name,
			ID:         tc.id,
			Parameters: tc.args,
		}
		if tc.thoughtSignature != "" {
			calls[i].ProviderMetadata = map[string]interface{}{"thoughtSignature": tc.thoughtSignature}
		}
	}

	var finish llm.FinishReason
	if a.finishReason != "" {
		finish = llm.MapFinishReason(a.finishReason, providerutils.GeminiFinishReasons)
	}

	return llm.GenerationResponse{
		Texts: llm.Texts{
			Response:  a.response.String(),
			Reasoning: a.reasoning.String(),
			Notes:     strings.Join(a.notes, "\n\n"),
		},
		ToolCalls: calls,
		Metadata: &llm.Metadata{
			Model:        a.model,
			FinishReason: finish,
			InputTokens:  a.inputTokens,
			OutputTokens: a.outputTokens,
			TotalTokens:  a.totalTokens,
		},
	}
}

func intp(v int) *int { return &v }
