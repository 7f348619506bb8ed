// Package openai implements the OpenAI Chat Completions provider: the
// streaming state machine that accumulates delta.content,
// delta.reasoning_content, and index-keyed delta.tool_calls[] fragments
// into successive llm.GenerationResponse snapshots (spec §4.6), plus the
// request builder and Provider wiring.
package openai

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/harborwave/llmkit/pkg/jsonpartial"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
	"github.com/harborwave/llmkit/pkg/providerutils"
)

type toolCallAccum struct {
	id      string
	name    string
	argsBuf *jsonpartial.Buffer
}

// Assembler is the per-turn Chat Completions streaming state machine. Not
// safe for concurrent use.
type Assembler struct {
	responseID string
	model      string

	response  strings.Builder
	reasoning strings.Builder
	citations []string

	toolCalls   map[int]*toolCallAccum
	toolOrder   []int

	finishReason string
	inputTokens  *int
	outputTokens *int
	totalTokens  *int
	reasoningTok *int

	terminal bool
	err      error
}

// New returns a fresh Assembler.
func New() *Assembler {
	return &Assembler{toolCalls: map[int]*toolCallAccum{}}
}

type chunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content         *string `json:"content"`
			ReasoningContent *string `json:"reasoning_content"`
			ToolCalls       []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string         `json:"finish_reason"`
		Citations    []string        `json:"citations"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens            int `json:"prompt_tokens"`
		CompletionTokens        int `json:"completion_tokens"`
		TotalTokens             int `json:"total_tokens"`
		CompletionTokensDetails *struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
}

// HandleEvent decodes one SSE data payload and applies it to the running
// snapshot. The literal string "[DONE]" (already filtered by pkg/sse's
// DataPayloads, but tolerated here too) marks a clean terminal state.
func (a *Assembler) HandleEvent(raw string) error {
	if a.terminal {
		return nil
	}
	if raw == "[DONE]" {
		a.terminal = true
		return nil
	}

	var c chunk
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "openai", "malformed stream chunk", err)
		return a.err
	}

	if c.ID != "" {
		a.responseID = c.ID
	}
	if c.Model != "" {
		a.model = c.Model
	}

	for _, choice := range c.Choices {
		if choice.Delta.Content != nil {
			a.response.WriteString(*choice.Delta.Content)
		}
		if choice.Delta.ReasoningContent != nil {
			a.reasoning.WriteString(*choice.Delta.ReasoningContent)
		}
		a.citations = append(a.citations, choice.Citations...)
		for _, tc := range choice.Delta.ToolCalls {
			a.accumulateToolCall(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
		}
		if choice.FinishReason != nil {
			a.finishReason = *choice.FinishReason
			a.terminal = true
		}
	}

	if c.Usage != nil {
		a.inputTokens = intp(c.Usage.PromptTokens)
		a.outputTokens = intp(c.Usage.CompletionTokens)
		a.totalTokens = intp(c.Usage.TotalTokens)
		if c.Usage.CompletionTokensDetails != nil && c.Usage.CompletionTokensDetails.ReasoningTokens > 0 {
			a.reasoningTok = intp(c.Usage.CompletionTokensDetails.ReasoningTokens)
		}
	}
	return nil
}

// accumulateToolCall is keyed by the delta's positional index, the only
// stable correlation Chat Completions provides while a call is still
// streaming — id and name typically arrive once, on the first fragment for
// that index, with arguments trickling in afterward.
func (a *Assembler) accumulateToolCall(index int, id, name, argsFragment string) {
	acc, ok := a.toolCalls[index]
	if !ok {
		acc = &toolCallAccum{argsBuf: jsonpartial.NewBuffer()}
		a.toolCalls[index] = acc
		a.toolOrder = append(a.toolOrder, index)
	}
	if id != "" {
		acc.id = id
	}
	if name != "" {
		acc.name = name
	}
	if argsFragment != "" {
		acc.argsBuf.Append(argsFragment)
	}
}

// Err returns the terminal error, if any.
func (a *Assembler) Err() error { return a.err }

// Done reports whether a finish_reason has been observed (or [DONE] seen).
func (a *Assembler) Done() bool { return a.terminal }

// Snapshot returns the current accumulated GenerationResponse.
func (a *Assembler) Snapshot() llm.GenerationResponse {
	indices := append([]int{}, a.toolOrder...)
	sort.Ints(indices)

	calls := make([]llm.ToolCall, 0, len(indices))
	for _, idx := range indices {
		acc := a.toolCalls[idx]
		id := acc.id
		if id == "" {
			id = strconv.Itoa(idx)
		}
		params := map[string]interface{}{}
		if v, ok := acc.argsBuf.TryParse(); ok {
			params = v.ToMap()
		} else if last, hasLast := acc.argsBuf.LastGood(); hasLast {
			params = last.ToMap()
		}
		calls = append(calls, llm.ToolCall{Name: acc.name, ID: id, Parameters: params})
	}

	var notes string
	if len(a.citations) > 0 {
		lines := make([]string, len(a.citations))
		for i, c := range a.citations {
			lines[i] = strconv.Itoa(i+1) + ". " + c
		}
		notes = strings.Join(lines, "\n")
	}

	var finish llm.FinishReason
	if a.finishReason != "" {
		finish = llm.MapFinishReason(a.finishReason, providerutils.ChatCompletionsFinishReasons)
	}

	return llm.GenerationResponse{
		Texts: llm.Texts{
			Response:  a.response.String(),
			Reasoning: a.reasoning.String(),
			Notes:     notes,
		},
		ToolCalls: calls,
		Metadata: &llm.Metadata{
			ResponseID:      a.responseID,
			Model:           a.model,
			FinishReason:    finish,
			InputTokens:     a.inputTokens,
			OutputTokens:    a.outputTokens,
			TotalTokens:     a.totalTokens,
			ReasoningTokens: a.reasoningTok,
		},
	}
}

func intp(v int) *int { return &v }
