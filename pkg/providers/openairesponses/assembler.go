// Package openairesponses implements the OpenAI Responses API provider: the
// typed SSE event dispatch and item-id-keyed tool-call accumulator that
// build successive llm.GenerationResponse snapshots (spec §4.7), the
// request builder, and the background-mode polling/resume lifecycle.
package openairesponses

import (
	"encoding/json"
	"strings"

	"github.com/harborwave/llmkit/pkg/jsonpartial"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
)

type toolCallAccum struct {
	callID  string
	name    string
	argsBuf *jsonpartial.Buffer
	final   bool // response.function_call_arguments.done observed
}

// Assembler is the per-turn Responses API streaming state machine. Not
// safe for concurrent use.
type Assembler struct {
	responseID string
	model      string

	response  strings.Builder
	reasoning strings.Builder
	notes     strings.Builder

	toolCalls    map[string]*toolCallAccum // keyed by item id
	toolOrder    []string

	sequence     int // last observed sequence_number, for resumable reconnects
	finishReason string
	inputTokens  *int
	outputTokens *int
	totalTokens  *int

	terminal bool
	err      error
}

// New returns a fresh Assembler.
func New() *Assembler {
	return &Assembler{toolCalls: map[string]*toolCallAccum{}}
}

// LastSequence returns the highest sequence_number observed so far, used to
// build a `starting_after` resume query on reconnect.
func (a *Assembler) LastSequence() int { return a.sequence }

// ResponseID returns the response id seen in response.created, once
// observed.
func (a *Assembler) ResponseID() string { return a.responseID }

type event struct {
	Type           string          `json:"type"`
	SequenceNumber int             `json:"sequence_number"`
	ItemID         string          `json:"item_id"`
	Delta          string          `json:"delta"`
	Arguments      string          `json:"arguments"`
	Item           *outputItem     `json:"item"`
	Response       *responseObject `json:"response"`
	Error          *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type outputItem struct {
	ID     string `json:"id"`
	Type   string `json:"type"` // "function_call", "message", "reasoning"
	CallID string `json:"call_id"`
	Name   string `json:"name"`
}

type responseObject struct {
	ID                string `json:"id"`
	Model             string `json:"model"`
	Status            string `json:"status"` // "completed", "failed", "cancelled", "queued", "in_progress"
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	// Output carries the full item list, used by the non-streaming
	// background poll (spec §4.7 "Background non-stream") where no deltas
	// were ever observed to accumulate response/reasoning/tool-call text.
	Output []struct {
		Type    string `json:"type"`
		CallID  string `json:"call_id"`
		Name    string `json:"name"`
		Arguments string `json:"arguments"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// IngestFinal rebuilds a snapshot directly from a full (non-streamed)
// response object, as returned by GET /v1/responses/{id} once status has
// left queued/in_progress. Used by the background non-stream poll.
func (a *Assembler) IngestFinal(raw []byte) error {
	var r responseObject
	if err := json.Unmarshal(raw, &r); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "openai-responses", "malformed background response body", err)
		return a.err
	}
	for _, item := range r.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				if c.Type == "output_text" {
					a.response.WriteString(c.Text)
				}
			}
		case "function_call":
			a.toolCalls[item.CallID] = &toolCallAccum{callID: item.CallID, name: item.Name, argsBuf: jsonpartial.NewBuffer(), final: true}
			a.toolCalls[item.CallID].argsBuf.Append(item.Arguments)
			a.toolOrder = append(a.toolOrder, item.CallID)
		}
	}
	a.finalizeFromResponse(&r)
	a.terminal = true
	return nil
}

// HandleEvent decodes one typed SSE data payload and applies it to the
// running snapshot.
func (a *Assembler) HandleEvent(raw string) error {
	if a.terminal {
		return nil
	}

	var ev event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "openai-responses", "malformed stream event", err)
		return a.err
	}
	if ev.SequenceNumber > a.sequence {
		a.sequence = ev.SequenceNumber
	}

	switch ev.Type {
	case "response.created":
		if ev.Response != nil {
			a.responseID = ev.Response.ID
			a.model = ev.Response.Model
		}
	case "response.output_item.added":
		if ev.Item != nil && ev.Item.Type == "function_call" {
			a.toolCalls[ev.Item.ID] = &toolCallAccum{
				callID:  ev.Item.CallID,
				name:    ev.Item.Name,
				argsBuf: jsonpartial.NewBuffer(),
			}
			a.toolOrder = append(a.toolOrder, ev.Item.ID)
		}
	case "response.output_text.delta":
		a.response.WriteString(ev.Delta)
	case "response.reasoning.delta", "response.reasoning_summary_text.delta":
		a.reasoning.WriteString(ev.Delta)
	case "response.function_call_arguments.delta":
		if acc, ok := a.toolCalls[ev.ItemID]; ok {
			acc.argsBuf.Append(ev.Delta)
		}
	case "response.function_call_arguments.done":
		// The done event's Arguments field carries the authoritative full
		// JSON string; it supersedes whatever the streamed deltas summed to.
		if acc, ok := a.toolCalls[ev.ItemID]; ok && ev.Arguments != "" {
			acc.argsBuf = jsonpartial.NewBuffer()
			acc.argsBuf.Append(ev.Arguments)
			acc.final = true
		}
	case "response.completed":
		a.finalizeFromResponse(ev.Response)
		a.terminal = true
	case "response.incomplete":
		a.finalizeFromResponse(ev.Response)
		a.terminal = true
	case "response.failed":
		if ev.Response != nil && ev.Response.Error != nil {
			a.err = llmerr.New(llmerr.KindServerError, "openai-responses", ev.Response.Error.Message, nil)
		} else {
			a.err = llmerr.New(llmerr.KindServerError, "openai-responses", "response failed", nil)
		}
		a.terminal = true
		return a.err
	case "error":
		if ev.Error != nil {
			a.err = llmerr.New(llmerr.KindServerError, "openai-responses", ev.Error.Message, nil)
		} else {
			a.err = llmerr.New(llmerr.KindServerError, "openai-responses", "stream error", nil)
		}
		a.terminal = true
		return a.err
	}
	return nil
}

func (a *Assembler) finalizeFromResponse(r *responseObject) {
	if r == nil {
		return
	}
	if r.ID != "" {
		a.responseID = r.ID
	}
	if r.Model != "" {
		a.model = r.Model
	}
	if r.IncompleteDetails != nil {
		a.finishReason = r.IncompleteDetails.Reason
	} else if a.finishReason == "" {
		a.finishReason = "stop"
	}
	if r.Usage != nil {
		a.inputTokens = intp(r.Usage.InputTokens)
		a.outputTokens = intp(r.Usage.OutputTokens)
		a.totalTokens = intp(r.Usage.TotalTokens)
	}
}

// Err returns the terminal error, if any.
func (a *Assembler) Err() error { return a.err }

// Done reports whether response.completed/incomplete/failed (or an error
// event) has been observed.
func (a *Assembler) Done() bool { return a.terminal }

// Snapshot returns the current accumulated GenerationResponse.
func (a *Assembler) Snapshot() llm.GenerationResponse {
	calls := make([]llm.ToolCall, 0, len(a.toolOrder))
	for _, itemID := range a.toolOrder {
		acc := a.toolCalls[itemID]
		params := map[string]interface{}{}
		if v, ok := acc.argsBuf.TryParse(); ok {
			params = v.ToMap()
		} else if acc.final {
			// function_call_arguments.done gave us its authoritative
			// Arguments string and it still didn't parse: surface the
			// failure instead of silently showing a stale or empty call.
			params = map[string]interface{}{"_parseError": "could not parse function call arguments"}
			if raw := acc.argsBuf.Raw(); raw != "" {
				params["_rawArguments"] = raw
			}
		} else if last, hasLast := acc.argsBuf.LastGood(); hasLast {
			params = last.ToMap()
		}
		id := acc.callID
		if id == "" {
			id = itemID
		}
		calls = append(calls, llm.ToolCall{Name: acc.name, ID: id, Parameters: params})
	}

	var finish llm.FinishReason
	switch a.finishReason {
	case "stop":
		finish = llm.FinishStop
	case "max_output_tokens":
		finish = llm.FinishMaxTokens
	case "":
		// response not yet finished
	default:
		finish = llm.FinishOther
	}
	if len(calls) > 0 && finish == llm.FinishStop {
		finish = llm.FinishToolUse
	}

	return llm.GenerationResponse{
		Texts: llm.Texts{
			Response:  a.response.String(),
			Reasoning: a.reasoning.String(),
			Notes:     a.notes.String(),
		},
		ToolCalls: calls,
		Metadata: &llm.Metadata{
			ResponseID:   a.responseID,
			Model:        a.model,
			FinishReason: finish,
			InputTokens:  a.inputTokens,
			OutputTokens: a.outputTokens,
			TotalTokens:  a.totalTokens,
		},
	}
}

func intp(v int) *int { return &v }
