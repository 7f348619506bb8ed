// Package anthropic implements the Anthropic Messages provider: the
// streaming state machine that turns a typed Anthropic SSE event sequence
// into successive llm.GenerationResponse snapshots (spec §4.5), plus the
// request builder and Provider wiring.
package anthropic

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harborwave/llmkit/pkg/jsonpartial"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
	"github.com/harborwave/llmkit/pkg/providerutils"
)

// blockState tracks one in-progress content_block across its start/delta/
// stop lifecycle.
type blockState struct {
	blockType string // "text", "thinking", "tool_use", "server_tool_use", "*_tool_result"

	text      strings.Builder
	citations []json.RawMessage

	thinking  strings.Builder
	signature string

	toolUseID   string
	toolUseName string
	argsBuf     *jsonpartial.Buffer
	published   bool // tool call already surfaced to ToolCalls

	resultRaw json.RawMessage
}

// Assembler is the per-turn Anthropic streaming state machine. It is not
// safe for concurrent use — one Assembler serves one stream.
type Assembler struct {
	responseID string
	model      string

	blocks map[int]*blockState
	order  []int

	response  strings.Builder
	reasoning strings.Builder
	notes     []string

	toolCalls   []llm.ToolCall
	toolIndexOf map[string]int // call id -> index in toolCalls

	stopReason   string
	inputTokens  *int
	outputTokens *int
	cacheCreate  *int
	cacheRead    *int

	terminal bool
	err      error
}

// New returns a fresh Assembler ready to consume one turn's SSE events.
func New() *Assembler {
	return &Assembler{
		blocks:      map[int]*blockState{},
		toolIndexOf: map[string]int{},
	}
}

// event is the generic envelope every Anthropic SSE data payload decodes
// into; fields are interpreted per Type.
type event struct {
	Type  string          `json:"type"`
	Index *int            `json:"index"`
	Message json.RawMessage `json:"message"`
	ContentBlock json.RawMessage `json:"content_block"`
	Delta json.RawMessage `json:"delta"`
	Usage json.RawMessage `json:"usage"`
	Error json.RawMessage `json:"error"`
}

// HandleEvent decodes one SSE data payload (already stripped of the
// "data: " prefix by pkg/sse) and applies it to the running snapshot.
func (a *Assembler) HandleEvent(raw string) error {
	if a.terminal {
		return nil
	}

	var ev event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "malformed SSE event", err)
		return a.err
	}

	switch ev.Type {
	case "ping":
		// no-op
	case "message_start":
		return a.handleMessageStart(ev.Message)
	case "content_block_start":
		return a.handleContentBlockStart(ev.Index, ev.ContentBlock)
	case "content_block_delta":
		return a.handleContentBlockDelta(ev.Index, ev.Delta)
	case "content_block_stop":
		return a.handleContentBlockStop(ev.Index)
	case "message_delta":
		return a.handleMessageDelta(ev.Delta, ev.Usage)
	case "message_stop":
		a.terminal = true
	case "error":
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(ev.Error, &e)
		a.err = llmerr.New(llmerr.KindServerError, "anthropic", e.Message, nil)
		a.terminal = true
		return a.err
	default:
		// Unknown/forward-compatible event type: ignore.
	}
	return nil
}

func (a *Assembler) handleMessageStart(raw json.RawMessage) error {
	if raw == nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "message_start missing message", nil)
		return a.err
	}
	var msg struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage struct {
			InputTokens              int `json:"input_tokens"`
			OutputTokens             int `json:"output_tokens"`
			CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "invalid message_start", err)
		return a.err
	}
	a.responseID = msg.ID
	a.model = msg.Model
	a.inputTokens = intp(msg.Usage.InputTokens)
	a.outputTokens = intp(msg.Usage.OutputTokens)
	if msg.Usage.CacheCreationInputTokens > 0 {
		a.cacheCreate = intp(msg.Usage.CacheCreationInputTokens)
	}
	if msg.Usage.CacheReadInputTokens > 0 {
		a.cacheRead = intp(msg.Usage.CacheReadInputTokens)
	}
	return nil
}

func (a *Assembler) handleContentBlockStart(index *int, raw json.RawMessage) error {
	if index == nil || raw == nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "content_block_start out of order", nil)
		return a.err
	}
	var block struct {
		Type    string          `json:"type"`
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Text    string          `json:"text"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "invalid content_block", err)
		return a.err
	}

	bs := &blockState{blockType: block.Type}
	if block.Text != "" {
		bs.text.WriteString(block.Text)
	}
	if block.Type == "tool_use" || block.Type == "server_tool_use" {
		bs.toolUseID = block.ID
		bs.toolUseName = block.Name
		bs.argsBuf = jsonpartial.NewBuffer()
	}
	if strings.HasSuffix(block.Type, "_tool_result") {
		bs.resultRaw = decodeToolResultContent(block.Content)
	}

	a.blocks[*index] = bs
	a.order = append(a.order, *index)
	return nil
}

func (a *Assembler) handleContentBlockDelta(index *int, raw json.RawMessage) error {
	if index == nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "content_block_delta out of order", nil)
		return a.err
	}
	bs, ok := a.blocks[*index]
	if !ok {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "delta for unknown block", nil)
		return a.err
	}

	var delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		Signature   string `json:"signature"`
		PartialJSON string `json:"partial_json"`
		Citation    json.RawMessage `json:"citation"`
	}
	if err := json.Unmarshal(raw, &delta); err != nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "invalid content_block_delta", err)
		return a.err
	}

	switch delta.Type {
	case "text_delta":
		bs.text.WriteString(delta.Text)
		a.recomputeText()
	case "thinking_delta":
		bs.thinking.WriteString(delta.Thinking)
		a.recomputeText()
	case "citations_delta":
		if delta.Citation != nil {
			bs.citations = append(bs.citations, delta.Citation)
		}
	case "signature_delta":
		bs.signature = delta.Signature
	case "input_json_delta":
		if bs.argsBuf == nil {
			bs.argsBuf = jsonpartial.NewBuffer()
		}
		bs.argsBuf.Append(delta.PartialJSON)
		a.publishPartialToolCall(bs)
	}
	return nil
}

// publishPartialToolCall surfaces (or updates) the tool call for bs as soon
// as its argument buffer forms a parseable object, without waiting for
// content_block_stop — later fuller parses overwrite earlier partial ones,
// never losing previously-exposed keys before the block closes (spec §8
// law 2).
func (a *Assembler) publishPartialToolCall(bs *blockState) {
	if bs.argsBuf == nil {
		return
	}
	v, ok := bs.argsBuf.TryParse()
	if !ok {
		return
	}
	params := v.ToMap()
	a.upsertToolCall(bs.toolUseID, bs.toolUseName, params)
}

func (a *Assembler) upsertToolCall(id, name string, params map[string]interface{}) {
	if i, ok := a.toolIndexOf[id]; ok {
		a.toolCalls[i].Parameters = params
		return
	}
	a.toolIndexOf[id] = len(a.toolCalls)
	a.toolCalls = append(a.toolCalls, llm.ToolCall{Name: name, ID: id, Parameters: params})
}

func (a *Assembler) handleContentBlockStop(index *int) error {
	if index == nil {
		a.err = llmerr.New(llmerr.KindParsing, "anthropic", "content_block_stop out of order", nil)
		return a.err
	}
	bs, ok := a.blocks[*index]
	if !ok {
		return nil
	}

	switch bs.blockType {
	case "tool_use", "server_tool_use":
		params := map[string]interface{}{}
		if bs.argsBuf != nil {
			if v, ok := bs.argsBuf.TryParse(); ok {
				params = v.ToMap()
			} else if last, hasLast := bs.argsBuf.LastGood(); hasLast && !(bs.blockType == "server_tool_use" && bs.toolUseName == "web_search") {
				params = last.ToMap()
			}
			// Open Question (spec §9): web_search input-decode failure
			// falls back to an empty object rather than salvaging partial
			// text, matching documented current behaviour.
		}
		a.upsertToolCall(bs.toolUseID, bs.toolUseName, params)
		bs.published = true
	case "code_execution_tool_result", "web_search_tool_result", "web_fetch_tool_result":
		a.notes = append(a.notes, renderToolResultBlock(bs))
	}
	a.recomputeText()
	return nil
}

// decodeToolResultContent normalizes the heterogeneous content a
// code_execution/web_search/web_fetch tool-result block carries: either a
// bare string, or an array of tagged items ("result"/"output" text or
// file_id, "error" text). A single tagged item that is not wrapped in an
// array is treated as a one-item list. Both shapes come back as plain
// renderable text; any other shape is returned unchanged.
func decodeToolResultContent(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return json.RawMessage(asString)
	}

	type resultItem struct {
		Type   string `json:"type"`
		Text   string `json:"text"`
		FileID string `json:"file_id"`
	}
	var items []resultItem
	if err := json.Unmarshal(raw, &items); err != nil {
		var one resultItem
		if err := json.Unmarshal(raw, &one); err != nil {
			return raw
		}
		items = []resultItem{one}
	}

	var parts []string
	for _, it := range items {
		switch it.Type {
		case "error":
			parts = append(parts, fmt.Sprintf("error: %s", it.Text))
		case "output":
			if it.FileID != "" {
				parts = append(parts, fmt.Sprintf("[file:%s]", it.FileID))
			} else if it.Text != "" {
				parts = append(parts, it.Text)
			}
		default: // "result" and any forward-compatible tag
			if it.Text != "" {
				parts = append(parts, it.Text)
			}
		}
	}
	return json.RawMessage(strings.Join(parts, "\n"))
}

func renderToolResultBlock(bs *blockState) string {
	if len(bs.resultRaw) == 0 {
		return ""
	}
	return fmt.Sprintf("```\n%s\n```", string(bs.resultRaw))
}

func (a *Assembler) handleMessageDelta(deltaRaw, usageRaw json.RawMessage) error {
	var delta struct {
		StopReason   string `json:"stop_reason"`
		StopSequence string `json:"stop_sequence"`
	}
	if deltaRaw != nil {
		if err := json.Unmarshal(deltaRaw, &delta); err != nil {
			a.err = llmerr.New(llmerr.KindParsing, "anthropic", "invalid message_delta", err)
			return a.err
		}
	}
	a.stopReason = delta.StopReason

	if usageRaw != nil {
		var usage struct {
			OutputTokens int `json:"output_tokens"`
		}
		if err := json.Unmarshal(usageRaw, &usage); err == nil && usage.OutputTokens > 0 {
			a.outputTokens = intp(usage.OutputTokens)
		}
	}
	return nil
}

// recomputeText rebuilds the aggregate response/reasoning strings from all
// blocks in index order. Re-deriving from scratch each time keeps the
// monotonic-growth invariant trivially true as long as individual block
// builders are append-only, which they are.
func (a *Assembler) recomputeText() {
	indices := append([]int{}, a.order...)
	sort.Ints(indices)

	a.response.Reset()
	a.reasoning.Reset()
	for _, idx := range indices {
		bs := a.blocks[idx]
		switch bs.blockType {
		case "text":
			a.response.WriteString(bs.text.String())
		case "thinking":
			a.reasoning.WriteString(bs.thinking.String())
		}
	}
}

// Err returns the terminal error, if the stream ended with one.
func (a *Assembler) Err() error { return a.err }

// Done reports whether message_stop (or a terminal error) has been seen.
func (a *Assembler) Done() bool { return a.terminal }

// Snapshot returns the current accumulated GenerationResponse.
func (a *Assembler) Snapshot() llm.GenerationResponse {
	notes := strings.Join(a.notes, "\n\n")
	var finish llm.FinishReason
	if a.stopReason != "" {
		finish = llm.MapFinishReason(a.stopReason, providerutils.AnthropicFinishReasons)
	}
	return llm.GenerationResponse{
		Texts: llm.Texts{
			Response:  a.response.String(),
			Reasoning: a.reasoning.String(),
			Notes:     notes,
		},
		ToolCalls: append([]llm.ToolCall{}, a.toolCalls...),
		Metadata: &llm.Metadata{
			ResponseID:               a.responseID,
			Model:                    a.model,
			FinishReason:             finish,
			InputTokens:              a.inputTokens,
			OutputTokens:             a.outputTokens,
			CacheCreationInputTokens: a.cacheCreate,
			CacheReadInputTokens:     a.cacheRead,
		},
	}
}

func intp(v int) *int { return &v }
