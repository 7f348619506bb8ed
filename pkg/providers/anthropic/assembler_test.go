package anthropic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/providers/anthropic"
)

func feed(t *testing.T, a *anthropic.Assembler, events ...string) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, a.HandleEvent(ev))
	}
}

// TestBasicTextTurn reproduces scenario E1: a plain text turn streamed as
// message_start, one text content block with two text_deltas, message_delta
// carrying stop_reason "end_turn", then message_stop.
func TestBasicTextTurn(t *testing.T) {
	a := anthropic.New()
	feed(t, a,
		`{"type":"message_start","message":{"id":"msg_1","model":"claude-3-5-sonnet","usage":{"input_tokens":10,"output_tokens":1}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello, "}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"world!"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`,
		`{"type":"message_stop"}`,
	)

	require.NoError(t, a.Err())
	assert.True(t, a.Done())

	snap := a.Snapshot()
	assert.Equal(t, "Hello, world!", snap.Texts.Response)
	assert.Equal(t, llm.FinishStop, snap.Metadata.FinishReason)
	assert.Equal(t, "msg_1", snap.Metadata.ResponseID)
	assert.Equal(t, "claude-3-5-sonnet", snap.Metadata.Model)
	require.NotNil(t, snap.Metadata.OutputTokens)
	assert.Equal(t, 5, *snap.Metadata.OutputTokens)
}

// TestTextGrowsMonotonically checks law 2: intermediate snapshots never
// shrink what was already exposed.
func TestTextGrowsMonotonically(t *testing.T) {
	a := anthropic.New()
	feed(t, a,
		`{"type":"message_start","message":{"id":"msg_2","model":"claude-3-5-sonnet","usage":{"input_tokens":1,"output_tokens":0}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
	)
	prev := ""
	for _, frag := range []string{"The ", "quick ", "brown ", "fox"} {
		require.NoError(t, a.HandleEvent(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"`+frag+`"}}`))
		cur := a.Snapshot().Texts.Response
		assert.Contains(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, "The quick brown fox", prev)
}

// TestToolUseWithPartialJSON reproduces scenario E2: a tool_use block whose
// input streams in as several input_json_delta fragments that only form
// valid JSON once fully accumulated, including a transient invalid-partial
// stretch that must not regress an already-published parameter set below
// its last valid parse.
func TestToolUseWithPartialJSON(t *testing.T) {
	a := anthropic.New()
	feed(t, a,
		`{"type":"message_start","message":{"id":"msg_3","model":"claude-3-5-sonnet","usage":{"input_tokens":20,"output_tokens":0}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"loca"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"tion\": \"Pa"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"ris\"}"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":12}}`,
		`{"type":"message_stop"}`,
	)

	require.NoError(t, a.Err())
	snap := a.Snapshot()
	require.Len(t, snap.ToolCalls, 1)
	tc := snap.ToolCalls[0]
	assert.Equal(t, "get_weather", tc.Name)
	assert.Equal(t, "toolu_1", tc.ID)
	assert.Equal(t, "Paris", tc.Parameters["location"])
	assert.Equal(t, llm.FinishToolUse, snap.Metadata.FinishReason)
}

func TestOutOfOrderDeltaIsParsingError(t *testing.T) {
	a := anthropic.New()
	err := a.HandleEvent(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"x"}}`)
	assert.Error(t, err)
}

func TestErrorEventIsTerminal(t *testing.T) {
	a := anthropic.New()
	feed(t, a, `{"type":"message_start","message":{"id":"msg_4","model":"m","usage":{"input_tokens":1,"output_tokens":0}}}`)
	err := a.HandleEvent(`{"type":"error","error":{"message":"overloaded"}}`)
	assert.Error(t, err)
	assert.True(t, a.Done())
}
