package openairesponses_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/providers/openairesponses"
)

func feed(t *testing.T, a *openairesponses.Assembler, events ...string) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, a.HandleEvent(ev))
	}
}

func TestBasicTextResponse(t *testing.T) {
	a := openairesponses.New()
	feed(t, a,
		`{"type":"response.created","response":{"id":"resp_1","model":"gpt-4.1"}}`,
		`{"type":"response.output_text.delta","sequence_number":1,"delta":"Hel"}`,
		`{"type":"response.output_text.delta","sequence_number":2,"delta":"lo"}`,
		`{"type":"response.completed","sequence_number":3,"response":{"id":"resp_1","model":"gpt-4.1","usage":{"input_tokens":4,"output_tokens":2,"total_tokens":6}}}`,
	)
	require.NoError(t, a.Err())
	snap := a.Snapshot()
	assert.Equal(t, "Hello", snap.Texts.Response)
	assert.Equal(t, llm.FinishStop, snap.Metadata.FinishReason)
	assert.Equal(t, 3, a.LastSequence())
}

func TestFunctionCallItemIDKeyedAccumulation(t *testing.T) {
	a := openairesponses.New()
	feed(t, a,
		`{"type":"response.created","response":{"id":"resp_2","model":"gpt-4.1"}}`,
		`{"type":"response.output_item.added","item":{"id":"item_1","type":"function_call","call_id":"call_abc","name":"get_weather"}}`,
		`{"type":"response.function_call_arguments.delta","item_id":"item_1","delta":"{\"location\""}`,
		`{"type":"response.function_call_arguments.delta","item_id":"item_1","delta":":\"Paris\"}"}`,
		`{"type":"response.function_call_arguments.done","item_id":"item_1","arguments":"{\"location\":\"Paris\"}"}`,
		`{"type":"response.completed","response":{"id":"resp_2","model":"gpt-4.1"}}`,
	)
	require.NoError(t, a.Err())
	snap := a.Snapshot()
	require.Len(t, snap.ToolCalls, 1)
	assert.Equal(t, "get_weather", snap.ToolCalls[0].Name)
	assert.Equal(t, "call_abc", snap.ToolCalls[0].ID)
	assert.Equal(t, "Paris", snap.ToolCalls[0].Parameters["location"])
	assert.Equal(t, llm.FinishToolUse, snap.Metadata.FinishReason)
}

// TestResumeProducesCompleteSnapshot reproduces scenario E4: a fresh Assembler picking
// up a second half of a background response after an earlier interruption,
// starting from where LastSequence left off — the assembler itself doesn't
// care whether events before its own sequence numbers were ever seen, it
// only needs the tail to assemble correctly.
func TestResumeProducesCompleteSnapshot(t *testing.T) {
	first := openairesponses.New()
	feed(t, first,
		`{"type":"response.created","response":{"id":"resp_3","model":"gpt-4.1"}}`,
		`{"type":"response.output_text.delta","sequence_number":1,"delta":"Part one. "}`,
	)
	resumeFrom := first.LastSequence()
	assert.Equal(t, 1, resumeFrom)

	resumed := openairesponses.New()
	feed(t, resumed,
		`{"type":"response.output_text.delta","sequence_number":2,"delta":"Part two."}`,
		`{"type":"response.completed","sequence_number":3,"response":{"id":"resp_3","model":"gpt-4.1"}}`,
	)
	assert.Equal(t, "Part two.", resumed.Snapshot().Texts.Response)
	assert.True(t, resumed.Done())
}

func TestFailedResponseIsTerminal(t *testing.T) {
	a := openairesponses.New()
	err := a.HandleEvent(`{"type":"response.failed","response":{"error":{"code":"server_error","message":"boom"}}}`)
	assert.Error(t, err)
	assert.True(t, a.Done())
}
