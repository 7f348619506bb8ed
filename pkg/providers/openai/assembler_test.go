package openai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/providers/openai"
)

func feed(t *testing.T, a *openai.Assembler, events ...string) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, a.HandleEvent(ev))
	}
}

func TestTextDeltaAccumulation(t *testing.T) {
	a := openai.New()
	feed(t, a,
		`{"id":"chatcmpl_1","model":"gpt-4o","choices":[{"delta":{"content":"Hel"}}]}`,
		`{"id":"chatcmpl_1","model":"gpt-4o","choices":[{"delta":{"content":"lo"}}]}`,
		`{"id":"chatcmpl_1","model":"gpt-4o","choices":[{"finish_reason":"stop"}]}`,
		`{"id":"chatcmpl_1","model":"gpt-4o","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
	)
	require.NoError(t, a.Err())
	snap := a.Snapshot()
	assert.Equal(t, "Hello", snap.Texts.Response)
	assert.Equal(t, llm.FinishStop, snap.Metadata.FinishReason)
}

// TestToolCallsIndexKeyedAccumulation reproduces scenario E3: tool call
// fragments interleave across two concurrently-streaming indices, each
// identified only by its positional index until id/name arrive on the
// first fragment for that index.
func TestToolCallsIndexKeyedAccumulation(t *testing.T) {
	a := openai.New()
	feed(t, a,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"get_weather","arguments":""}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_2","function":{"name":"get_time","arguments":""}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"locat"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":1,"function":{"arguments":"{\"zone\":\"UTC\"}"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ion\":\"Paris\"}"}}]}}]}`,
		`{"choices":[{"finish_reason":"tool_calls"}]}`,
	)
	require.NoError(t, a.Err())
	snap := a.Snapshot()
	require.Len(t, snap.ToolCalls, 2)
	assert.Equal(t, "get_weather", snap.ToolCalls[0].Name)
	assert.Equal(t, "call_1", snap.ToolCalls[0].ID)
	assert.Equal(t, "Paris", snap.ToolCalls[0].Parameters["location"])
	assert.Equal(t, "get_time", snap.ToolCalls[1].Name)
	assert.Equal(t, "UTC", snap.ToolCalls[1].Parameters["zone"])
	assert.Equal(t, llm.FinishToolUse, snap.Metadata.FinishReason)
}

func TestDoneSentinelIsTerminal(t *testing.T) {
	a := openai.New()
	require.NoError(t, a.HandleEvent(`{"choices":[{"delta":{"content":"hi"}}]}`))
	require.NoError(t, a.HandleEvent("[DONE]"))
	assert.True(t, a.Done())
}

func TestReasoningContentAccumulates(t *testing.T) {
	a := openai.New()
	feed(t, a,
		`{"choices":[{"delta":{"reasoning_content":"Let's "}}]}`,
		`{"choices":[{"delta":{"reasoning_content":"think."}}]}`,
		`{"choices":[{"delta":{"content":"Answer."},"finish_reason":"stop"}]}`,
	)
	snap := a.Snapshot()
	assert.Equal(t, "Let's think.", snap.Texts.Reasoning)
	assert.Equal(t, "Answer.", snap.Texts.Response)
}
