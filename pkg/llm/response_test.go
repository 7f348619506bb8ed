package llm_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/llm"
)

func TestGenerationResponseJSONRoundTrip(t *testing.T) {
	in := llm.GenerationResponse{
		Texts: llm.Texts{Response: "Hello there!", Reasoning: "thinking..."},
		ToolCalls: []llm.ToolCall{
			{Name: "get_weather", ID: "toolu_1", Parameters: map[string]interface{}{"location": "Paris"}},
		},
		Metadata: &llm.Metadata{
			ResponseID:   "msg_X",
			FinishReason: llm.FinishStop,
			InputTokens:  intp(11),
			OutputTokens: intp(6),
		},
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out llm.GenerationResponse
	require.NoError(t, json.Unmarshal(b, &out))

	assert.Equal(t, in.Texts, out.Texts)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "get_weather", out.ToolCalls[0].Name)
	assert.Equal(t, "toolu_1", out.ToolCalls[0].ID)
	assert.Equal(t, "Paris", out.ToolCalls[0].Parameters["location"])
	require.NotNil(t, out.Metadata)
	assert.Equal(t, "msg_X", out.Metadata.ResponseID)
	assert.Equal(t, llm.FinishStop, out.Metadata.FinishReason)
	require.NotNil(t, out.Metadata.InputTokens)
	assert.Equal(t, 11, *out.Metadata.InputTokens)
}

func TestMapFinishReasonFallsBackToOther(t *testing.T) {
	table := map[string]llm.FinishReason{"stop": llm.FinishStop}
	assert.Equal(t, llm.FinishStop, llm.MapFinishReason("stop", table))
	assert.Equal(t, llm.FinishOther, llm.MapFinishReason("unknown_native_code", table))
}

func intp(v int) *int { return &v }
