package google_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/providers/google"
)

func feed(t *testing.T, a *google.Assembler, events ...string) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, a.HandleEvent(ev))
	}
}

func TestBasicTextCandidate(t *testing.T) {
	a := google.New()
	feed(t, a,
		`{"modelVersion":"gemini-2.0-flash","candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":", world!"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":4,"totalTokenCount":7}}`,
	)
	require.NoError(t, a.Err())
	snap := a.Snapshot()
	assert.Equal(t, "Hello, world!", snap.Texts.Response)
	assert.Equal(t, llm.FinishStop, snap.Metadata.FinishReason)
	assert.Equal(t, "gemini-2.0-flash", snap.Metadata.Model)
}

// TestThoughtSignatureRoundTrip reproduces scenario E5: a functionCall part
// carrying a thoughtSignature must echo it back on the published ToolCall's
// ProviderMetadata so a caller can replay it on the next turn.
func TestThoughtSignatureRoundTrip(t *testing.T) {
	a := google.New()
	feed(t, a,
		`{"candidates":[{"content":{"parts":[{"thought":true,"text":"I should check the weather."},{"functionCall":{"name":"get_weather","args":{"city":"Paris"}},"thoughtSignature":"sig-abc123"}]},"finishReason":"STOP"}]}`,
	)
	snap := a.Snapshot()
	assert.Equal(t, "I should check the weather.", snap.Texts.Reasoning)
	require.Len(t, snap.ToolCalls, 1)
	tc := snap.ToolCalls[0]
	assert.Equal(t, "get_weather", tc.Name)
	assert.Equal(t, "Paris", tc.Parameters["city"])
	assert.NotEmpty(t, tc.ID)
	require.NotNil(t, tc.ProviderMetadata)
	assert.Equal(t, "sig-abc123", tc.ProviderMetadata["thoughtSignature"])
}

func TestSafetyFinishIsSurfacedAsError(t *testing.T) {
	a := google.New()
	err := a.HandleEvent(`{"candidates":[{"content":{"parts":[{"text":"partial"}]},"finishReason":"SAFETY"}]}`)
	assert.Error(t, err)
	assert.True(t, a.Done())
}

func TestExecutableCodeRendersAsFencedBlock(t *testing.T) {
	a := google.New()
	feed(t, a,
		`{"candidates":[{"content":{"parts":[{"executableCode":{"language":"PYTHON","code":"print(1+1)"}}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"codeExecutionResult":{"outcome":"OK","output":"2"}}]},"finishReason":"STOP"}]}`,
	)
	snap := a.Snapshot()
	assert.Contains(t, snap.Texts.Notes, "print(1+1)")
	assert.Contains(t, snap.Texts.Notes, "2")
}
