package tools_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/tools"
)

func echoTool() llm.Tool {
	return llm.NewTool("echo", "echoes back", []llm.Parameter{
		{Name: "query", Type: llm.ParamString, Required: true},
	}, func(ctx context.Context, args map[string]interface{}) ([]llm.ToolContent, error) {
		return []llm.ToolContent{{Kind: llm.ToolContentText, Text: fmt.Sprintf("%v", args["query"])}}, nil
	})
}

func TestCallUnknownTool(t *testing.T) {
	cat := tools.New(nil)
	res := cat.Call(context.Background(), llm.ToolCall{Name: "nope", ID: "1"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "unknown tool")
}

func TestCallValidationFailureE6(t *testing.T) {
	cat := tools.New([]llm.Tool{echoTool()})
	res := cat.Call(context.Background(), llm.ToolCall{Name: "echo", ID: "1", Parameters: map[string]interface{}{}})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "query")
}

func TestCallSuccess(t *testing.T) {
	cat := tools.New([]llm.Tool{echoTool()})
	res := cat.Call(context.Background(), llm.ToolCall{Name: "echo", ID: "1", Parameters: map[string]interface{}{"query": "hi"}})
	assert.False(t, res.IsError)
	assert.Equal(t, "hi", res.Content[0].Text)
}

func TestCallExecutorPanicIsCaptured(t *testing.T) {
	panicky := llm.NewTool("boom", "panics", nil, func(ctx context.Context, args map[string]interface{}) ([]llm.ToolContent, error) {
		panic("kaboom")
	})
	cat := tools.New([]llm.Tool{panicky})
	res := cat.Call(context.Background(), llm.ToolCall{Name: "boom", ID: "1"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "kaboom")
}

func TestCallBindsToolCallIDIntoContext(t *testing.T) {
	var seen string
	tool := llm.NewTool("whoami", "reports its call id", nil, func(ctx context.Context, args map[string]interface{}) ([]llm.ToolContent, error) {
		seen = tools.ToolCallID(ctx)
		return nil, nil
	})
	cat := tools.New([]llm.Tool{tool})
	cat.Call(context.Background(), llm.ToolCall{Name: "whoami", ID: "call_42"})
	assert.Equal(t, "call_42", seen)
}

func TestCallManyPreservesOrderRegardlessOfDuration(t *testing.T) {
	var mu sync.Mutex
	order := map[string]time.Duration{"slow": 30 * time.Millisecond, "fast": 0}

	tool := llm.NewTool("timer", "sleeps a variable amount", nil, func(ctx context.Context, args map[string]interface{}) ([]llm.ToolContent, error) {
		name, _ := args["which"].(string)
		mu.Lock()
		d := order[name]
		mu.Unlock()
		time.Sleep(d)
		return []llm.ToolContent{{Kind: llm.ToolContentText, Text: name}}, nil
	})
	cat := tools.New([]llm.Tool{tool})

	calls := []llm.ToolCall{
		{Name: "timer", ID: "1", Parameters: map[string]interface{}{"which": "slow"}},
		{Name: "timer", ID: "2", Parameters: map[string]interface{}{"which": "fast"}},
	}
	results := cat.CallMany(context.Background(), calls)
	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Content[0].Text)
	assert.Equal(t, "fast", results[1].Content[0].Text)
}
