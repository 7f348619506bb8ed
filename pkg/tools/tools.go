// Package tools implements tool-call dispatch: name lookup, JSON-Schema
// input validation, parallel execution with stable result ordering, and
// task-local propagation of the current tool-call id.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/schema"
)

type toolCallIDKey struct{}

// ToolCallID returns the tool-call id bound to ctx by the dispatcher around
// the currently executing tool, or "" if called outside a dispatch.
func ToolCallID(ctx context.Context) string {
	id, _ := ctx.Value(toolCallIDKey{}).(string)
	return id
}

func withToolCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, toolCallIDKey{}, id)
}

// Catalogue resolves tool calls by name and validates their arguments
// before dispatch. It is safe for concurrent use; tool executors are
// expected to be safe for concurrent use themselves — the dispatcher
// neither serialises nor deduplicates calls.
type Catalogue struct {
	byName     map[string]llm.Tool
	validators *schema.ValidatorCache
}

// New builds a Catalogue from a list of Tools.
func New(toolList []llm.Tool) *Catalogue {
	byName := make(map[string]llm.Tool, len(toolList))
	for _, t := range toolList {
		byName[t.Name] = t
	}
	return &Catalogue{byName: byName, validators: schema.NewValidatorCache()}
}

// Call resolves call.Name, validates call.Parameters against the tool's
// RawInputSchema, and executes it. It never returns an error: unknown
// tools, validation failures, and executor failures are all captured as an
// error-tagged llm.ToolResult.
func (c *Catalogue) Call(ctx context.Context, call llm.ToolCall) llm.ToolResult {
	tool, ok := c.byName[call.Name]
	if !ok {
		return llm.ErrorResult(call.Name, call.ID, fmt.Sprintf("unknown tool %q", call.Name))
	}

	validator := c.validators.Get(tool.Name, tool.RawInputSchema)
	if err := validator.Validate(call.Parameters); err != nil {
		return llm.ErrorResult(call.Name, call.ID, fmt.Sprintf("invalid parameters: %v", err))
	}

	if tool.Execute == nil {
		return llm.ErrorResult(call.Name, call.ID, fmt.Sprintf("tool %q has no executor", call.Name))
	}

	execCtx := withToolCallID(ctx, call.ID)
	content, err := runExecute(execCtx, tool, call.Parameters)
	if err != nil {
		return llm.ErrorResult(call.Name, call.ID, err.Error())
	}
	return llm.ToolResult{Name: call.Name, ID: call.ID, Content: content}
}

// runExecute isolates the executor call behind a recover so a panicking
// tool never takes down the dispatcher — it becomes an error-tagged result
// like any other executor failure.
func runExecute(ctx context.Context, tool llm.Tool, args map[string]interface{}) (content []llm.ToolContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %q panicked: %v", tool.Name, r)
		}
	}()
	return tool.Execute(ctx, args)
}

// CallMany executes every call concurrently and returns results in input
// order, regardless of executor duration: an (index, result) bag is
// collected and sorted before returning.
func (c *Catalogue) CallMany(ctx context.Context, calls []llm.ToolCall) []llm.ToolResult {
	type indexed struct {
		index  int
		result llm.ToolResult
	}

	results := make([]indexed, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, call := range calls {
		i, call := i, call
		go func() {
			defer wg.Done()
			results[i] = indexed{index: i, result: c.Call(ctx, call)}
		}()
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	out := make([]llm.ToolResult, len(results))
	for i, r := range results {
		out[i] = r.result
	}
	return out
}
