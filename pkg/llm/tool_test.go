package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/llm"
)

func TestGenerateSchemaRequiredAndConstraints(t *testing.T) {
	minLen := 1
	tool := llm.NewTool("get_weather", "Get the weather", []llm.Parameter{
		{Name: "location", Type: llm.ParamString, Required: true, MinLength: &minLen},
		{Name: "unit", Type: llm.ParamString, EnumValues: []string{"c", "f"}},
	}, func(ctx context.Context, args map[string]interface{}) ([]llm.ToolContent, error) {
		return nil, nil
	})

	schema := tool.RawInputSchema
	typ, ok := schema.Get("type")
	require.True(t, ok)
	assert.Equal(t, "object", typ.AsString())

	required, ok := schema.Get("required")
	require.True(t, ok)
	items := required.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "location", items[0].AsString())

	props, ok := schema.Get("properties")
	require.True(t, ok)
	loc, ok := props.Get("location")
	require.True(t, ok)
	minLenV, ok := loc.Get("minLength")
	require.True(t, ok)
	assert.Equal(t, int64(1), minLenV.AsInt())

	unit, ok := props.Get("unit")
	require.True(t, ok)
	enumV, ok := unit.Get("enum")
	require.True(t, ok)
	assert.Len(t, enumV.Items(), 2)
}

func TestNewToolWithSchemaSkipsGeneration(t *testing.T) {
	custom := struct{}{}
	_ = custom
	schema := llm.GenerateSchema(nil)
	tool := llm.NewToolWithSchema("noop", "does nothing", schema, nil)
	assert.Equal(t, schema, tool.RawInputSchema)
	assert.Empty(t, tool.Parameters)
}
