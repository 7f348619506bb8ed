package providerutils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/providerutils"
	"github.com/harborwave/llmkit/pkg/value"
)

func sampleSchema() value.Value {
	return value.Object().
		Set("type", value.String("object")).
		Set("required", value.Array(value.String("location"))).
		Set("properties", value.Object().
			Set("location", value.Object().Set("type", value.String("string"))).
			Set("unit", value.Object().Set("type", value.String("string"))))
}

func TestToStrictSchemaMarksAllPropertiesRequired(t *testing.T) {
	strict := providerutils.ToStrictSchema(sampleSchema())

	addl, ok := strict.Get("additionalProperties")
	require.True(t, ok)
	assert.False(t, addl.AsBool())

	req, ok := strict.Get("required")
	require.True(t, ok)
	items := req.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "location", items[0].AsString())
	assert.Equal(t, "unit", items[1].AsString())
}

func TestToStrictSchemaIsIdempotent(t *testing.T) {
	once := providerutils.ToStrictSchema(sampleSchema())
	twice := providerutils.ToStrictSchema(once)
	assert.True(t, value.Equal(once, twice))
}

func TestToGeminiSchemaUppercasesTypes(t *testing.T) {
	g := providerutils.ToGeminiSchema(sampleSchema())
	typ, ok := g.Get("type")
	require.True(t, ok)
	assert.Equal(t, "OBJECT", typ.AsString())

	_, hasAddl := g.Get("additionalProperties")
	assert.False(t, hasAddl)

	props, _ := g.Get("properties")
	loc, _ := props.Get("location")
	locType, _ := loc.Get("type")
	assert.Equal(t, "STRING", locType.AsString())
}

func TestToGeminiSchemaDefaultsArrayItemType(t *testing.T) {
	arr := value.Object().Set("type", value.String("array"))
	g := providerutils.ToGeminiSchema(arr)
	items, ok := g.Get("items")
	require.True(t, ok)
	typ, ok := items.Get("type")
	require.True(t, ok)
	assert.Equal(t, "STRING", typ.AsString())
}
