package jsonpartial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/jsonpartial"
	"github.com/harborwave/llmkit/pkg/value"
)

func TestBufferAccumulatesAndParsesWhenComplete(t *testing.T) {
	b := jsonpartial.NewBuffer()

	b.Append(`{"loca`)
	_, ok := b.TryParse()
	assert.False(t, ok)

	b.Append(`tion": "Pa`)
	_, ok = b.TryParse()
	assert.False(t, ok)

	b.Append(`ris"}`)
	v, ok := b.TryParse()
	require.True(t, ok)
	loc, ok := v.Get("location")
	require.True(t, ok)
	assert.Equal(t, "Paris", loc.AsString())
}

func TestBufferKeepsLastGoodOnRegression(t *testing.T) {
	b := jsonpartial.NewBuffer()
	b.Append(`{"x": 1}`)
	v, ok := b.TryParse()
	require.True(t, ok)
	x, ok := v.Get("x")
	require.True(t, ok)
	assert.Equal(t, int64(1), x.AsInt())

	// Append garbage that can't be repaired into valid JSON at all.
	b.Append(`###not json at all&&&`)
	v2, ok := b.TryParse()
	assert.False(t, ok)
	assert.True(t, value.Equal(v, v2))
}

func TestFixJSONClosesUnterminatedStructures(t *testing.T) {
	fixed := jsonpartial.FixJSON(`{"active":tr`)
	assert.Equal(t, `{"active":true}`, fixed)
}
