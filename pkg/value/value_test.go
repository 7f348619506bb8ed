package value_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/value"
)

func TestRoundTripPrimitives(t *testing.T) {
	cases := []value.Value{
		value.Null(),
		value.Bool(true),
		value.Bool(false),
		value.Int(42),
		value.Int(-7),
		value.Double(3.5),
		value.String("hello"),
	}
	for _, v := range cases {
		b, err := json.Marshal(v)
		require.NoError(t, err)

		var out value.Value
		require.NoError(t, json.Unmarshal(b, &out))
		assert.True(t, value.Equal(v, out), "round trip mismatch for %s", v.String())
	}
}

func TestIntVsDoubleDistinction(t *testing.T) {
	whole := value.FromAny(float64(4))
	assert.Equal(t, value.KindInt, whole.Kind())

	frac := value.FromAny(float64(4.5))
	assert.Equal(t, value.KindDouble, frac.Kind())

	var decoded value.Value
	require.NoError(t, json.Unmarshal([]byte(`4`), &decoded))
	assert.Equal(t, value.KindInt, decoded.Kind())

	require.NoError(t, json.Unmarshal([]byte(`4.0`), &decoded))
	// 4.0 has no fractional remainder once parsed as float64, matches int
	// coercion rule deliberately: JSON doesn't distinguish 4 from 4.0 on the
	// wire, so both collapse to KindInt for structural comparisons.
	assert.Equal(t, value.KindInt, decoded.Kind())
}

func TestObjectSetGetDeleteOrder(t *testing.T) {
	obj := value.Object().
		Set("b", value.Int(2)).
		Set("a", value.Int(1)).
		Set("c", value.Int(3))

	assert.Equal(t, []string{"b", "a", "c"}, obj.Keys())

	v, ok := obj.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.AsInt())

	obj = obj.Delete("a")
	_, ok = obj.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c"}, obj.Keys())
}

func TestArrayAppend(t *testing.T) {
	arr := value.Array(value.Int(1)).Append(value.Int(2)).Append(value.Int(3))
	items := arr.Items()
	require.Len(t, items, 3)
	assert.Equal(t, int64(3), items[2].AsInt())
}

func TestToMapStripsJSONBufKey(t *testing.T) {
	obj := value.Object().
		Set("city", value.String("nyc")).
		Set(value.JSONBufKey, value.String(`{"cit`))

	m := obj.ToMap()
	assert.Equal(t, map[string]interface{}{"city": "nyc"}, m)
}

func TestCoercionLossyVsStrict(t *testing.T) {
	s := value.String("42")

	_, ok := s.ToInt(true)
	assert.False(t, ok, "strict mode should not coerce string to int")

	i, ok := s.ToInt(false)
	require.True(t, ok)
	assert.Equal(t, int64(42), i)

	d := value.Double(4.0)
	_, ok = d.ToInt(true)
	assert.False(t, ok, "strict mode should not coerce a double to int")
	i, ok = d.ToInt(false)
	require.True(t, ok, "exact whole doubles coerce to int in lossy mode")
	assert.Equal(t, int64(4), i)

	frac := value.Double(4.5)
	_, ok = frac.ToInt(true)
	assert.False(t, ok)
	_, ok = frac.ToInt(false)
	assert.False(t, ok, "fractional doubles never coerce to int")
}

func TestFromAnyNestedMap(t *testing.T) {
	v := value.FromAny(map[string]interface{}{
		"name": "temp",
		"args": map[string]interface{}{"city": "nyc", "days": 3},
	})
	args, ok := v.Get("args")
	require.True(t, ok)
	days, ok := args.Get("days")
	require.True(t, ok)
	assert.Equal(t, value.KindInt, days.Kind())
	assert.Equal(t, int64(3), days.AsInt())
}
