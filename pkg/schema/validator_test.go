package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwave/llmkit/pkg/schema"
	"github.com/harborwave/llmkit/pkg/value"
)

func weatherSchema() value.Value {
	return value.Object().
		Set("type", value.String("object")).
		Set("properties", value.Object().
			Set("location", value.Object().Set("type", value.String("string"))).
			Set("unit", value.Object().Set("type", value.String("string")))).
		Set("required", value.Array(value.String("location")))
}

func TestJSONSchemaValidatorAcceptsValid(t *testing.T) {
	v := schema.NewJSONSchemaValidator(weatherSchema())
	err := v.Validate(map[string]interface{}{"location": "Paris"})
	assert.NoError(t, err)
}

func TestJSONSchemaValidatorRejectsMissingRequired(t *testing.T) {
	v := schema.NewJSONSchemaValidator(weatherSchema())
	err := v.Validate(map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location")
}

func TestJSONSchemaValidatorCompilesOnce(t *testing.T) {
	v := schema.NewJSONSchemaValidator(weatherSchema())
	require.NoError(t, v.Validate(map[string]interface{}{"location": "Paris"}))
	require.Error(t, v.Validate(map[string]interface{}{}))
}

func TestNopValidatorAcceptsAnything(t *testing.T) {
	var v schema.Validator = schema.NopValidator{}
	assert.NoError(t, v.Validate(map[string]interface{}{"anything": true}))
	assert.NoError(t, v.Validate(nil))
}

func TestValidatorCacheReusesInstance(t *testing.T) {
	cache := schema.NewValidatorCache()
	a := cache.Get("get_weather", weatherSchema())
	b := cache.Get("get_weather", weatherSchema())
	assert.Same(t, a, b)
}
