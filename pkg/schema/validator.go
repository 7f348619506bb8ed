// Package schema implements JSON-Schema-backed validation for Tool inputs,
// used by pkg/tools to reject malformed arguments before dispatch.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/harborwave/llmkit/pkg/value"
)

// Validator validates a decoded argument map against a tool's schema.
type Validator interface {
	Validate(data map[string]interface{}) error
}

// NopValidator accepts everything, for callers who supply pre-validated
// tools and want to skip compilation cost.
type NopValidator struct{}

func (NopValidator) Validate(map[string]interface{}) error { return nil }

// JSONSchemaValidator compiles a tool's rawInputSchema once (lazily, on
// first Validate call) and validates subsequent calls against the compiled
// form via github.com/santhosh-tekuri/jsonschema/v6. Safe for concurrent
// use: compilation runs at most once regardless of how many goroutines
// call Validate before it's done.
type JSONSchemaValidator struct {
	raw value.Value

	once       sync.Once
	compiled   *jsonschema.Schema
	compileErr error
}

// NewJSONSchemaValidator builds a validator over raw, a JSON-Schema document
// expressed as a value.Value (typically Tool.RawInputSchema). Compilation is
// deferred to the first Validate call.
func NewJSONSchemaValidator(raw value.Value) *JSONSchemaValidator {
	return &JSONSchemaValidator{raw: raw}
}

func (v *JSONSchemaValidator) compile() error {
	v.once.Do(func() {
		b, err := v.raw.MarshalJSON()
		if err != nil {
			v.compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var doc interface{}
		if err := json.Unmarshal(b, &doc); err != nil {
			v.compileErr = fmt.Errorf("decode schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const resourceURL = "llmkit://tool-schema.json"
		if err := c.AddResource(resourceURL, doc); err != nil {
			v.compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, err := c.Compile(resourceURL)
		if err != nil {
			v.compileErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		v.compiled = compiled
	})
	return v.compileErr
}

// Validate checks data (a tool call's decoded parameter map) against the
// compiled schema.
func (v *JSONSchemaValidator) Validate(data map[string]interface{}) error {
	if err := v.compile(); err != nil {
		return err
	}
	return v.compiled.Validate(data)
}

// ValidatorCache compiles a Validator per tool name, lazily and once, so a
// Tools catalogue built once at startup doesn't recompile a schema on every
// call. Safe for concurrent use: Get is guarded by a mutex since
// Tools.CallMany dispatches tool calls (and therefore cache lookups) from
// concurrent goroutines.
type ValidatorCache struct {
	mu     sync.Mutex
	byName map[string]Validator
}

// NewValidatorCache builds an empty cache.
func NewValidatorCache() *ValidatorCache {
	return &ValidatorCache{byName: map[string]Validator{}}
}

// Get returns the cached Validator for name, constructing one from schema
// on first use.
func (c *ValidatorCache) Get(name string, schema value.Value) Validator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.byName[name]; ok {
		return v
	}
	v := NewJSONSchemaValidator(schema)
	c.byName[name] = v
	return v
}
