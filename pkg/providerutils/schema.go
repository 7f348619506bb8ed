// Package providerutils holds request-building helpers shared across
// provider clients: role mapping, finish-reason tables, and the two JSON
// Schema rewrites (OpenAI strict-mode, Gemini uppercase-type) every tool
// definition passes through before it's sent on the wire.
package providerutils

import (
	"sort"

	"github.com/harborwave/llmkit/pkg/value"
)

// ToStrictSchema recursively rewrites every "object" node in schema so it
// carries additionalProperties:false and a required array equal to the
// sorted list of all its declared properties, recursing into properties
// and items. The original required list (if any) is discarded — strict
// mode requires every property, not just the caller-declared required set.
// Idempotent: re-applying to an already-strict schema is a no-op (spec §8
// law 5).
func ToStrictSchema(schema value.Value) value.Value {
	if schema.Kind() != value.KindObject {
		return schema
	}

	out := schema
	if typ, ok := schema.Get("type"); ok && typ.AsString() == "object" {
		props, hasProps := schema.Get("properties")
		if hasProps && props.Kind() == value.KindObject {
			names := props.Keys()
			sorted := append([]string{}, names...)
			sort.Strings(sorted)

			newProps := value.Object()
			for _, k := range names {
				v, _ := props.Get(k)
				newProps = newProps.Set(k, ToStrictSchema(v))
			}
			out = out.Set("properties", newProps)

			reqItems := make([]value.Value, len(sorted))
			for i, n := range sorted {
				reqItems[i] = value.String(n)
			}
			out = out.Set("required", value.Array(reqItems...))
		}
		out = out.Set("additionalProperties", value.Bool(false))
	}

	if items, ok := schema.Get("items"); ok {
		out = out.Set("items", ToStrictSchema(items))
	}

	return out
}

var geminiTypeUpper = map[string]string{
	"string":  "STRING",
	"number":  "NUMBER",
	"integer": "INTEGER",
	"boolean": "BOOLEAN",
	"array":   "ARRAY",
	"object":  "OBJECT",
}

// ToGeminiSchema rewrites schema for Gemini's function-declaration format:
// type values become uppercase, additionalProperties is dropped entirely
// (Gemini doesn't recognize it), and every array's items block gets an
// explicit type, defaulting to STRING when absent.
func ToGeminiSchema(schema value.Value) value.Value {
	if schema.Kind() != value.KindObject {
		return schema
	}

	out := value.Object()
	for _, k := range schema.Keys() {
		if k == "additionalProperties" {
			continue
		}
		v, _ := schema.Get(k)
		switch k {
		case "type":
			if s := v.AsString(); s != "" {
				if upper, ok := geminiTypeUpper[s]; ok {
					out = out.Set("type", value.String(upper))
					continue
				}
			}
			out = out.Set("type", v)
		case "properties":
			newProps := value.Object()
			for _, pk := range v.Keys() {
				pv, _ := v.Get(pk)
				newProps = newProps.Set(pk, ToGeminiSchema(pv))
			}
			out = out.Set("properties", newProps)
		case "items":
			items := ToGeminiSchema(v)
			if _, hasType := items.Get("type"); !hasType {
				items = items.Set("type", value.String("STRING"))
			}
			out = out.Set("items", items)
		default:
			out = out.Set(k, v)
		}
	}

	if typ, ok := out.Get("type"); ok && typ.AsString() == "ARRAY" {
		if _, hasItems := out.Get("items"); !hasItems {
			out = out.Set("items", value.Object().Set("type", value.String("STRING")))
		}
	}

	return out
}
