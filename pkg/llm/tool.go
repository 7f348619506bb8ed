package llm

import (
	"context"
	"sort"

	"github.com/harborwave/llmkit/pkg/value"
)

// ParamType is the declared type of a Parameter.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
	ParamArray  ParamType = "array"
	ParamObject ParamType = "object"
)

// Parameter describes one field of a Tool's input, used to generate
// RawInputSchema when the caller doesn't supply a schema directly.
type Parameter struct {
	Name        string
	Title       string
	Type        ParamType
	ItemType    ParamType // only meaningful when Type == ParamArray
	Description string
	Required    bool
	EnumValues  []string
	MinLength   *int
	MaxLength   *int
	Minimum     *float64
	Maximum     *float64
}

// Tool is a callable function definition. RawInputSchema is always
// populated: either supplied directly by the caller, or generated from
// Parameters by NewTool.
type Tool struct {
	Name            string
	Description     string
	Title           string
	Parameters      []Parameter
	RawInputSchema  value.Value
	ResultTypes     []ToolContentKind
	Execute         func(ctx context.Context, args map[string]interface{}) ([]ToolContent, error)
}

// NewTool builds a Tool from Parameters, generating RawInputSchema as an
// object schema with typed properties and constraints.
func NewTool(name, description string, params []Parameter, execute func(ctx context.Context, args map[string]interface{}) ([]ToolContent, error)) Tool {
	return Tool{
		Name:           name,
		Description:    description,
		Parameters:     params,
		RawInputSchema: GenerateSchema(params),
		Execute:        execute,
	}
}

// NewToolWithSchema builds a Tool from a caller-supplied raw JSON Schema,
// skipping generation. Parameters may be left empty.
func NewToolWithSchema(name, description string, schema value.Value, execute func(ctx context.Context, args map[string]interface{}) ([]ToolContent, error)) Tool {
	return Tool{
		Name:           name,
		Description:    description,
		RawInputSchema: schema,
		Execute:        execute,
	}
}

// GenerateSchema builds an object JSON Schema (as a value.Value) from a
// Parameter list: typed properties, enum/minLength/maxLength/minimum/maximum
// constraints, and a required array listing every Parameter with
// Required==true.
func GenerateSchema(params []Parameter) value.Value {
	properties := value.Object()
	var required []string

	for _, p := range params {
		properties = properties.Set(p.Name, parameterSchema(p))
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := value.Object().
		Set("type", value.String("object")).
		Set("properties", properties)

	if len(required) > 0 {
		reqItems := make([]value.Value, len(required))
		for i, r := range required {
			reqItems[i] = value.String(r)
		}
		schema = schema.Set("required", value.Array(reqItems...))
	}
	return schema
}

func parameterSchema(p Parameter) value.Value {
	s := value.Object()
	if p.Description != "" {
		s = s.Set("description", value.String(p.Description))
	}

	switch p.Type {
	case ParamString:
		s = s.Set("type", value.String("string"))
		if p.MinLength != nil {
			s = s.Set("minLength", value.Int(int64(*p.MinLength)))
		}
		if p.MaxLength != nil {
			s = s.Set("maxLength", value.Int(int64(*p.MaxLength)))
		}
	case ParamInt:
		s = s.Set("type", value.String("integer"))
		if p.Minimum != nil {
			s = s.Set("minimum", value.Double(*p.Minimum))
		}
		if p.Maximum != nil {
			s = s.Set("maximum", value.Double(*p.Maximum))
		}
	case ParamFloat:
		s = s.Set("type", value.String("number"))
		if p.Minimum != nil {
			s = s.Set("minimum", value.Double(*p.Minimum))
		}
		if p.Maximum != nil {
			s = s.Set("maximum", value.Double(*p.Maximum))
		}
	case ParamBool:
		s = s.Set("type", value.String("boolean"))
	case ParamArray:
		s = s.Set("type", value.String("array"))
		itemType := p.ItemType
		if itemType == "" {
			itemType = ParamString
		}
		s = s.Set("items", parameterSchema(Parameter{Type: itemType}))
	case ParamObject:
		s = s.Set("type", value.String("object"))
	}

	if len(p.EnumValues) > 0 {
		items := make([]value.Value, len(p.EnumValues))
		for i, e := range p.EnumValues {
			items[i] = value.String(e)
		}
		s = s.Set("enum", value.Array(items...))
	}
	return s
}

// sortedRequired returns a sorted copy of names. Nothing in the module
// calls it.
func sortedRequired(names []string) []string {
	out := append([]string{}, names...)
	sort.Strings(out)
	return out
}
