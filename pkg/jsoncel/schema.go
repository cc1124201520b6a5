package jsoncel

import "sort"

// SimpleType is one of the JSON schema primitive type names.
type SimpleType string

const (
	Null    SimpleType = "null"
	Boolean SimpleType = "boolean"
	Object  SimpleType = "object"
	Array   SimpleType = "array"
	Number  SimpleType = "number"
	String  SimpleType = "string"
	Integer SimpleType = "integer"
)

// Schema is the subset of JSON schema used to describe node properties.
type Schema struct {
	Type        SimpleType         `json:"type,omitempty" yaml:"type,omitempty"`
	Title       string             `json:"title,omitempty" yaml:"title,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Enum        []any              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any                `json:"default,omitempty" yaml:"default,omitempty"`

	// AdditionalProperties set to TrueSchema allows
	// arbitrary keys on an object.
	AdditionalProperties *Schema `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// TrueSchema accepts any value.
var TrueSchema = &Schema{}

// Defaults returns the default values declared on the direct
// properties of the schema. Nested objects with defaults on
// their own properties are returned as nested maps.
func (s *Schema) Defaults() map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	for key, prop := range s.Properties {
		if prop == nil {
			continue
		}
		if prop.Default != nil {
			out[key] = prop.Default
			continue
		}
		if prop.Type == Object {
			if nested := prop.Defaults(); len(nested) > 0 {
				out[key] = nested
			}
		}
	}
	return out
}

// Missing returns the required property names which are absent
// from props or hold an empty string, in sorted order.
func (s *Schema) Missing(props map[string]any) []string {
	if s == nil {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		v, ok := props[key]
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if str, isString := v.(string); isString && str == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Allows reports whether the value is one of the enumerated values.
// A schema without an enum allows every value.
func (s *Schema) Allows(v any) bool {
	if s == nil || len(s.Enum) == 0 {
		return true
	}
	for _, e := range s.Enum {
		if e == v {
			return true
		}
	}
	return false
}
