package jsoncel

import (
	"github.com/google/cel-go/checker/decls"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Provider extends the CEL ref.TypeProvider interface and
// types a single root variable (such as 'props') from a JSON schema.
type Provider struct {
	// fallback proto-based type provider
	protos ref.TypeProvider

	typeName string

	// typeMap holds every schema node keyed by its dotted path
	// below the root variable.
	//
	// for a 'props' schema with a 'retry' object containing 'count':
	// 	props       -> the root schema
	// 	props.retry -> {"type": "object", ...}
	// 	props.retry.count -> {"type": "number"}
	typeMap map[string]*Schema
}

func NewProvider(typeName string, schema *Schema) *Provider {
	if schema == nil {
		schema = &Schema{Type: Object, AdditionalProperties: TrueSchema}
	}

	p := &Provider{
		protos:   types.NewEmptyRegistry(),
		typeName: typeName,
		typeMap:  map[string]*Schema{},
	}
	p.index(typeName, schema)
	return p
}

func (p *Provider) index(key string, s *Schema) {
	p.typeMap[key] = s
	for childKey, child := range s.Properties {
		if child != nil {
			p.index(key+"."+childKey, child)
		}
	}
}

var _ ref.TypeProvider = &Provider{}

// EnumValue returns the numeric value of the given enum value name.
func (p *Provider) EnumValue(enumName string) ref.Val {
	return p.protos.EnumValue(enumName)
}

// FindIdent takes a qualified identifier name and returns a Value if one
// exists.
func (p *Provider) FindIdent(identName string) (ref.Val, bool) {
	return p.protos.FindIdent(identName)
}

// FindType looks up the Type given a qualified typeName.
// Used during type-checking only.
func (p *Provider) FindType(typeName string) (*exprpb.Type, bool) {
	if s, ok := p.typeMap[typeName]; ok {
		if s.Type == Object || s.Type == "" {
			// objects with free-form keys cannot be checked
			// at compile time, e.g. {"headers": {"x-id": "1"}}
			if s.AdditionalProperties == TrueSchema && len(s.Properties) == 0 && typeName != p.typeName {
				return decls.Dyn, true
			}
			return decls.NewObjectType(typeName), true
		}
		return exprType(s.Type), true
	}
	return p.protos.FindType(typeName)
}

// FindFieldType returns the field type for a checked type value.
// Used during type-checking only.
func (p *Provider) FindFieldType(messageType string, fieldName string) (*ref.FieldType, bool) {
	s, ok := p.typeMap[messageType+"."+fieldName]
	if !ok {
		parent, parentOK := p.typeMap[messageType]
		if parentOK && parent.AdditionalProperties == TrueSchema {
			return &ref.FieldType{Type: decls.Dyn}, true
		}
		return p.protos.FindFieldType(messageType, fieldName)
	}

	if s.Type == Object {
		return &ref.FieldType{Type: decls.NewObjectType(messageType + "." + fieldName)}, true
	}
	return &ref.FieldType{Type: exprType(s.Type)}, true
}

// NewValue creates a new type value from a qualified name and map of field
// name to value.
func (p *Provider) NewValue(typeName string, fields map[string]ref.Val) ref.Val {
	return p.protos.NewValue(typeName, fields)
}

func exprType(t SimpleType) *exprpb.Type {
	switch t {
	case Null:
		return decls.Null
	case Boolean:
		return decls.Bool
	case Array:
		return decls.NewListType(decls.Dyn)
	case Number:
		return decls.Double
	case String:
		return decls.String
	case Integer:
		return decls.Int
	}
	return decls.Dyn
}
