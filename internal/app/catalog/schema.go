package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// InputSchema derives the JSON schema of a procedure's arguments. Unknown
// properties are rejected.
func InputSchema(proc Procedure) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{
		Type:                 "object",
		Description:          proc.Description,
		Properties:           make(map[string]*jsonschema.Schema, len(proc.Params)),
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
	for _, param := range proc.Params {
		if _, dup := schema.Properties[param.Name]; dup || param.Name == "" {
			return nil, fmt.Errorf("%s: invalid or duplicate parameter %q", proc.Name, param.Name)
		}
		prop, err := paramSchema(param)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", proc.Name, param.Name, err)
		}
		schema.Properties[param.Name] = prop
		if param.Required {
			schema.Required = append(schema.Required, param.Name)
		}
	}
	return schema, nil
}

func paramSchema(param Param) (*jsonschema.Schema, error) {
	typ := param.Type
	if typ == "" {
		typ = TypeString
		if param.Kind == KindFlag {
			typ = TypeBoolean
		}
	}
	if param.Kind == KindFlag && typ != TypeBoolean {
		return nil, fmt.Errorf("flag must be boolean")
	}
	if (param.Kind == KindWorkdir || param.Kind == KindStdin) && typ != TypeString {
		return nil, fmt.Errorf("%s must be a string", param.Kind)
	}
	prop := &jsonschema.Schema{Description: param.Description}
	switch typ {
	case TypeArray:
		prop.Type = "array"
		prop.Items = &jsonschema.Schema{Type: "string"}
	case TypeString, TypeInteger, TypeBoolean:
		prop.Type = string(typ)
	default:
		return nil, fmt.Errorf("unsupported type %q", typ)
	}
	if len(param.Enum) > 0 {
		enum := make([]any, 0, len(param.Enum))
		for _, value := range param.Enum {
			enum = append(enum, value)
		}
		if typ == TypeArray {
			prop.Items.Enum = enum
		} else {
			prop.Enum = enum
		}
	}
	if param.Default != nil {
		raw, err := json.Marshal(param.Default)
		if err != nil {
			return nil, fmt.Errorf("encode default: %w", err)
		}
		prop.Default = raw
	}
	return prop, nil
}
