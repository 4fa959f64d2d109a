package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON schema from an argument struct. Fields
// without omitempty are required.
func SchemaFor(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// describe sets a field's description on a reflected schema. Struct
// tags cannot hold these: the tag parser splits on commas, which the
// description texts contain.
func describe(schema *jsonschema.Schema, field, description string) *jsonschema.Schema {
	if prop, ok := schema.Properties.Get(field); ok {
		prop.Description = description
	}
	return schema
}

// schemaView is the subset of JSON Schema the validator understands.
type schemaView struct {
	Required   []string `json:"required"`
	Properties map[string]struct {
		Type string `json:"type"`
	} `json:"properties"`
}

// validateArgs checks decoded arguments against a schema: required
// fields must be present and primitive types must match. Anything the
// view cannot express is accepted; deeper validation is the handler's
// problem.
func validateArgs(args map[string]any, schema any) error {
	if schema == nil {
		return nil
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var view schemaView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil
	}

	for _, field := range view.Required {
		if _, exists := args[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	for key, value := range args {
		prop, ok := view.Properties[key]
		if !ok || prop.Type == "" {
			continue
		}
		if err := checkType(value, prop.Type); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}

	return nil
}

func checkType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number", "integer":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("expected %s, got %T", expected, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	}
	return nil
}
