package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	optset "github.com/goliatone/go-optset"
)

type generator struct {
	config config
}

// NewGenerator returns a SchemaGenerator that renders declarations as an
// OpenAPI 3 document.
func NewGenerator(opts ...GeneratorOption) optset.SchemaGenerator {
	return generator{config: newConfig(opts)}
}

// Setting wires the OpenAPI schema generator into an Options aggregate.
func Setting(opts ...GeneratorOption) optset.Setting {
	return optset.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(fields []optset.FieldDescriptor) (optset.SchemaDocument, error) {
	root, err := objectSchema(fields)
	if err != nil {
		return optset.SchemaDocument{}, err
	}
	document, err := g.config.document(root)
	if err != nil {
		return optset.SchemaDocument{}, err
	}
	return optset.SchemaDocument{
		Format:   optset.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}

func objectSchema(fields []optset.FieldDescriptor) (map[string]any, error) {
	properties := make(map[string]any, len(fields))
	var required []string
	for _, field := range fields {
		if field.Path == "" {
			return nil, fmt.Errorf("openapi: field descriptor without a path")
		}
		if _, exists := properties[field.Path]; exists {
			return nil, fmt.Errorf("openapi: duplicate field %q", field.Path)
		}
		schema, err := fieldSchema(field)
		if err != nil {
			return nil, fmt.Errorf("openapi: field %q: %w", field.Path, err)
		}
		properties[field.Path] = schema
		if field.Required {
			required = append(required, field.Path)
		}
	}
	root := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sort.Strings(required)
		root["required"] = required
	}
	return root, nil
}

func fieldSchema(field optset.FieldDescriptor) (map[string]any, error) {
	var schema map[string]any
	switch {
	case len(field.Types) == 1:
		schema = schemaForType(field.Types[0])
	case len(field.Types) > 1:
		variants := make([]any, 0, len(field.Types))
		for _, t := range field.Types {
			variants = append(variants, schemaForType(t))
		}
		schema = map[string]any{"oneOf": variants}
	case field.HasDefault && field.Default != nil:
		derived, err := buildSchema(reflect.ValueOf(field.Default))
		if err != nil {
			return nil, err
		}
		schema = derived
	default:
		schema = map[string]any{}
	}

	if field.HasDefault && field.Default != nil {
		schema["default"] = field.Default
	}
	if help := strings.TrimSpace(field.Help); help != "" {
		schema["description"] = help
	}
	if field.Nullable {
		schema["nullable"] = true
	}
	if field.Locked {
		schema["x-locked"] = true
	}
	if len(field.Rules) > 0 {
		rules := make([]any, 0, len(field.Rules))
		for _, rule := range field.Rules {
			entry := map[string]any{"expr": rule.Expr}
			if rule.Message != "" {
				entry["message"] = rule.Message
			}
			rules = append(rules, entry)
		}
		schema["x-rules"] = rules
	}
	return schema, nil
}

var timeType = reflect.TypeOf(time.Time{})

func schemaForType(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return map[string]any{"type": "string", "format": "date-time"}
	}
	switch t.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "format": "byte"}
		}
		return map[string]any{"type": "array", "items": schemaForType(t.Elem())}
	case reflect.Map, reflect.Struct:
		return map[string]any{"type": "object"}
	case reflect.Interface:
		return map[string]any{}
	default:
		return map[string]any{
			"type":   "string",
			"format": fmt.Sprintf("go:%s", t.String()),
		}
	}
}

// buildSchema infers a schema from a default value when no types are
// declared.
func buildSchema(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{}, nil
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		return schemaForMap(rv)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return schemaForType(rv.Type()), nil
		}
		items := map[string]any{}
		if rv.Len() > 0 {
			child, err := buildSchema(rv.Index(0))
			if err != nil {
				return nil, err
			}
			items = child
		}
		return map[string]any{"type": "array", "items": items}, nil
	default:
		return schemaForType(rv.Type()), nil
	}
}

func schemaForMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
	}
	properties := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		child, err := buildSchema(iter.Value())
		if err != nil {
			return nil, err
		}
		properties[iter.Key().String()] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}
