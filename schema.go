package optset

import (
	"reflect"
)

// FieldDescriptor describes one declared field.
type FieldDescriptor struct {
	Path       string         `json:"path"`
	Type       string         `json:"type"`
	Types      []reflect.Type `json:"-"`
	Required   bool           `json:"required"`
	Nullable   bool           `json:"nullable,omitempty"`
	Locked     bool           `json:"locked,omitempty"`
	HasDefault bool           `json:"has_default"`
	Default    any            `json:"default,omitempty"`
	Help       string         `json:"help,omitempty"`
	Rules      []Rule         `json:"rules,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(fields []FieldDescriptor) (SchemaDocument, error) {
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: fields,
	}, nil
}

// Descriptors describes every declared field in declaration order.
func (o *Options) Descriptors() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, o.children.Len())
	for _, c := range o.children.All() {
		out = append(out, c.Descriptor())
	}
	return out
}

// Descriptor describes the declaration behind o.
func (o *Option) Descriptor() FieldDescriptor {
	p := o.conf.params
	d := FieldDescriptor{
		Path:     p.field,
		Type:     descriptorType(p),
		Types:    append([]reflect.Type(nil), p.types...),
		Required: p.required,
		Nullable: p.nullable,
		Locked:   p.locked,
		Help:     p.help,
		Rules:    append([]Rule(nil), p.rules...),
	}
	if def, ok := o.conf.Default(); ok {
		d.HasDefault = true
		d.Default = def
	}
	return d
}

func descriptorType(p params) string {
	switch {
	case len(p.types) > 0:
		return p.describeTypes()
	case p.hasDefault && p.def != nil:
		return reflect.TypeOf(p.def).String()
	default:
		return "any"
	}
}

// Schema renders the declared fields with the configured generator.
func (o *Options) Schema() (SchemaDocument, error) {
	generator := o.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	return generator.Generate(o.Descriptors())
}
