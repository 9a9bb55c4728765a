package optset

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/goliatone/go-optset/internal/hydrate"
)

// PopulateJSON populates from a JSON object. Whole numbers arrive as int,
// others as float64.
func (o *Options) PopulateJSON(data []byte) error {
	payload, err := hydrate.Parse(hydrate.FormatJSON, data, hydrate.WithSource(o.id))
	if err != nil {
		return err
	}
	return o.Populate(payload)
}

// PopulateYAML populates from a YAML mapping.
func (o *Options) PopulateYAML(data []byte) error {
	payload, err := hydrate.Parse(hydrate.FormatYAML, data, hydrate.WithSource(o.id))
	if err != nil {
		return err
	}
	return o.Populate(payload)
}

// OverrideJSON layers a JSON object as one override batch.
func (o *Options) OverrideJSON(data []byte) error {
	payload, err := hydrate.Parse(hydrate.FormatJSON, data, hydrate.WithSource(o.id))
	if err != nil {
		return err
	}
	return o.Override(payload)
}

// PopulateStruct populates from the exported fields of a struct, keyed by
// their `opt` tag or field name. Tag a field `opt:",omitempty"` to leave it
// to its default when zero.
func (o *Options) PopulateStruct(in any) error {
	payload, err := structToMap(in)
	if err != nil {
		return err
	}
	return o.Populate(payload)
}

func structToMap(in any) (map[string]any, error) {
	payload := map[string]any{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &payload,
		TagName: "opt",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(in); err != nil {
		return nil, fmt.Errorf("optset: read struct %T: %w", in, err)
	}
	return payload, nil
}

// Decode copies the current snapshot into out, a pointer to a struct or
// map. Struct fields are matched by their `opt` tag or name.
func (o *Options) Decode(out any) error {
	if err := hydrate.Into(out, o.Snapshot(), "opt"); err != nil {
		return fmt.Errorf("optset: decode %s: %w", o.id, err)
	}
	return nil
}

// DecodeAs decodes the current snapshot into a new T using its `json` tags.
func DecodeAs[T any](o *Options) (T, error) {
	return hydrate.NewDecoder[T]().Decode(hydrate.Context{Source: o.id}, o.Snapshot())
}
