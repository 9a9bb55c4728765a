package optset

import (
	"errors"
	"testing"
)

func TestTraceLayers(t *testing.T) {
	o, _ := Load(shapeDecls(), map[string]any{"color": "blue", "height": 1})
	if err := o.Override(map[string]any{"color": "green"}); err != nil {
		t.Fatalf("override: %v", err)
	}
	if err := o.Override(map[string]any{"color": "black"}); err != nil {
		t.Fatalf("override: %v", err)
	}

	trace, err := o.Trace("color")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	sources := []string{"default", "populate", "override", "override"}
	if len(trace.Layers) != len(sources) {
		t.Fatalf("expected %d layers, got %+v", len(sources), trace.Layers)
	}
	for i, source := range sources {
		if trace.Layers[i].Source != source {
			t.Fatalf("layer %d: expected %s, got %s", i, source, trace.Layers[i].Source)
		}
	}
	last := trace.Layers[3]
	if !last.Active || last.Batch != 2 || last.Value != "black" {
		t.Fatalf("unexpected active layer %+v", last)
	}
	if trace.Value != "black" || trace.Defaulted {
		t.Fatalf("unexpected trace %+v", trace)
	}
}

func TestTraceDefaultedField(t *testing.T) {
	o, _ := Load(shapeDecls(), map[string]any{"height": 1})
	trace, err := o.Trace("width")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(trace.Layers) != 1 || !trace.Layers[0].Active || !trace.Defaulted {
		t.Fatalf("expected an active default layer, got %+v", trace)
	}

	if _, err := o.Trace("depth"); !errors.Is(err, ErrDoesNotExist) {
		t.Fatalf("expected ErrDoesNotExist, got %v", err)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	o, _ := Load(shapeDecls(), map[string]any{"color": "blue", "height": 1})
	trace, _ := o.Trace("color")

	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if decoded.Field != "color" || len(decoded.Layers) != 2 || !decoded.Layers[1].Active {
		t.Fatalf("unexpected decoded trace %+v", decoded)
	}
}
