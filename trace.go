package optset

import (
	"encoding/json"
)

// Trace records where the current value of a field came from.
type Trace struct {
	Field     string       `json:"field"`
	Layers    []Provenance `json:"layers"`
	Value     any          `json:"value,omitempty"`
	Set       bool         `json:"set"`
	Defaulted bool         `json:"defaulted"`
}

// Provenance is one contribution to a traced field. Source is one of
// "default", "populate" or "override"; Batch numbers override batches from 1.
type Provenance struct {
	Source string `json:"source"`
	Batch  int    `json:"batch,omitempty"`
	Value  any    `json:"value,omitempty"`
	Active bool   `json:"active"`
}

// Trace reports the default, populated value and override batches of field,
// oldest first. The layer the current value came from is marked active.
func (o *Options) Trace(field string) (Trace, error) {
	c, err := o.children.Get(field)
	if err != nil {
		return Trace{}, err
	}
	trace := Trace{
		Field:     field,
		Set:       c.IsSet(),
		Defaulted: c.IsDefaulted(),
	}
	if trace.Set {
		trace.Value, _ = c.Value()
	}
	if def, ok := c.conf.Default(); ok {
		trace.Layers = append(trace.Layers, Provenance{Source: "default", Value: def})
	}
	if populated := c.routine(RoutinePopulating).History(); len(populated) == 1 {
		trace.Layers = append(trace.Layers, Provenance{Source: "populate", Value: populated[0]})
	}
	for i, value := range c.routine(RoutineOverriding).History() {
		trace.Layers = append(trace.Layers, Provenance{Source: "override", Batch: i + 1, Value: value})
	}
	if trace.Set && len(trace.Layers) > 0 {
		active := len(trace.Layers) - 1
		if trace.Defaulted {
			active = 0
		}
		trace.Layers[active].Active = true
	}
	return trace, nil
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
