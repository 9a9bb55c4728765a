package optset

import (
	"reflect"

	"github.com/goliatone/go-optset/internal/clone"
	"github.com/goliatone/go-optset/pkg/fault"
	"github.com/goliatone/go-optset/pkg/routine"
)

// Routine ids used by Configuration, Option and Options.
const (
	RoutineConfiguring = "configuring"
	RoutineDefaulting  = "defaulting"
	RoutinePopulating  = "populating"
	RoutineOverriding  = "overriding"
	RoutineRestoring   = "restoring"
)

// valueState is the slot behind a Configuration. raw is only meaningful when
// set is true.
type valueState struct {
	raw       any
	set       bool
	defaulted bool
	locked    bool
}

// Configuration is a named, constrained value slot.
type Configuration struct {
	params     params
	state      valueState
	routines   *routine.Routines
	configured bool
	postSet    func() error
}

// NewConfiguration declares a field and validates the declaration.
func NewConfiguration(field string, ps ...Param) (*Configuration, error) {
	c := newConfiguration()
	if err := c.configure(newParams(field, ps)); err != nil {
		return nil, err
	}
	return c, nil
}

func newConfiguration() *Configuration {
	c := &Configuration{}
	c.routines, _ = routine.NewRoutines(
		routine.New(RoutineConfiguring),
		routine.New(RoutineDefaulting),
	)
	return c
}

func (c *Configuration) configure(next params) error {
	r := c.routines.MustGet(RoutineConfiguring)
	if r.Errored() {
		if err := r.Reset(); err != nil {
			return err
		}
	}
	return r.Run(func() error {
		if err := next.validateConfiguration(); err != nil {
			return err
		}
		if c.state.set && c.state.raw != nil {
			if err := next.check(c.state.raw); err != nil {
				return fault.Wrap(fault.KindConfiguration, next.field, err, "current value violates the new constraints")
			}
		}
		c.params = next
		if !c.state.set {
			c.state.locked = next.locked
		} else if next.locked {
			c.state.locked = true
		}
		c.configured = true
		return nil
	})
}

// Reconfigure applies ps on top of the current declaration. The change is
// rolled back when the resulting declaration is invalid.
func (c *Configuration) Reconfigure(ps ...Param) error {
	if !c.configured {
		return fault.New(fault.KindNotConfigured, "", "configuration was not declared with NewConfiguration")
	}
	next := c.params.clone()
	for _, p := range ps {
		if p != nil {
			p(&next)
		}
	}
	next.field = c.params.field
	return c.configure(next)
}

func (c *Configuration) ready() error {
	if c == nil || !c.configured {
		return fault.New(fault.KindNotConfigured, "", "configuration was not declared with NewConfiguration")
	}
	if c.routines.MustGet(RoutineConfiguring).InProgress() {
		return fault.New(fault.KindConfiguring, c.params.field, "value cannot change while configuring")
	}
	return nil
}

// Field returns the declared name.
func (c *Configuration) Field() string {
	return c.params.field
}

// Value returns the normalized value. A nil value on an optional field reads
// as the normalized default.
func (c *Configuration) Value() (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if !c.state.set {
		return nil, fault.New(fault.KindNotSet, c.params.field, "value has not been set")
	}
	if c.state.raw == nil {
		if c.params.required {
			return nil, fault.New(fault.KindRequired, c.params.field, "required field holds nil")
		}
		if c.params.hasDefault {
			return c.normalize(clone.Value(c.params.def)), nil
		}
		return nil, nil
	}
	return c.normalize(c.state.raw), nil
}

func (c *Configuration) normalize(v any) any {
	if c.params.normalize == nil {
		return v
	}
	return c.params.normalize(v)
}

// Raw returns the stored value without normalization.
func (c *Configuration) Raw() (any, bool) {
	return c.state.raw, c.state.set
}

// Set validates value and commits it. A rejected value leaves the slot
// untouched.
func (c *Configuration) Set(value any) error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.state.locked && c.state.set {
		return fault.New(fault.KindLocked, c.params.field, "value is locked")
	}
	if err := c.params.check(value); err != nil {
		return err
	}
	c.commit(value, false)
	return c.afterSet()
}

// SetOnce is Set for slots that must not already hold a value.
func (c *Configuration) SetOnce(value any) error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.state.set {
		return fault.New(fault.KindSet, c.params.field, "value already set")
	}
	return c.Set(value)
}

// SetDefault commits the declared default through the defaulting routine.
func (c *Configuration) SetDefault() error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.state.locked && c.state.set {
		return fault.New(fault.KindLocked, c.params.field, "value is locked")
	}
	if c.params.required {
		return fault.New(fault.KindRequired, c.params.field, "a value is required and no default exists")
	}
	r := c.routines.MustGet(RoutineDefaulting)
	if r.Errored() {
		if err := r.Reset(); err != nil {
			return err
		}
	}
	err := r.Run(func() error {
		var value any
		if c.params.hasDefault {
			value = clone.Value(c.params.def)
		}
		c.commit(value, true)
		return r.Register(c.params.field, routine.ToHistory(false))
	})
	if err != nil {
		return err
	}
	return c.afterSet()
}

func (c *Configuration) commit(value any, defaulted bool) {
	c.state.raw = value
	c.state.set = true
	c.state.defaulted = defaulted
	if !defaulted {
		if r := c.routines.MustGet(RoutineDefaulting); r.Finished() {
			_ = r.Reset()
		}
	}
}

func (c *Configuration) afterSet() error {
	if c.postSet == nil {
		return nil
	}
	return c.postSet()
}

// Check runs the validation pipeline against value without storing it.
func (c *Configuration) Check(value any) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.params.check(value)
}

// Reset unsets the value and returns every routine to NotStarted.
func (c *Configuration) Reset() error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.routines.MustGet(RoutineDefaulting).Reset(); err != nil {
		return err
	}
	c.state = valueState{locked: c.params.locked}
	return nil
}

// Lock forbids further changes once set.
func (c *Configuration) Lock() {
	c.state.locked = true
}

// Unlock lifts a lock.
func (c *Configuration) Unlock() {
	c.state.locked = false
}

func (c *Configuration) IsSet() bool { return c.state.set }
func (c *Configuration) IsDefaulted() bool { return c.state.set && c.state.defaulted }
func (c *Configuration) IsLocked() bool { return c.state.locked }
func (c *Configuration) IsRequired() bool { return c.params.required }
func (c *Configuration) IsNullable() bool { return c.params.nullable }
func (c *Configuration) HelpText() string { return c.params.help }

// Default returns the declared default and whether one exists.
func (c *Configuration) Default() (any, bool) {
	if !c.params.hasDefault {
		return nil, false
	}
	return clone.Value(c.params.def), true
}

// Types returns the accepted types, nil when unconstrained.
func (c *Configuration) Types() []reflect.Type {
	return append([]reflect.Type(nil), c.params.types...)
}

// Routines exposes the configuring and defaulting routines.
func (c *Configuration) Routines() *routine.Routines {
	return c.routines
}

// Clone returns an unset copy of the declaration with fresh routines.
func (c *Configuration) Clone() *Configuration {
	out := newConfiguration()
	out.params = c.params.clone()
	out.configured = c.configured
	out.state = valueState{locked: out.params.locked}
	return out
}
