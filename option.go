package optset

import (
	"fmt"
	"iter"

	"github.com/goliatone/go-optset/internal/clone"
	"github.com/goliatone/go-optset/pkg/fault"
	"github.com/goliatone/go-optset/pkg/hierarchy"
	"github.com/goliatone/go-optset/pkg/routine"
)

var _ hierarchy.HasParent[*Options] = (*Option)(nil)

// Option is a Configuration owned by an Options aggregate. It adds the
// populate, override and restore lifecycle on top of the value slot.
type Option struct {
	link     hierarchy.Link[*Options]
	conf     *Configuration
	routines *routine.Routines
}

// NewOption declares a field. Declaration errors match ErrConfiguration.
func NewOption(field string, ps ...Param) (*Option, error) {
	conf, err := NewConfiguration(field, ps...)
	if err != nil {
		return nil, err
	}
	return newOption(conf), nil
}

// MustOption is NewOption for package-level declarations; it panics on an
// invalid declaration.
func MustOption(field string, ps ...Param) *Option {
	o, err := NewOption(field, ps...)
	if err != nil {
		panic(err)
	}
	return o
}

func newOption(conf *Configuration) *Option {
	o := &Option{conf: conf}
	hook := routine.WithPostHook(func(*routine.Routine) error {
		return o.settle()
	})
	logger := routine.WithLogger(conf.params.logger)
	o.routines, _ = routine.NewRoutines(
		routine.New(RoutinePopulating, hook, logger),
		routine.New(RoutineOverriding, hook, logger),
		routine.New(RoutineRestoring, hook, logger),
	)
	conf.postSet = o.afterSet
	return o
}

func (o *Option) Identifier() string {
	return o.conf.Field()
}

// Field returns the declared name.
func (o *Option) Field() string {
	return o.conf.Field()
}

// Configuration exposes the underlying value slot.
func (o *Option) Configuration() *Configuration {
	return o.conf
}

// Routines exposes the populating, overriding and restoring routines.
func (o *Option) Routines() *routine.Routines {
	return o.routines
}

func (o *Option) Parent() (*Options, bool) {
	return o.link.Get()
}

// AssignParent binds the option to p and makes sure p lists it as a child.
func (o *Option) AssignParent(p *Options) error {
	if p == nil {
		return fault.New(fault.KindInvalid, o.Field(), "parent must not be nil")
	}
	if err := o.link.Set(o.Field(), p); err != nil {
		return err
	}
	if p.children.Contains(o) {
		return nil
	}
	if err := p.children.Assign(o); err != nil {
		o.link.Clear()
		return err
	}
	return nil
}

func (o *Option) DetachParent() {
	o.link.Clear()
}

func (o *Option) routine(id string) *routine.Routine {
	return o.routines.MustGet(id)
}

// Populate sets value as the explicitly supplied value and remembers it as
// the value Restore returns to.
func (o *Option) Populate(value any) error {
	r := o.routine(RoutinePopulating)
	if err := resetErrored(r); err != nil {
		return err
	}
	return r.Run(func() error {
		if err := o.conf.Set(value); err != nil {
			return err
		}
		r.ClearHistory()
		return r.Register(clone.Value(value), routine.ToQueue(false))
	})
}

// PopulateDefault sets the declared default and forgets any populated value.
func (o *Option) PopulateDefault() error {
	r := o.routine(RoutinePopulating)
	if err := resetErrored(r); err != nil {
		return err
	}
	return r.Run(func() error {
		if err := o.conf.SetDefault(); err != nil {
			return err
		}
		r.ClearHistory()
		return nil
	})
}

// Override layers value on top of the current one. The option must already
// hold a value.
func (o *Option) Override(value any) error {
	if !o.conf.IsSet() {
		return fault.New(fault.KindNotSet, o.Field(), "cannot override a value that was never set")
	}
	r := o.routine(RoutineOverriding)
	if r.Errored() {
		history := r.History()
		if err := r.Reset(); err != nil {
			return err
		}
		for _, entry := range history {
			_ = r.Register(entry, routine.ToQueue(false))
		}
	}
	return r.Run(func() error {
		if err := o.conf.Set(value); err != nil {
			return err
		}
		return r.Register(clone.Value(value), routine.ToQueue(false))
	})
}

// Restore reverts an overridden option to its populated value, or to its
// default when the value it overrode was defaulted. It is a no-op when the
// option was never overridden.
func (o *Option) Restore() error {
	overriding := o.routine(RoutineOverriding)
	if overriding.HistoryLen() == 0 {
		return resetErrored(overriding)
	}
	r := o.routine(RoutineRestoring)
	if err := resetErrored(r); err != nil {
		return err
	}
	err := r.Run(func() error {
		populated := o.routine(RoutinePopulating).History()
		if len(populated) == 1 {
			return o.conf.Set(clone.Value(populated[0]))
		}
		return o.conf.SetDefault()
	})
	if err != nil {
		return err
	}
	return overriding.Reset()
}

// Set commits value outside of any lifecycle routine. Field constraints and
// sibling checks run immediately.
func (o *Option) Set(value any) error {
	return o.conf.Set(value)
}

// Value returns the normalized value.
func (o *Option) Value() (any, error) {
	return o.conf.Value()
}

func (o *Option) IsSet() bool { return o.conf.IsSet() }
func (o *Option) IsDefaulted() bool { return o.conf.IsDefaulted() }
func (o *Option) IsLocked() bool { return o.conf.IsLocked() }
func (o *Option) IsRequired() bool { return o.conf.IsRequired() }

// IsPopulated reports whether the current populate cycle supplied an
// explicit value.
func (o *Option) IsPopulated() bool {
	return o.routine(RoutinePopulating).HistoryLen() > 0
}

// IsOverridden reports whether an override is layered on the value.
func (o *Option) IsOverridden() bool {
	return o.routine(RoutineOverriding).HistoryLen() > 0
}

// Reset unsets the value and returns every routine to NotStarted.
func (o *Option) Reset() error {
	if err := o.routines.Reset(); err != nil {
		return err
	}
	return o.conf.Reset()
}

// Clone returns an unset, unattached copy of the declaration.
func (o *Option) Clone() *Option {
	return newOption(o.conf.Clone())
}

func (o *Option) afterSet() error {
	if o.routines.Any(routine.IsInProgress) {
		return nil
	}
	return o.settle()
}

// settle runs after the value changed. PostProcess always runs right away;
// sibling checks run right away too unless the parent is in the middle of a
// cycle, in which case the option joins that cycle's queue.
func (o *Option) settle() error {
	value, err := o.conf.Value()
	if err != nil {
		return err
	}
	if fn := o.conf.params.postProcess; fn != nil {
		if err := fn(value); err != nil {
			return fmt.Errorf("optset: post-process %s: %w", o.Field(), err)
		}
	}
	parent, ok := o.Parent()
	if !ok {
		return nil
	}
	if r := parent.activeRoutine(); r != nil {
		return r.Register(o, routine.ToHistory(false))
	}
	if err := fault.Accumulate(fault.KindOptionsInvalid, o.Field()+" is inconsistent with its siblings", o.withOptionsFailures(parent)); err != nil {
		return err
	}
	return o.postProcessWithOptions(parent)
}

// withOptionsFailures yields the failures of the checks that need sibling
// values: ValidateWithOptions and Expect rules.
func (o *Option) withOptionsFailures(parent *Options) iter.Seq[error] {
	return func(yield func(error) bool) {
		if !o.conf.IsSet() {
			return
		}
		value, err := o.conf.Value()
		if err != nil {
			yield(err)
			return
		}
		if fn := o.conf.params.validateWithOptions; fn != nil {
			if err := fn(value, parent); err != nil {
				if !fault.IsInvalid(err) {
					err = fault.Wrap(fault.KindInvalid, o.Field(), err, "")
				}
				if !yield(err) {
					return
				}
			}
		}
		for _, rule := range o.conf.params.rules {
			if err := parent.checkRule(rule, o.Field(), value); err != nil {
				if !yield(err) {
					return
				}
			}
		}
	}
}

func (o *Option) postProcessWithOptions(parent *Options) error {
	fn := o.conf.params.postProcessWithOptions
	if fn == nil || !o.conf.IsSet() {
		return nil
	}
	value, err := o.conf.Value()
	if err != nil {
		return err
	}
	if err := fn(value, parent); err != nil {
		return fmt.Errorf("optset: post-process %s: %w", o.Field(), err)
	}
	return nil
}

func resetErrored(r *routine.Routine) error {
	if !r.Errored() {
		return nil
	}
	return r.Reset()
}
