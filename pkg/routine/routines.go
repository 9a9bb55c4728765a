package routine

import (
	"github.com/goliatone/go-optset/pkg/fault"
)

// Predicate inspects a routine, see Any and All.
type Predicate func(*Routine) bool

var (
	IsInProgress Predicate = (*Routine).InProgress
	IsFinished   Predicate = (*Routine).Finished
	IsErrored    Predicate = (*Routine).Errored
	IsNotStarted Predicate = (*Routine).NotStarted
)

// Routines is a fixed, ordered registry of routines keyed by id. Views
// returned by Subsection share the underlying routines.
type Routines struct {
	order []string
	byID  map[string]*Routine
}

// NewRoutines registers routines in the given order. Ids must be unique.
func NewRoutines(routines ...*Routine) (*Routines, error) {
	rs := &Routines{byID: make(map[string]*Routine, len(routines))}
	for _, r := range routines {
		if r == nil {
			continue
		}
		if _, exists := rs.byID[r.id]; exists {
			return nil, fault.New(fault.KindConfiguration, r.id, "duplicate routine id")
		}
		rs.order = append(rs.order, r.id)
		rs.byID[r.id] = r
	}
	return rs, nil
}

// Get returns the routine registered under id.
func (rs *Routines) Get(id string) (*Routine, error) {
	if rs == nil {
		return nil, fault.New(fault.KindDoesNotExist, id, "routine does not exist")
	}
	r, ok := rs.byID[id]
	if !ok {
		return nil, fault.New(fault.KindDoesNotExist, id, "routine does not exist")
	}
	return r, nil
}

// MustGet is Get for ids fixed at construction time.
func (rs *Routines) MustGet(id string) *Routine {
	r, err := rs.Get(id)
	if err != nil {
		panic(err)
	}
	return r
}

// IDs returns the registered ids in registration order.
func (rs *Routines) IDs() []string {
	if rs == nil {
		return nil
	}
	return append([]string(nil), rs.order...)
}

// Len reports the number of routines.
func (rs *Routines) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.order)
}

// Subsection returns a view over ids. Mutations through the view are visible
// in rs.
func (rs *Routines) Subsection(ids ...string) (*Routines, error) {
	view := &Routines{byID: make(map[string]*Routine, len(ids))}
	for _, id := range ids {
		r, err := rs.Get(id)
		if err != nil {
			return nil, err
		}
		if _, exists := view.byID[id]; exists {
			continue
		}
		view.order = append(view.order, id)
		view.byID[id] = r
	}
	return view, nil
}

// Any reports whether pred holds for at least one routine.
func (rs *Routines) Any(pred Predicate) bool {
	if rs == nil || pred == nil {
		return false
	}
	for _, id := range rs.order {
		if pred(rs.byID[id]) {
			return true
		}
	}
	return false
}

// All reports whether pred holds for every routine. An empty registry
// yields true.
func (rs *Routines) All(pred Predicate) bool {
	if rs == nil || pred == nil {
		return true
	}
	for _, id := range rs.order {
		if !pred(rs.byID[id]) {
			return false
		}
	}
	return true
}

// Each calls fn for every routine in order.
func (rs *Routines) Each(fn func(*Routine)) {
	if rs == nil || fn == nil {
		return
	}
	for _, id := range rs.order {
		fn(rs.byID[id])
	}
}

// Reset resets every routine, stopping at the first failure.
func (rs *Routines) Reset() error {
	if rs == nil {
		return nil
	}
	for _, id := range rs.order {
		if err := rs.byID[id].Reset(); err != nil {
			return err
		}
	}
	return nil
}
