package hierarchy

import (
	"github.com/goliatone/go-optset/pkg/fault"
)

// Node is anything addressable by an identifier within its parent.
type Node interface {
	Identifier() string
}

// HasParent is implemented by children. AssignParent and the parent's
// AssignChild call each other at most once per pairing.
type HasParent[P any] interface {
	Node
	Parent() (P, bool)
	AssignParent(P) error
	DetachParent()
}

// HasChildren is implemented by parents.
type HasChildren[C any] interface {
	Children() []C
	Child(id string) (C, error)
	AssignChild(C) error
	RemoveChild(C) error
}

// Link holds the child side of the relation.
type Link[P comparable] struct {
	parent   P
	assigned bool
}

// Get returns the parent and whether one is assigned.
func (l *Link[P]) Get() (P, bool) {
	return l.parent, l.assigned
}

// Assigned reports whether a parent is recorded.
func (l *Link[P]) Assigned() bool {
	return l.assigned
}

// Is reports whether p is the recorded parent.
func (l *Link[P]) Is(p P) bool {
	return l.assigned && l.parent == p
}

// Set records p. Re-recording the same parent is a no-op; a different
// parent is rejected.
func (l *Link[P]) Set(id string, p P) error {
	if l.assigned {
		if l.parent == p {
			return nil
		}
		return fault.New(fault.KindInvalid, id, "already assigned to another parent")
	}
	l.parent = p
	l.assigned = true
	return nil
}

// Clear forgets the parent.
func (l *Link[P]) Clear() {
	var zero P
	l.parent = zero
	l.assigned = false
}
