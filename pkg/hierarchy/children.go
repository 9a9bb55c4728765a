package hierarchy

import (
	"github.com/goliatone/go-optset/pkg/fault"
)

// Accept enforces the parent's child-type constraint.
type Accept[C any] func(child C) error

// Children is the parent side of the relation: an ordered set of children
// unique by identifier.
type Children[P comparable, C HasParent[P]] struct {
	owner  P
	items  []C
	accept Accept[C]
}

// NewChildren creates an empty collection owned by owner. accept may be nil.
func NewChildren[P comparable, C HasParent[P]](owner P, accept Accept[C]) *Children[P, C] {
	return &Children[P, C]{owner: owner, accept: accept}
}

// Assign appends child and, when the child has no parent yet, records the
// owner on the child.
func (c *Children[P, C]) Assign(child C) error {
	if c.accept != nil {
		if err := c.accept(child); err != nil {
			return fault.Wrap(fault.KindInvalidType, child.Identifier(), err, "child rejected")
		}
	}
	if parent, ok := child.Parent(); ok && parent != c.owner {
		return fault.New(fault.KindInvalid, child.Identifier(), "child belongs to another parent")
	}
	if c.Contains(child) {
		return nil
	}
	id := child.Identifier()
	if _, err := c.Get(id); err == nil {
		return fault.New(fault.KindInvalid, id, "duplicate field")
	}
	c.items = append(c.items, child)
	if _, ok := child.Parent(); !ok {
		if err := child.AssignParent(c.owner); err != nil {
			c.items = c.items[:len(c.items)-1]
			return err
		}
	}
	return nil
}

// Get finds a child by identifier.
func (c *Children[P, C]) Get(id string) (C, error) {
	for _, item := range c.items {
		if item.Identifier() == id {
			return item, nil
		}
	}
	var zero C
	return zero, fault.New(fault.KindDoesNotExist, id, "no such child")
}

// Contains reports whether child itself is held.
func (c *Children[P, C]) Contains(child C) bool {
	return c.index(child) >= 0
}

// Remove drops child and detaches it from the owner.
func (c *Children[P, C]) Remove(child C) error {
	if parent, ok := child.Parent(); !ok || parent != c.owner {
		return fault.New(fault.KindInvalid, child.Identifier(), "child is not assigned to this parent")
	}
	i := c.index(child)
	if i < 0 {
		return fault.New(fault.KindDoesNotExist, child.Identifier(), "child not present")
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	child.DetachParent()
	return nil
}

// RemoveAll removes each child in turn, stopping at the first failure.
func (c *Children[P, C]) RemoveAll(children ...C) error {
	for _, child := range children {
		if err := c.Remove(child); err != nil {
			return err
		}
	}
	return nil
}

// All returns the children in assignment order.
func (c *Children[P, C]) All() []C {
	return append([]C(nil), c.items...)
}

// IDs returns child identifiers in assignment order.
func (c *Children[P, C]) IDs() []string {
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.Identifier()
	}
	return ids
}

func (c *Children[P, C]) Len() int {
	return len(c.items)
}

func (c *Children[P, C]) index(child C) int {
	for i, item := range c.items {
		if any(item) == any(child) {
			return i
		}
	}
	return -1
}
