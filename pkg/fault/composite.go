package fault

import (
	"fmt"
	"iter"
	"strings"
)

// Failures groups nested failures yielded as one item. Accumulate flattens
// it before collection.
type Failures []error

func (f Failures) Error() string {
	parts := make([]string, 0, len(f))
	for _, err := range f {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	return strings.Join(parts, "; ")
}

func (f Failures) Unwrap() []error {
	return []error(f)
}

// CompositeError bundles every failure produced by one validation pass.
type CompositeError struct {
	Kind     Kind
	Message  string
	Children []error
}

func (e *CompositeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	switch len(e.Children) {
	case 0:
	case 1:
		b.WriteString(": ")
		b.WriteString(e.Children[0].Error())
	default:
		fmt.Fprintf(&b, " (%d errors)", len(e.Children))
		for _, child := range e.Children {
			b.WriteString("\n  - ")
			b.WriteString(child.Error())
		}
	}
	return b.String()
}

func (e *CompositeError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Children
}

func (e *CompositeError) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == ErrComposite || target == e.Kind.Sentinel()
}

// Accumulate drains seq and returns a CompositeError of kind k holding every
// non-nil failure, or nil when the sequence yielded none.
func Accumulate(k Kind, message string, seq iter.Seq[error]) error {
	var collected []error
	if seq != nil {
		for err := range seq {
			collected = flatten(collected, err)
		}
	}
	if len(collected) == 0 {
		return nil
	}
	return &CompositeError{
		Kind:     k,
		Message:  message,
		Children: collected,
	}
}

// Collect runs fn with a yield function and accumulates what it reports.
func Collect(k Kind, message string, fn func(report func(error))) error {
	return Accumulate(k, message, func(yield func(error) bool) {
		stopped := false
		fn(func(err error) {
			if stopped {
				return
			}
			if !yield(err) {
				stopped = true
			}
		})
	})
}

func flatten(dst []error, err error) []error {
	if err == nil {
		return dst
	}
	switch typed := err.(type) {
	case Failures:
		for _, child := range typed {
			dst = flatten(dst, child)
		}
		return dst
	case interface{ Unwrap() []error }:
		children := typed.Unwrap()
		if _, composite := err.(*CompositeError); composite || !joined(err, children) {
			return append(dst, err)
		}
		for _, child := range children {
			dst = flatten(dst, child)
		}
		return dst
	default:
		return append(dst, err)
	}
}

// joined reports whether err only joins children, the way errors.Join does.
// A multi-%w fmt.Errorf adds its own text and is kept whole.
func joined(err error, children []error) bool {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		if child != nil {
			parts = append(parts, child.Error())
		}
	}
	return err.Error() == strings.Join(parts, "\n")
}
