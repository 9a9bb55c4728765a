package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := New(KindLocked, "color", "cannot change a locked value")

	assert.ErrorIs(t, err, ErrLocked)
	assert.NotErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "value locked [color]: cannot change a locked value", err.Error())
	assert.Equal(t, KindLocked, KindOf(fmt.Errorf("outer: %w", err)))
}

func TestInvalidKindsMatchErrInvalid(t *testing.T) {
	for _, kind := range []Kind{KindInvalid, KindInvalidType, KindRequired} {
		err := New(kind, "height", "")
		assert.ErrorIs(t, err, ErrInvalid, kind.String())
		assert.True(t, IsInvalid(err), kind.String())
	}
	assert.False(t, IsInvalid(New(KindDoesNotExist, "x", "")))
	assert.False(t, IsInvalid(errors.New("plain")))
	assert.False(t, IsInvalid(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := New(KindInvalidType, "width", "expected int, got float64")
	err := Wrap(KindConfiguration, "width", cause, "default rejected")

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Contains(t, err.Error(), "expected int")
}

func TestAccumulateReturnsNilWithoutFailures(t *testing.T) {
	err := Accumulate(KindOptionsInvalid, "options", func(yield func(error) bool) {
		yield(nil)
		yield(nil)
	})
	assert.NoError(t, err)
	assert.NoError(t, Accumulate(KindOptionsInvalid, "", nil))
}

func TestAccumulateFlattensNestedFailures(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	c := errors.New("c")
	d := errors.New("d")

	err := Accumulate(KindOptionsInvalid, "validation failed", func(yield func(error) bool) {
		if !yield(a) {
			return
		}
		if !yield(Failures{b, Failures{c}}) {
			return
		}
		yield(errors.Join(d, nil))
	})
	require.Error(t, err)

	var composite *CompositeError
	require.ErrorAs(t, err, &composite)
	assert.Equal(t, []error{a, b, c, d}, composite.Children)
	assert.ErrorIs(t, err, ErrOptionsInvalid)
	assert.ErrorIs(t, err, ErrComposite)
	assert.ErrorIs(t, err, c)
}

func TestAccumulateKeepsWrappedMultiErrors(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	wrapped := fmt.Errorf("decode payload: %w; %w", a, b)

	err := Accumulate(KindOptionsInvalid, "", func(yield func(error) bool) {
		yield(wrapped)
	})

	var composite *CompositeError
	require.ErrorAs(t, err, &composite)
	assert.Equal(t, []error{wrapped}, composite.Children)
	assert.Contains(t, err.Error(), "decode payload")
	assert.ErrorIs(t, err, b)
}

func TestAccumulateKeepsNestedCompositeIntact(t *testing.T) {
	inner := &CompositeError{Kind: KindInvalid, Children: []error{errors.New("x"), errors.New("y")}}
	err := Accumulate(KindOptionsInvalid, "", func(yield func(error) bool) {
		yield(inner)
	})

	var composite *CompositeError
	require.ErrorAs(t, err, &composite)
	require.Len(t, composite.Children, 1)
	assert.Same(t, inner, composite.Children[0])
}

func TestCollectReportsAll(t *testing.T) {
	err := Collect(KindOptionsInvalid, "", func(report func(error)) {
		report(New(KindInvalid, "height", "height<width"))
		report(nil)
		report(New(KindRequired, "color", ""))
	})

	var composite *CompositeError
	require.ErrorAs(t, err, &composite)
	assert.Len(t, composite.Children, 2)
	assert.Contains(t, err.Error(), "height<width")
	assert.Contains(t, err.Error(), "(2 errors)")
}
