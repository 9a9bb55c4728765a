package routine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-optset/pkg/fault"
)

func newRegistry(t *testing.T) *Routines {
	t.Helper()
	rs, err := NewRoutines(New("configuring"), New("populating"), New("overriding"), New("restoring"))
	require.NoError(t, err)
	return rs
}

func TestRoutinesLookup(t *testing.T) {
	rs := newRegistry(t)

	r, err := rs.Get("populating")
	require.NoError(t, err)
	assert.Equal(t, "populating", r.ID())

	_, err = rs.Get("publishing")
	assert.ErrorIs(t, err, fault.ErrDoesNotExist)
	assert.Equal(t, []string{"configuring", "populating", "overriding", "restoring"}, rs.IDs())
	assert.Panics(t, func() { rs.MustGet("nope") })
}

func TestRoutinesDuplicateID(t *testing.T) {
	_, err := NewRoutines(New("populating"), New("populating"))
	assert.ErrorIs(t, err, fault.ErrConfiguration)
}

func TestRoutinesSubsectionSharesState(t *testing.T) {
	rs := newRegistry(t)
	view, err := rs.Subsection("populating", "overriding", "restoring")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Len())

	assert.False(t, view.Any(IsInProgress))
	require.NoError(t, rs.MustGet("overriding").Enter())
	assert.True(t, view.Any(IsInProgress))

	require.NoError(t, view.MustGet("overriding").Exit(nil))
	assert.True(t, rs.MustGet("overriding").Finished())
	assert.False(t, view.All(IsFinished))

	_, err = rs.Subsection("populating", "missing")
	assert.ErrorIs(t, err, fault.ErrDoesNotExist)
}

func TestRoutinesResetAll(t *testing.T) {
	rs := newRegistry(t)
	rs.Each(func(r *Routine) {
		require.NoError(t, r.Run(func() error { return r.Register(r.ID()) }))
	})
	assert.True(t, rs.All(IsFinished))

	require.NoError(t, rs.Reset())
	assert.True(t, rs.All(IsNotStarted))
	rs.Each(func(r *Routine) {
		assert.Zero(t, r.HistoryLen())
	})
}

func TestRoutinesResetStopsOnInProgress(t *testing.T) {
	rs := newRegistry(t)
	require.NoError(t, rs.MustGet("populating").Enter())
	assert.ErrorIs(t, rs.Reset(), fault.ErrRoutineInProgress)
}
