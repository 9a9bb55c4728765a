package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterDisabledWithoutHooksOrFlag(t *testing.T) {
	capture := &CaptureHook{}

	assert.False(t, NewEmitter(Hooks{capture}, Config{}).Enabled())
	assert.False(t, NewEmitter(nil, Config{Enabled: true}).Enabled())

	var nilEmitter *Emitter
	assert.False(t, nilEmitter.Enabled())
	require.NoError(t, nilEmitter.Emit(context.Background(), Event{}))
}

func TestEmitterAppliesDefaults(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "svc", TenantID: "acme"})

	require.NoError(t, emitter.Emit(context.Background(), Event{Verb: VerbReset, ObjectType: ObjectTypeOptions, ObjectID: "app"}))
	require.NoError(t, emitter.Emit(context.Background(), Event{Verb: VerbReset, ObjectType: ObjectTypeOptions, ObjectID: "app", Channel: "audit", ActorID: "admin"}))

	require.Len(t, capture.Events, 2)
	assert.Equal(t, "options", capture.Events[0].Channel)
	assert.Equal(t, "svc", capture.Events[0].ActorID)
	assert.Equal(t, "acme", capture.Events[0].TenantID)
	assert.Equal(t, "audit", capture.Events[1].Channel)
	assert.Equal(t, "admin", capture.Events[1].ActorID)
}
