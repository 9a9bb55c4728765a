package activity

import (
	"context"
	"strings"
)

// DefaultChannel is used when Config.Channel is blank.
const DefaultChannel = "options"

// Config holds emission defaults. The identity fields fill events that leave
// them blank.
type Config struct {
	Enabled  bool
	Channel  string
	ActorID  string
	UserID   string
	TenantID string
}

func (c Config) stamp(event Event) Event {
	for _, slot := range []struct {
		field *string
		value string
	}{
		{&event.Channel, c.Channel},
		{&event.ActorID, c.ActorID},
		{&event.UserID, c.UserID},
		{&event.TenantID, c.TenantID},
	} {
		if strings.TrimSpace(*slot.field) == "" {
			*slot.field = slot.value
		}
	}
	return event
}

// Emitter sends lifecycle events to hooks with Config defaults applied.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	if cfg.Channel = strings.TrimSpace(cfg.Channel); cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	return &Emitter{hooks: hooks.Compact(), cfg: cfg}
}

// Enabled is false for a nil emitter, a disabled config or when no hooks
// are attached.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled && e.hooks.Enabled()
}

func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	return e.hooks.Notify(ctx, e.cfg.stamp(event))
}
