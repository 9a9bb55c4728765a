package usersink

import (
	"context"

	"github.com/goliatone/go-optset/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook writes lifecycle events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify drops incomplete events and does nothing without a sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	event = activity.NormalizeEvent(event)
	if h.Sink == nil || !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record maps a normalized event onto an ActivityRecord. Identity fields
// that do not parse as UUIDs become uuid.Nil. Metadata, definition code,
// fields and recipients all land in Data.
func Record(event activity.Event) usertypes.ActivityRecord {
	return usertypes.ActivityRecord{
		ActorID:    idOrNil(event.ActorID),
		UserID:     idOrNil(event.UserID),
		TenantID:   idOrNil(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       event.Data(),
		OccurredAt: event.OccurredAt,
	}
}

func idOrNil(value string) uuid.UUID {
	if id, err := uuid.Parse(value); err == nil {
		return id
	}
	return uuid.Nil
}
