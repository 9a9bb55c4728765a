package activity

import (
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	VerbPopulated  = "options.populated"
	VerbOverridden = "options.overridden"
	VerbRestored   = "options.restored"
	VerbReset      = "options.reset"
)

// ObjectTypeOptions is the object type of every lifecycle event.
const ObjectTypeOptions = "options"

// LifecycleInput carries what an aggregate knows about a finished cycle.
// ObjectID is the aggregate id and Fields the fields the cycle touched.
// Batch and State end up in the event metadata.
type LifecycleInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Fields         []string
	Batch          int
	State          string
	Metadata       map[string]any
	OccurredAt     time.Time
}

func BuildPopulatedEvent(input LifecycleInput) Event {
	return input.event(VerbPopulated)
}

// BuildOverriddenEvent describes one applied override batch.
func BuildOverriddenEvent(input LifecycleInput) Event {
	return input.event(VerbOverridden)
}

// BuildRestoredEvent describes a restore; Fields are the reverted fields.
func BuildRestoredEvent(input LifecycleInput) Event {
	return input.event(VerbRestored)
}

func BuildResetEvent(input LifecycleInput) Event {
	return input.event(VerbReset)
}

func (in LifecycleInput) event(verb string) Event {
	event := Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(in.ActorID),
		UserID:         strings.TrimSpace(in.UserID),
		TenantID:       strings.TrimSpace(in.TenantID),
		ObjectType:     ObjectTypeOptions,
		ObjectID:       strings.TrimSpace(in.ObjectID),
		Channel:        strings.TrimSpace(in.Channel),
		DefinitionCode: strings.TrimSpace(in.DefinitionCode),
		Recipients:     slices.Clone(in.Recipients),
		Fields:         slices.Clone(in.Fields),
		OccurredAt:     in.OccurredAt,
	}
	if event.ObjectID == "" {
		event.ObjectID = ObjectTypeOptions
	}
	if len(in.Metadata) > 0 {
		event.Metadata = maps.Clone(in.Metadata)
	}
	if in.Batch > 0 {
		event.Metadata = with(event.Metadata, "batch", in.Batch)
	}
	if in.State != "" {
		event.Metadata = with(event.Metadata, "state", in.State)
	}
	return event
}

func with(meta map[string]any, key string, value any) map[string]any {
	if meta == nil {
		meta = map[string]any{}
	}
	meta[key] = value
	return meta
}
