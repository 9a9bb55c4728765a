package optset

import (
	"context"
	"slices"

	"github.com/goliatone/go-optset/pkg/activity"
)

// WithActivityHooks attaches activity hooks notified after successful
// lifecycle transitions. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Setting {
	normalized := hooks.Compact()
	return func(cfg *optionsConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig sets emission defaults such as channel and actor.
func WithActivityConfig(config activity.Config) Setting {
	return func(cfg *optionsConfig) {
		cfg.activityConfig = config
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (o *Options) ActivityHooks() activity.Hooks {
	if o == nil {
		return nil
	}
	return slices.Clone(o.cfg.activityHooks)
}

func (o *Options) eventInput(fields []string, batch int) activity.LifecycleInput {
	return activity.LifecycleInput{
		ObjectID: o.id,
		Fields:   fields,
		Batch:    batch,
		State:    o.State().String(),
	}
}

// emit never fails the transition that produced the event; hook errors are
// logged.
func (o *Options) emit(event activity.Event) {
	if !o.emitter.Enabled() {
		return
	}
	if err := o.emitter.Emit(context.Background(), event); err != nil {
		o.logger.Warn("activity hook failed", "options", o.id, "verb", event.Verb, "err", err)
	}
}
