package optset

import (
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-optset/pkg/activity"
	"github.com/goliatone/go-optset/pkg/fault"
	"github.com/goliatone/go-optset/pkg/hierarchy"
	"github.com/goliatone/go-optset/pkg/routine"
)

var _ hierarchy.HasChildren[*Option] = (*Options)(nil)

// Options owns a set of declared fields and validates them as a whole.
type Options struct {
	id       string
	cfg      optionsConfig
	children *hierarchy.Children[*Options, *Option]
	routines *routine.Routines
	logger   *slog.Logger
	emitter  *activity.Emitter
}

// New builds an aggregate from declarations. Every declaration is cloned,
// so one declaration list can back any number of aggregates.
func New(decls []*Option, settings ...Setting) (*Options, error) {
	cfg := applySettings(settings)
	if cfg.err != nil {
		return nil, cfg.err
	}
	o := &Options{
		id:     strings.TrimSpace(cfg.id),
		cfg:    cfg,
		logger: cfg.logger,
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}
	if o.cfg.evaluatorLogger == nil {
		o.cfg.evaluatorLogger = SlogEvaluatorLogger(cfg.logger)
	}
	o.emitter = activity.NewEmitter(cfg.activityHooks, cfg.activityConfig)
	o.children = hierarchy.NewChildren[*Options, *Option](o, func(c *Option) error {
		if c == nil || c.conf == nil || !c.conf.configured {
			return fault.New(fault.KindNotConfigured, "", "option was not declared with NewOption")
		}
		return nil
	})

	hook := routine.WithPostHook(o.afterCycle)
	logger := routine.WithLogger(o.logger)
	o.routines, _ = routine.NewRoutines(
		routine.New(RoutinePopulating, hook, logger),
		routine.New(RoutineOverriding, hook, logger),
		routine.New(RoutineRestoring, hook, logger),
	)

	for i, decl := range decls {
		if decl == nil || decl.conf == nil {
			return nil, fault.New(fault.KindConfiguration, "", "declaration %d was not built with NewOption", i)
		}
		if err := o.AssignChild(decl.Clone()); err != nil {
			return nil, fault.Wrap(fault.KindConfiguration, decl.Field(), err, "cannot declare field")
		}
	}
	return o, nil
}

// Load builds an aggregate and populates it with data.
func Load(decls []*Option, data map[string]any, settings ...Setting) (*Options, error) {
	o, err := New(decls, settings...)
	if err != nil {
		return nil, err
	}
	if err := o.Populate(data); err != nil {
		return nil, err
	}
	return o, nil
}

// ID identifies the aggregate in activity events.
func (o *Options) ID() string {
	return o.id
}

// Routines exposes the populating, overriding and restoring routines.
func (o *Options) Routines() *routine.Routines {
	return o.routines
}

func (o *Options) Children() []*Option {
	return o.children.All()
}

func (o *Options) Child(field string) (*Option, error) {
	return o.children.Get(field)
}

func (o *Options) AssignChild(c *Option) error {
	return o.children.Assign(c)
}

func (o *Options) RemoveChild(c *Option) error {
	return o.children.Remove(c)
}

// Fields returns the declared field names in declaration order.
func (o *Options) Fields() []string {
	return o.children.IDs()
}

// Get returns the option declared as field.
func (o *Options) Get(field string) (*Option, error) {
	return o.children.Get(field)
}

// Value returns the normalized value of field.
func (o *Options) Value(field string) (any, error) {
	c, err := o.children.Get(field)
	if err != nil {
		return nil, err
	}
	return c.Value()
}

// Set assigns field outside of a lifecycle cycle. Field checks and sibling
// checks run immediately; aggregate validation does not.
func (o *Options) Set(field string, value any) error {
	c, err := o.children.Get(field)
	if err != nil {
		return err
	}
	return c.Set(value)
}

// ValueOf returns field converted to T.
func ValueOf[T any](o *Options, field string) (T, error) {
	var zero T
	value, err := o.Value(field)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fault.New(fault.KindInvalidType, field, "holds %T, not %T", value, zero)
	}
	return typed, nil
}

// State reports where the aggregate is in its lifecycle.
func (o *Options) State() State {
	if !o.routine(RoutinePopulating).Finished() {
		return NotPopulated
	}
	if o.routine(RoutineOverriding).HistoryLen() > 0 {
		return Overridden
	}
	return Populated
}

// Snapshot returns the normalized value of every set field.
func (o *Options) Snapshot() map[string]any {
	out := make(map[string]any, o.children.Len())
	for _, c := range o.children.All() {
		if !c.IsSet() {
			continue
		}
		value, err := c.Value()
		if err != nil {
			continue
		}
		out[c.Field()] = value
	}
	return out
}

func (o *Options) routine(id string) *routine.Routine {
	return o.routines.MustGet(id)
}

// activeRoutine returns the aggregate routine currently in progress, if any.
func (o *Options) activeRoutine() *routine.Routine {
	for _, id := range o.routines.IDs() {
		if r := o.routine(id); r.InProgress() {
			return r
		}
	}
	return nil
}

// checkKeys rejects keys that are not declared fields.
func (o *Options) checkKeys(data map[string]any) error {
	var unknown []string
	for key := range data {
		if _, err := o.children.Get(key); err != nil {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fault.New(fault.KindDoesNotExist, strings.Join(unknown, ","), "not a declared field")
}

// Populate resets the aggregate, then sets every field from data or from its
// default. Aggregate validation runs once every field holds a value.
func (o *Options) Populate(data map[string]any) error {
	if err := o.checkKeys(data); err != nil {
		return err
	}
	if err := o.reset(); err != nil {
		return err
	}
	r := o.routine(RoutinePopulating)
	err := r.Run(func() error {
		if o.cfg.strict {
			for _, c := range o.children.All() {
				if err := populateOne(c, data); err != nil {
					return err
				}
			}
			return nil
		}
		return fault.Collect(fault.KindComposite, "populate failed", func(report func(error)) {
			for _, c := range o.children.All() {
				report(populateOne(c, data))
			}
		})
	})
	if err != nil {
		o.logger.Debug("populate failed", "options", o.id, "err", err)
		return err
	}
	o.emit(activity.BuildPopulatedEvent(o.eventInput(o.populatedFields(), 0)))
	return nil
}

func populateOne(c *Option, data map[string]any) error {
	if value, ok := data[c.Field()]; ok {
		return c.Populate(value)
	}
	return c.PopulateDefault()
}

func (o *Options) populatedFields() []string {
	var fields []string
	for _, c := range o.children.All() {
		if c.IsPopulated() {
			fields = append(fields, c.Field())
		}
	}
	return fields
}

// Override layers data on the populated values as one batch. A batch that
// fails part way stays recorded, so Restore still reverts what it changed.
func (o *Options) Override(data map[string]any) error {
	if err := o.checkKeys(data); err != nil {
		return err
	}
	if !o.routine(RoutinePopulating).Finished() {
		return fault.New(fault.KindRoutineNotFinished, RoutinePopulating, "populate before overriding")
	}
	r := o.routine(RoutineOverriding)
	if r.Errored() {
		return fault.New(fault.KindRoutineNotFinished, RoutineOverriding, "a previous override failed; restore first")
	}
	var batch []*Option
	err := r.Run(func() (err error) {
		defer func() {
			if len(batch) > 0 {
				err = joinErr(err, r.Register(batch, routine.ToQueue(false)))
			}
		}()
		for _, c := range o.children.All() {
			value, ok := data[c.Field()]
			if !ok {
				continue
			}
			committed := c.routine(RoutineOverriding).HistoryLen()
			err := c.Override(value)
			if c.routine(RoutineOverriding).HistoryLen() > committed {
				batch = append(batch, c)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		o.logger.Debug("override failed", "options", o.id, "err", err)
		return err
	}
	o.emit(activity.BuildOverriddenEvent(o.eventInput(optionFields(batch), r.HistoryLen())))
	return nil
}

// Restore reverts every option touched by any override batch. It is a
// no-op when nothing was overridden.
func (o *Options) Restore() error {
	overriding := o.routine(RoutineOverriding)
	if overriding.HistoryLen() == 0 {
		return resetErrored(overriding)
	}
	r := o.routine(RoutineRestoring)
	if err := resetErrored(r); err != nil {
		return err
	}
	touched := o.overridden()
	reverted := false
	err := r.Run(func() error {
		for _, c := range touched {
			if err := c.Restore(); err != nil {
				return err
			}
		}
		reverted = true
		return nil
	})
	if reverted {
		// values are back even when the post-cycle checks reject them
		err = joinErr(err, overriding.Reset())
	}
	if err != nil {
		o.logger.Debug("restore failed", "options", o.id, "err", err)
		return err
	}
	o.emit(activity.BuildRestoredEvent(o.eventInput(optionFields(touched), 0)))
	return nil
}

// overridden lists the options in any recorded batch, in declaration order.
func (o *Options) overridden() []*Option {
	seen := map[*Option]bool{}
	for _, entry := range o.routine(RoutineOverriding).History() {
		batch, ok := entry.([]*Option)
		if !ok {
			continue
		}
		for _, c := range batch {
			seen[c] = true
		}
	}
	var out []*Option
	for _, c := range o.children.All() {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// Reset unsets every field and returns the aggregate to NotPopulated.
func (o *Options) Reset() error {
	if err := o.reset(); err != nil {
		return err
	}
	o.emit(activity.BuildResetEvent(o.eventInput(nil, 0)))
	return nil
}

func (o *Options) reset() error {
	if err := o.routines.Reset(); err != nil {
		return err
	}
	for _, c := range o.children.All() {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// afterCycle runs once a populate, override or restore body succeeded. The
// options queued during the cycle are checked against their siblings, then
// the aggregate checks run; all failures are reported together.
func (o *Options) afterCycle(r *routine.Routine) error {
	touched := queuedOptions(r)
	if err := fault.Accumulate(fault.KindOptionsInvalid, "options are inconsistent", o.cycleFailures(touched)); err != nil {
		return err
	}
	for _, c := range touched {
		if err := c.postProcessWithOptions(o); err != nil {
			return err
		}
	}
	return o.runPostProcessors()
}

func queuedOptions(r *routine.Routine) []*Option {
	var out []*Option
	for _, item := range r.Queue() {
		if c, ok := item.(*Option); ok {
			out = append(out, c)
		}
	}
	return out
}

func (o *Options) cycleFailures(touched []*Option) iter.Seq[error] {
	return func(yield func(error) bool) {
		for _, c := range touched {
			for err := range c.withOptionsFailures(o) {
				if !yield(err) {
					return
				}
			}
		}
		for err := range o.aggregateFailures() {
			if !yield(err) {
				return
			}
		}
	}
}

func (o *Options) aggregateFailures() iter.Seq[error] {
	return func(yield func(error) bool) {
		for _, validate := range o.cfg.validators {
			if err := validate(o); err != nil {
				if !fault.IsInvalid(err) {
					err = fault.Wrap(fault.KindOptionsInvalid, "", err, "")
				}
				if !yield(err) {
					return
				}
			}
		}
		for _, rule := range o.cfg.rules {
			if err := o.checkRule(rule, "", nil); err != nil {
				if !yield(err) {
					return
				}
			}
		}
	}
}

// Validate checks every set field against its siblings and runs the
// aggregate checks.
func (o *Options) Validate() error {
	return fault.Accumulate(fault.KindOptionsInvalid, "options are inconsistent", o.cycleFailures(o.children.All()))
}

// PostProcess runs every field's PostProcessWithOptions hook and then the
// aggregate post-processors.
func (o *Options) PostProcess() error {
	for _, c := range o.children.All() {
		if err := c.postProcessWithOptions(o); err != nil {
			return err
		}
	}
	return o.runPostProcessors()
}

func (o *Options) runPostProcessors() error {
	for _, fn := range o.cfg.postProcessors {
		if err := fn(o); err != nil {
			return fmt.Errorf("optset: post-process options: %w", err)
		}
	}
	return nil
}

func newOptionsInvalid(message string) error {
	return fault.New(fault.KindOptionsInvalid, "", "%s", message)
}

func optionFields(cs []*Option) []string {
	fields := make([]string, 0, len(cs))
	for _, c := range cs {
		fields = append(fields, c.Field())
	}
	return fields
}

func joinErr(err, other error) error {
	if err != nil {
		return err
	}
	return other
}
