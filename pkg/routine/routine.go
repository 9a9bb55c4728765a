package routine

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/goliatone/go-optset/pkg/fault"
)

// State tracks where a routine is in its cycle.
type State int

const (
	NotStarted State = iota
	InProgress
	Finished
	Errored
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// Hook runs around a routine cycle. Post hooks see the populated queue.
type Hook func(r *Routine) error

// Option configures a Routine at construction.
type Option func(*Routine)

// WithPreHook runs hook on entry, before the routine moves to InProgress.
func WithPreHook(hook Hook) Option {
	return func(r *Routine) {
		r.pre = hook
	}
}

// WithPostHook runs hook on a successful exit, before the queue is cleared.
func WithPostHook(hook Hook) Option {
	return func(r *Routine) {
		r.post = hook
	}
}

// WithLogger records state transitions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Routine) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Routine is a scoped, non-reentrant cycle with a transient queue of items
// touched during the current cycle and a persistent history.
type Routine struct {
	id      string
	state   State
	queue   []any
	history []any
	pre     Hook
	post    Hook
	logger  *slog.Logger
}

// New constructs a routine in the NotStarted state.
func New(id string, opts ...Option) *Routine {
	r := &Routine{id: id}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

func (r *Routine) ID() string {
	return r.id
}

func (r *Routine) State() State {
	return r.state
}

func (r *Routine) InProgress() bool { return r.state == InProgress }
func (r *Routine) Finished() bool { return r.state == Finished }
func (r *Routine) Errored() bool { return r.state == Errored }
func (r *Routine) NotStarted() bool { return r.state == NotStarted }

// Enter starts a cycle. Entering a routine that is already in progress is an
// error; a routine that errored must be reset first.
func (r *Routine) Enter() error {
	switch r.state {
	case InProgress:
		return fault.New(fault.KindRoutineInProgress, r.id, "routine already entered")
	case Errored:
		return fault.New(fault.KindRoutineNotFinished, r.id, "routine errored; reset before re-entering")
	}
	if r.pre != nil {
		if err := r.pre(r); err != nil {
			return err
		}
	}
	if len(r.queue) != 0 {
		return fault.New(fault.KindRoutineInProgress, r.id, "queue not empty on entry (%d items)", len(r.queue))
	}
	r.transition(InProgress)
	return nil
}

// Exit closes the cycle. A non-nil err moves the routine to Errored and is
// returned unchanged. Otherwise the post hook runs; its failure is treated
// the same way.
func (r *Routine) Exit(err error) error {
	if r.state != InProgress {
		return fault.New(fault.KindRoutineNotInProgress, r.id, "exit without matching enter")
	}
	if err != nil {
		r.fail(err)
		return err
	}
	if r.post != nil {
		if hookErr := r.post(r); hookErr != nil {
			r.fail(hookErr)
			return hookErr
		}
	}
	r.queue = nil
	r.transition(Finished)
	return nil
}

// Run executes fn between Enter and Exit.
func (r *Routine) Run(fn func() error) error {
	if err := r.Enter(); err != nil {
		return err
	}
	completed := false
	defer func() {
		if completed {
			return
		}
		if recovered := recover(); recovered != nil {
			r.fail(fmt.Errorf("panic: %v", recovered))
			panic(recovered)
		}
	}()
	var bodyErr error
	if fn != nil {
		bodyErr = fn()
	}
	completed = true
	return r.Exit(bodyErr)
}

func (r *Routine) fail(err error) {
	r.queue = nil
	r.logger.Debug("routine failed", "routine", r.id, "err", err)
	r.transition(Errored)
}

func (r *Routine) transition(next State) {
	r.logger.Debug("routine transition", "routine", r.id, "from", r.state.String(), "to", next.String())
	r.state = next
}

type registerConfig struct {
	queue   bool
	history bool
}

// RegisterOption selects where Register records a value.
type RegisterOption func(*registerConfig)

// ToQueue toggles recording in the current cycle's queue.
func ToQueue(enabled bool) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.queue = enabled
	}
}

// ToHistory toggles recording in the persistent history.
func ToHistory(enabled bool) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.history = enabled
	}
}

// Register records value as touched. Queue entries are deduplicated; the
// queue only accepts values while the routine is in progress.
func (r *Routine) Register(value any, opts ...RegisterOption) error {
	cfg := registerConfig{queue: true, history: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.queue {
		if r.state != InProgress {
			return fault.New(fault.KindRoutineNotInProgress, r.id, "cannot queue outside of a cycle")
		}
		if !contains(r.queue, value) {
			r.queue = append(r.queue, value)
		}
	}
	if cfg.history {
		r.history = append(r.history, value)
	}
	return nil
}

// Queue returns a copy of the items touched in the current cycle.
func (r *Routine) Queue() []any {
	return append([]any(nil), r.queue...)
}

// History returns a copy of every item recorded across cycles.
func (r *Routine) History() []any {
	return append([]any(nil), r.history...)
}

// HistoryLen reports the number of history entries.
func (r *Routine) HistoryLen() int {
	return len(r.history)
}

// ClearHistory drops the persistent history without touching state.
func (r *Routine) ClearHistory() {
	r.history = nil
}

// Reset clears history and returns the routine to NotStarted.
func (r *Routine) Reset() error {
	if r.state == InProgress {
		return fault.New(fault.KindRoutineInProgress, r.id, "cannot reset while in progress")
	}
	if len(r.queue) != 0 {
		return fault.New(fault.KindRoutineInProgress, r.id, "cannot reset with a non-empty queue")
	}
	r.history = nil
	if r.state != NotStarted {
		r.transition(NotStarted)
	}
	return nil
}

func contains(items []any, value any) bool {
	for _, item := range items {
		if same(item, value) {
			return true
		}
	}
	return false
}

func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	// interface fields make a comparable type hold uncomparable values
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
