package optset

import (
	"errors"
	"fmt"
)

var errEmptyExpression = errors.New("expression must not be empty")

// EvaluationError reports a rule expression that failed to compile or run.
type EvaluationError struct {
	Engine string
	Expr   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("%q", e.Expr)
	}
	scope := e.Scope
	if scope == "" {
		scope = "compile"
	}
	return fmt.Sprintf("optset: %s rule %s (%s): %v", e.Engine, expr, scope, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// evalError attaches engine, expression and scope to err. An EvaluationError
// already in the chain only has its blank fields filled.
func evalError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		return &EvaluationError{Engine: engine, Expr: expr, Scope: scope, Err: err}
	}
	if existing.Engine == "" {
		existing.Engine = engine
	}
	if existing.Expr == "" {
		existing.Expr = expr
	}
	if existing.Scope == "" {
		existing.Scope = scope
	}
	return err
}

// EngineOption configures the expr, CEL and JS evaluators.
type EngineOption func(*engine)

// EngineCache stores compiled programs in cache. Keys carry the engine name,
// so evaluators of different kinds can share one cache.
func EngineCache(cache ProgramCache) EngineOption {
	return func(e *engine) {
		e.cache = cache
	}
}

// EngineFunctions makes the functions in registry callable from expressions.
// Later registrations on registry are not seen by the evaluator.
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(e *engine) {
		e.registry = registry.Clone()
	}
}

// engine is the state every built-in evaluator shares.
type engine struct {
	name     string
	cache    ProgramCache
	registry *FunctionRegistry
}

func newEngine(name string, opts []EngineOption) engine {
	e := engine{name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(&e)
		}
	}
	return e
}

func (e engine) engineName() string {
	return e.name
}

// compiled returns the program cached under key, compiling and storing it on
// a miss. Without a cache every call compiles.
func compiled[P any](e engine, key string, compile func() (P, error)) (P, error) {
	key = e.name + ":" + key
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile()
	if err != nil {
		return program, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

// functions returns the registry as callables keyed by name, plus the
// call(name, args...) entry point.
func (e engine) functions() map[string]Function {
	if e.registry == nil {
		return nil
	}
	names := e.registry.Names()
	out := make(map[string]Function, len(names)+1)
	out[callFunction] = func(args ...any) (any, error) {
		if len(args) == 0 {
			return nil, errors.New("call: missing function name")
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("call: function name must be a string, got %T", args[0])
		}
		return e.registry.Call(name, args[1:]...)
	}
	for _, name := range names {
		out[name] = e.registry.bind(name)
	}
	return out
}
