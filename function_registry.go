package optset

import (
	"maps"
	"slices"
	"sync"
	"unicode"

	"github.com/goliatone/go-optset/pkg/fault"
)

const callFunction = "call"

// Function is a Go function callable from rule expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry maps names to functions. Names are case sensitive and
// must be identifiers, since every engine exposes them as bare calls.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. It fails with ErrConfiguration for a nil
// function, a name that is not an identifier, the reserved name "call" or a
// name already taken.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	switch {
	case fn == nil:
		return fault.New(fault.KindConfiguration, name, "function is nil")
	case !isIdentifier(name):
		return fault.New(fault.KindConfiguration, name, "function name must be an identifier")
	case name == callFunction:
		return fault.New(fault.KindConfiguration, name, "function name is reserved")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, taken := r.functions[name]; taken {
		return fault.New(fault.KindConfiguration, name, "function already registered")
	}
	r.functions[name] = fn
	return nil
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[name]
	return ok
}

// Call runs the function registered under name. Unknown names fail with
// ErrDoesNotExist.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	var fn Function
	if r != nil {
		r.mu.RLock()
		fn = r.functions[name]
		r.mu.RUnlock()
	}
	if fn == nil {
		return nil, fault.New(fault.KindDoesNotExist, name, "function not registered")
	}
	return fn(args...)
}

func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

// Clone copies the registry. A nil registry clones to nil.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions)}
}

func (r *FunctionRegistry) bind(name string) Function {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		if c == '_' || unicode.IsLetter(c) || (i > 0 && unicode.IsDigit(c)) {
			continue
		}
		return false
	}
	return true
}

// WithFunctionRegistry makes the functions in registry callable from rules
// run by the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Setting {
	return func(cfg *optionsConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction registers fn under name. A rejected registration makes
// New fail.
func WithCustomFunction(name string, fn Function) Setting {
	return func(cfg *optionsConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil && cfg.err == nil {
			cfg.err = err
		}
	}
}
