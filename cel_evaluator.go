package optset

import (
	"maps"
	"reflect"
	"slices"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celEvaluator struct {
	engine
}

// NewCELEvaluator returns an Evaluator backed by cel-go. Bound variables are
// declared as dyn and int/double comparisons are allowed, so height < width
// works on mixed declarations. Registered functions are reached through
// call(name, [args...]).
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{engine: newEngine("cel", opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	ctx = ctx.withDefaults()
	if expression == "" {
		return nil, evalError(e.name, "", ctx.label(), errEmptyExpression)
	}
	bindings := ctx.bindings()
	prg, err := e.program(expression, declaredNames(slices.Collect(maps.Keys(bindings))))
	if err != nil {
		return nil, evalError(e.name, expression, ctx.label(), err)
	}
	out, _, err := prg.Eval(bindings)
	if err != nil {
		return nil, evalError(e.name, expression, ctx.label(), err)
	}
	return out.Value(), nil
}

// Compile defers type checking to the first evaluation unless the variables
// are known up front through WithVariables.
func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, evalError(e.name, "", "", errEmptyExpression)
	}
	if vars := applyCompileOptions(opts).variables; len(vars) > 0 {
		if _, err := e.program(expression, declaredNames(vars)); err != nil {
			return nil, evalError(e.name, expression, "", err)
		}
	}
	return celRule{evaluator: e, expression: expression}, nil
}

// program is keyed by expression and variable names; an environment checked
// against one snapshot shape cannot run another.
func (e *celEvaluator) program(expression string, names []string) (celgo.Program, error) {
	return compiled(e.engine, expression+"|"+strings.Join(names, ","), func() (celgo.Program, error) {
		env, err := celgo.NewEnv(e.envOptions(names)...)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		return env.Program(ast)
	})
}

func (e *celEvaluator) envOptions(names []string) []celgo.EnvOption {
	opts := []celgo.EnvOption{
		celgo.CrossTypeNumericComparisons(true),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	for _, name := range names {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function(callFunction,
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(e.call),
			),
		))
	}
	return opts
}

var argsType = reflect.TypeFor[[]any]()

func (e *celEvaluator) call(name, args ref.Val) ref.Val {
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("call: function name must be a string")
	}
	native, err := args.ConvertToNative(argsType)
	if err != nil {
		return types.NewErr("call %s: %v", fn, err)
	}
	list, _ := native.([]any)
	out, err := e.registry.Call(fn, list...)
	switch {
	case err != nil:
		return types.NewErr("%s", err.Error())
	case out == nil:
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(out)
}

// declaredNames drops the names every environment already declares, then
// sorts and dedupes the rest.
func declaredNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		switch name {
		case "now", "args", "metadata":
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type celRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r celRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}
