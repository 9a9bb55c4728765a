//go:build js_eval

package optset

import (
	"github.com/dop251/goja"
)

type jsEvaluator struct {
	engine
}

// NewJSEvaluator returns an Evaluator that runs expressions with goja. Each
// evaluation gets a fresh runtime; compiled programs are shared.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{engine: newEngine("js", opts)}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, evalError(e.name, expression, ctx.withDefaults().label(), err)
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, evalError(e.name, "", "", errEmptyExpression)
	}
	program, err := compiled(e.engine, expression, func() (*goja.Program, error) {
		return goja.Compile("", "(function(){ return ("+expression+"); })()", false)
	})
	if err != nil {
		return nil, evalError(e.name, expression, "", err)
	}
	return jsRule{evaluator: e, expression: expression, program: program}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	out, err := r.run(ctx)
	if err != nil {
		return nil, evalError("js", r.expression, ctx.label(), err)
	}
	return out, nil
}

func (r jsRule) run(ctx RuleContext) (any, error) {
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	for name, fn := range r.evaluator.functions() {
		if err := vm.Set(name, fn); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}
