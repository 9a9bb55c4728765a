package optset

import (
	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	engine
}

// NewExprEvaluator returns an Evaluator backed by expr-lang/expr. Aggregates
// without a configured evaluator use one.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{engine: newEngine("expr", opts)}
}

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, evalError(e.name, expression, ctx.withDefaults().label(), err)
	}
	return rule.Evaluate(ctx)
}

// Compile checks expression with undefined variables allowed, so one program
// serves every snapshot shape.
func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, evalError(e.name, "", "", errEmptyExpression)
	}
	program, err := compiled(e.engine, expression, func() (*vm.Program, error) {
		return exprlang.Compile(expression, e.compileOptions()...)
	})
	if err != nil {
		return nil, evalError(e.name, expression, "", err)
	}
	return exprRule{expression: expression, program: program}, nil
}

func (e *exprEvaluator) compileOptions() []exprlang.Option {
	opts := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for name, fn := range e.functions() {
		opts = append(opts, exprlang.Function(name, fn))
	}
	return opts
}

type exprRule struct {
	expression string
	program    *vm.Program
}

func (r exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	out, err := exprlang.Run(r.program, ctx.bindings())
	if err != nil {
		return nil, evalError("expr", r.expression, ctx.label(), err)
	}
	return out, nil
}
