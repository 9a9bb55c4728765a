package optset

import (
	"time"

	"github.com/goliatone/go-optset/pkg/fault"
)

// Evaluate runs expr against the current snapshot.
func (o *Options) Evaluate(expr string) (any, error) {
	return o.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr using ctx, falling back to the current snapshot when
// ctx.Snapshot is nil.
func (o *Options) EvaluateWith(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, errEmptyExpression
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = o.Snapshot()
	}
	return o.evaluate(ctx.withDefaults(), expr)
}

func (o *Options) evaluate(ctx RuleContext, expr string) (any, error) {
	evaluator := o.resolveEvaluator()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = evalError(engine, expr, ctx.label(), evalErr)
	o.cfg.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Scope:    ctx.label(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// checkRule evaluates rule and reports a false result as an invalid value.
// Field rules fail with ErrInvalid, aggregate rules with ErrOptionsInvalid.
func (o *Options) checkRule(rule Rule, field string, value any) error {
	kind := fault.KindInvalid
	if field == "" {
		kind = fault.KindOptionsInvalid
	}
	ctx := RuleContext{Snapshot: o.Snapshot(), Field: field, Value: value}.withDefaults()
	result, err := o.evaluate(ctx, rule.Expr)
	if err != nil {
		return fault.Wrap(kind, field, err, "rule %q could not be evaluated", rule.Expr)
	}
	passed, ok := result.(bool)
	if !ok {
		return fault.New(kind, field, "rule %q returned %T, expected bool", rule.Expr, result)
	}
	if passed {
		return nil
	}
	if rule.Message != "" {
		return fault.New(kind, field, "%s", rule.Message)
	}
	return fault.New(kind, field, "rule %q not satisfied", rule.Expr)
}

// resolveEvaluator builds the expr evaluator on first use when none was
// configured.
func (o *Options) resolveEvaluator() Evaluator {
	if o.cfg.evaluator == nil {
		o.cfg.evaluator = NewExprEvaluator(
			EngineCache(o.cfg.programCache),
			EngineFunctions(o.cfg.functions),
		)
	}
	return o.cfg.evaluator
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(interface{ engineName() string }); ok {
		return named.engineName()
	}
	return "custom"
}
