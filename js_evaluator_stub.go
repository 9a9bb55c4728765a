//go:build !js_eval

package optset

// NewJSEvaluator returns nil unless built with the js_eval tag. WithEvaluator
// ignores a nil evaluator, so rules fall back to expr.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}
