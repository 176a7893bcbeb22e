package overlay

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-overlay/keypath"
)

// ErrNoEvaluator indicates no evaluator could be resolved.
var ErrNoEvaluator = errors.New("overlay: evaluator not configured")

// Evaluate runs expr against the merged view. Without WithEvaluator the
// expr-lang engine is used.
func (o *Overlay) Evaluate(expr string) (any, error) {
	return o.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr using ctx. A nil ctx.Value is replaced with the
// merged view and an empty ctx.Scope with the overlay's scope.
func (o *Overlay) EvaluateWith(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("overlay: expression must not be empty")
	}
	evaluator, err := o.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	if ctx.Value == nil {
		ctx.Value = o.Value()
	}
	ctx = ctx.withScope(o.cfg.scope).withDefaults()

	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)

	engine := evaluatorEngineName(evaluator)
	evalErr = wrapEvaluationError(engine, expr, ctx.scopeLabel(), evalErr)
	o.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Scope:    ctx.scopeLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// UpdateExpr is Update with an expression as the updater. The expression
// sees the merged view plus args.value (the value currently visible at key,
// or nil) and args.key (the canonical key). An evaluation error aborts the
// update and is returned as an *EvaluationError carrying the key.
func (o *Overlay) UpdateExpr(key any, expr string) error {
	path := keypath.Normalize(key)
	canonical := path.String()
	return o.Update(path, func(value any, _ *Fragment) (any, error) {
		result, err := o.EvaluateWith(RuleContext{
			Args: map[string]any{
				"value": value,
				"key":   canonical,
			},
		}, expr)
		return result, withEvaluationKey(err, canonical)
	})
}

func (o *Overlay) resolveEvaluator() (Evaluator, error) {
	o.evalOnce.Do(func() {
		if o.cfg.evaluator != nil {
			o.evaluator = o.cfg.evaluator
			return
		}
		var exprOpts []ExprEvaluatorOption
		if o.cfg.programCache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(o.cfg.programCache))
		}
		if o.cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(o.cfg.functions))
		}
		o.evaluator = NewExprEvaluator(exprOpts...)
	})
	if o.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return o.evaluator, nil
}

func (o *Overlay) evaluatorLogger() EvaluatorLogger {
	if o.cfg.evalLogger != nil {
		return o.cfg.evalLogger
	}
	return noopEvaluatorLogger{}
}
