package overlay

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError reports a failed expression together with where it ran:
// the engine, the overlay scope and, for UpdateExpr, the key being updated.
type EvaluationError struct {
	Engine string
	Expr   string
	Scope  string
	// Key is the canonical key path of an UpdateExpr target. It is empty for
	// Evaluate and EvaluateWith.
	Key string
	Err error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("overlay: ")
	if e.Engine != "" {
		b.WriteString(e.Engine)
		b.WriteByte(' ')
	}
	b.WriteString("evaluator")
	if e.Key != "" {
		fmt.Fprintf(&b, " key=%s", e.Key)
	}
	if e.Scope != "" {
		fmt.Fprintf(&b, " scope=%s", e.Scope)
	}
	if e.Expr == "" {
		b.WriteString(" expr=<empty>")
	} else {
		fmt.Fprintf(&b, " expr=%q", e.Expr)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluatorError prefixes engine setup failures that carry no
// expression. Errors already attributed to the overlay pass through.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "overlay:") {
		return err
	}
	return fmt.Errorf("overlay: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches engine, expression and scope to err, filling
// only the fields an existing EvaluationError leaves empty.
func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Scope: scope, Err: err}
	}
	fill(&evalErr.Engine, engine)
	fill(&evalErr.Expr, expr)
	fill(&evalErr.Scope, scope)
	return evalErr
}

// withEvaluationKey records the UpdateExpr target on an EvaluationError.
// Other errors are returned unchanged.
func withEvaluationKey(err error, key string) error {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		fill(&evalErr.Key, key)
	}
	return err
}

func fill(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
