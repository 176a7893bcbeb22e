package overlay

import (
	"time"

	"github.com/goliatone/go-overlay/keypath"
	"github.com/goliatone/go-overlay/layering"
)

// RuleContext carries the inputs of one expression evaluation. Value is the
// merged view the expression runs against; its top-level keys are exposed
// as variables.
type RuleContext struct {
	Value    map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Scope    Scope
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Value == nil {
		ctx.Value = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withScope(scope Scope) RuleContext {
	if ctx.Scope.Name == "" && scope.Name != "" {
		ctx.Scope = scope.clone()
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope.Name != "" {
		return ctx.Scope.Name
	}
	return "unknown"
}

func (ctx RuleContext) scopeBinding() map[string]any {
	if ctx.Scope.Name == "" {
		return nil
	}
	binding := map[string]any{
		"name":     ctx.Scope.Name,
		"label":    ctx.Scope.Label,
		"priority": ctx.Scope.Priority,
	}
	if len(ctx.Scope.Metadata) > 0 {
		binding["metadata"] = copyMetadata(ctx.Scope.Metadata)
	}
	return binding
}

// lookup resolves a dotted or bracketed key against the context value.
// Missing keys yield nil.
func (ctx RuleContext) lookup(key string) any {
	value, _ := layering.Lookup(ctx.Value, keypath.Parse(key))
	return value
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type namedEngine interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	return "custom"
}
