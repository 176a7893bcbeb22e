package overlay

import (
	"context"

	"github.com/goliatone/go-overlay/keypath"
	"github.com/goliatone/go-overlay/layering"
	"github.com/goliatone/go-overlay/pkg/activity"
)

// Fragment is one addressable leaf or subtree of a store value. Fragments
// are treated as immutable: a change produces a new Fragment.
type Fragment struct {
	Key      keypath.Path `json:"key"`
	Value    any          `json:"value"`
	Override bool         `json:"override,omitempty"`
}

// NewOverride builds an override fragment for key and value.
func NewOverride(key any, value any) Fragment {
	return Fragment{
		Key:      keypath.Normalize(key),
		Value:    value,
		Override: true,
	}
}

// Clone returns a deep copy of f.
func (f Fragment) Clone() Fragment {
	return Fragment{
		Key:      f.Key.Clone(),
		Value:    layering.Clone(f.Value),
		Override: f.Override,
	}
}

// Change describes one store transition. A nil Old denotes creation and a
// nil New denotes deletion.
type Change struct {
	Old *Fragment
	New *Fragment
}

// Key returns the path affected by the change, preferring New.
func (c Change) Key() (keypath.Path, bool) {
	switch {
	case c.New != nil:
		return c.New.Key, true
	case c.Old != nil:
		return c.Old.Key, true
	default:
		return nil, false
	}
}

// ChangeFunc receives change notifications.
type ChangeFunc func(Change)

// Disposable cancels a subscription. Dispose must be idempotent.
type Disposable interface {
	Dispose()
}

// Store is the contract an underlying key-value store satisfies. Overlay
// implements it as well, so overlays can wrap other overlays.
type Store interface {
	// Fragments lists the current fragments in store order.
	Fragments() []Fragment
	// Get looks up a fragment by key (any form accepted by keypath.Normalize).
	Get(key any) (Fragment, bool)
	// OnChange subscribes fn to the store's change stream.
	OnChange(fn ChangeFunc) Disposable
	// Close shuts the store down.
	Close(ctx context.Context) error
}

// Provider resolves a store handle that may not be ready yet.
type Provider func(ctx context.Context) (Store, error)

// Updater computes the next value for Update. fragment is a deep copy of the
// fragment currently visible at the key, or nil when there is none.
type Updater func(value any, fragment *Fragment) (any, error)

// Option configures an Overlay.
type Option func(*config)

type config struct {
	overrides     []Fragment
	scope         Scope
	changeLogger  ChangeLogger
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	evalLogger    EvaluatorLogger
	activityHooks activity.Hooks
	activityCfg   activity.Config
	optionErrs    []error
}

func applyOptions(opts []Option) config {
	cfg := config{
		activityCfg: activity.Config{Enabled: true, Channel: "overlay"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithOverrides pre-seeds the override set. Fragments are normalized and
// flagged as overrides; a later fragment replaces an earlier one with the
// same key.
func WithOverrides(fragments ...Fragment) Option {
	return func(cfg *config) {
		for _, fragment := range fragments {
			cfg.overrides = append(cfg.overrides, Fragment{
				Key:      keypath.Normalize(fragment.Key),
				Value:    layering.Clone(fragment.Value),
				Override: true,
			})
		}
	}
}

// WithScope labels the overlay. The scope is reported in traces, activity
// events and evaluator contexts.
func WithScope(scope Scope) Option {
	return func(cfg *config) {
		cfg.scope = scope.clone()
	}
}

// WithEvaluator configures the evaluator used by Evaluate and UpdateExpr.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}
