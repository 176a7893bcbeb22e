package overlay

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

const (
	// Recommended priorities for common layering patterns. Higher numbers win.
	ScopePrioritySystem = 100
	ScopePriorityTenant = 200
	ScopePriorityOrg    = 300
	ScopePriorityTeam   = 400
	ScopePriorityUser   = 500
)

// Scope models a named precedence bucket (system, tenant, user, etc.). Higher
// priority values represent stronger layers.
type Scope struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches arbitrary metadata to the scope. The map is
// copied.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope. Validation is deferred to NewStack so callers can
// assemble scopes before deciding precedence.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

// DefaultScopes returns the canonical system, tenant, org, team and user
// scopes, weakest first.
func DefaultScopes() []Scope {
	return []Scope{
		NewScope("system", ScopePrioritySystem, WithScopeLabel("System Defaults")),
		NewScope("tenant", ScopePriorityTenant, WithScopeLabel("Tenant")),
		NewScope("org", ScopePriorityOrg, WithScopeLabel("Organization")),
		NewScope("team", ScopePriorityTeam, WithScopeLabel("Team")),
		NewScope("user", ScopePriorityUser, WithScopeLabel("User")),
	}
}

func (s Scope) clone() Scope {
	return Scope{
		Name:     s.Name,
		Label:    s.Label,
		Priority: s.Priority,
		Metadata: copyMetadata(s.Metadata),
	}
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates NewStack received the same scope name
	// twice.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates NewStack detected duplicate priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
	// ErrEmptyStack indicates NewStack was called without scopes.
	ErrEmptyStack = errors.New("scope: stack must include at least one scope")
)

// Stack is a chain of overlays, one per scope, each wrapping the next
// weaker one and ultimately the base store. Writes go to a specific layer;
// reads through Top see every layer with the strongest winning.
type Stack struct {
	base   Store
	layers []*Overlay // strongest first
}

// NewStack validates scopes and builds one overlay per scope over base,
// weakest first. opts are applied to every layer; the layer's scope is
// always set from scopes.
func NewStack(base Store, scopes []Scope, opts ...Option) (*Stack, error) {
	if base == nil {
		return nil, ErrNilStore
	}
	if len(scopes) == 0 {
		return nil, ErrEmptyStack
	}

	seen := make(map[string]struct{}, len(scopes))
	ordered := make([]Scope, len(scopes))
	for i, scope := range scopes {
		if scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, scope.Name)
		}
		seen[scope.Name] = struct{}{}
		ordered[i] = scope.clone()
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Priority == ordered[i].Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, ordered[i].Priority)
		}
	}

	stack := &Stack{base: base, layers: make([]*Overlay, len(ordered))}
	var below Store = base
	for i, scope := range ordered {
		layerOpts := append(append([]Option(nil), opts...), WithScope(scope))
		layer, err := New(below, layerOpts...)
		if err != nil {
			return nil, fmt.Errorf("overlay: stack layer %s: %w", scope.Name, err)
		}
		stack.layers[len(ordered)-1-i] = layer
		below = layer
	}
	return stack, nil
}

// Top returns the strongest layer, whose merged view includes every layer.
func (s *Stack) Top() *Overlay {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	return s.layers[0]
}

// Layer returns the overlay for the named scope.
func (s *Stack) Layer(name string) (*Overlay, bool) {
	if s == nil {
		return nil, false
	}
	for _, layer := range s.layers {
		if layer.cfg.scope.Name == name {
			return layer, true
		}
	}
	return nil, false
}

// Scopes returns the stack's scopes, strongest first.
func (s *Stack) Scopes() []Scope {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Scope, len(s.layers))
	for i, layer := range s.layers {
		out[i] = layer.Scope()
	}
	return out
}

// Len returns the number of layers in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Base returns the store under the weakest layer.
func (s *Stack) Base() Store {
	if s == nil {
		return nil
	}
	return s.base
}

// Close closes the base store.
func (s *Stack) Close(ctx context.Context) error {
	if s == nil || s.base == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.base.Close(ctx)
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
