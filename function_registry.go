package overlay

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a custom function callable from expressions. expr and JS call
// it by name; CEL calls it as call(name, [args]).
type Function func(args ...any) (any, error)

var (
	// ErrNilFunction indicates Register was given a nil function.
	ErrNilFunction = errors.New("overlay: function is nil")
	// ErrInvalidFunctionName indicates a name that is not an identifier.
	ErrInvalidFunctionName = errors.New("overlay: invalid function name")
	// ErrReservedFunctionName indicates a name the evaluators already bind
	// (now, args, metadata, scope, lookup, call).
	ErrReservedFunctionName = errors.New("overlay: reserved function name")
	// ErrDuplicateFunction indicates a name registered twice.
	ErrDuplicateFunction = errors.New("overlay: function already registered")
	// ErrUnknownFunction indicates a call to a name that was never registered.
	ErrUnknownFunction = errors.New("overlay: function not registered")
)

// FunctionRegistry holds the custom functions exposed to rule expressions.
// Names are matched case-insensitively and stored lower case.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case fn == nil:
		return fmt.Errorf("%w: %q", ErrNilFunction, name)
	case !isIdentifier(key):
		return fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
	case reservedBinding(key):
		return fmt.Errorf("%w: %q", ErrReservedFunctionName, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFunction, name)
	}
	r.functions[key] = fn
	return nil
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[strings.ToLower(name)]
	return ok
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	var fn Function
	if r != nil {
		r.mu.RLock()
		fn = r.functions[strings.ToLower(name)]
		r.mu.RUnlock()
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return fn(args...)
}

// Names returns the registered names, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Clone copies the registry so later registrations do not leak into
// evaluators that were configured with it.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// reservedBinding reports whether name is bound by the rule environment of
// every engine.
func reservedBinding(name string) bool {
	switch name {
	case "now", "args", "metadata", "scope", "lookup", "call":
		return true
	}
	return false
}

// WithFunctionRegistry exposes registry's functions to the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator. A
// registration failure makes New return it.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.optionErrs = append(cfg.optionErrs, err)
		}
	}
}
