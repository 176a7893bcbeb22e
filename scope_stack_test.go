package overlay_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	overlay "github.com/goliatone/go-overlay"
	"github.com/goliatone/go-overlay/pkg/store"
	"github.com/google/go-cmp/cmp"
)

func TestNewScopeCopiesMetadata(t *testing.T) {
	meta := map[string]any{"owner": "system"}
	scope := overlay.NewScope("system", 50,
		overlay.WithScopeLabel("System Defaults"),
		overlay.WithScopeMetadata(meta),
	)
	meta["owner"] = "mutated"

	if got := scope.Metadata["owner"]; got != "system" {
		t.Fatalf("expected metadata copy to remain 'system', got %q", got)
	}
	if scope.Label != "System Defaults" {
		t.Fatalf("label not set, got %q", scope.Label)
	}
}

func TestNewStackValidates(t *testing.T) {
	base := store.NewMemory()
	cases := []struct {
		name   string
		base   overlay.Store
		scopes []overlay.Scope
		want   error
	}{
		{name: "nil base", scopes: overlay.DefaultScopes(), want: overlay.ErrNilStore},
		{name: "no scopes", base: base, want: overlay.ErrEmptyStack},
		{name: "missing name", base: base, scopes: []overlay.Scope{overlay.NewScope("", 1)}, want: overlay.ErrScopeNameRequired},
		{
			name:   "duplicate name",
			base:   base,
			scopes: []overlay.Scope{overlay.NewScope("user", 1), overlay.NewScope("user", 2)},
			want:   overlay.ErrDuplicateScopeName,
		},
		{
			name:   "duplicate priority",
			base:   base,
			scopes: []overlay.Scope{overlay.NewScope("a", 1), overlay.NewScope("b", 1)},
			want:   overlay.ErrPriorityOrder,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := overlay.NewStack(tc.base, tc.scopes); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStackOrdersStrongestFirst(t *testing.T) {
	stack, err := overlay.NewStack(store.NewMemory(), []overlay.Scope{
		overlay.NewScope("user", overlay.ScopePriorityUser),
		overlay.NewScope("system", overlay.ScopePrioritySystem),
		overlay.NewScope("tenant", overlay.ScopePriorityTenant),
	})
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	var names []string
	for _, scope := range stack.Scopes() {
		names = append(names, scope.Name)
	}
	if diff := cmp.Diff([]string{"user", "tenant", "system"}, names); diff != "" {
		t.Fatalf("scope order mismatch (-want +got):\n%s", diff)
	}
	if stack.Top().Scope().Name != "user" || stack.Len() != 3 {
		t.Fatalf("expected user on top of 3 layers")
	}
}

func TestStackLayersResolveByPriority(t *testing.T) {
	base := store.FromValue(map[string]any{
		"limits": map[string]any{"daily": 100, "weekly": 700},
		"theme":  "light",
	})
	stack, err := overlay.NewStack(base, overlay.DefaultScopes())
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	tenant, _ := stack.Layer("tenant")
	user, _ := stack.Layer("user")
	tenant.Set("limits.daily", 80).Set("theme", "dark")
	user.Set("limits.daily", 50)

	want := map[string]any{
		"limits": map[string]any{"daily": 50, "weekly": 700},
		"theme":  "dark",
	}
	if diff := cmp.Diff(want, stack.Top().Value()); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	user.Delete("limits.daily")
	if fragment, _ := stack.Top().Get("limits.daily"); fragment.Value != 80 {
		t.Fatalf("expected tenant value after user delete, got %v", fragment.Value)
	}
	if _, ok := stack.Layer("missing"); ok {
		t.Fatalf("expected unknown layer lookup to fail")
	}
}

func TestStackPropagatesLowerChangesUnlessShadowed(t *testing.T) {
	base := store.NewMemory()
	stack, err := overlay.NewStack(base, []overlay.Scope{
		overlay.NewScope("tenant", 1),
		overlay.NewScope("user", 2),
	})
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	user, _ := stack.Layer("user")
	tenant, _ := stack.Layer("tenant")

	var seen []string
	stack.Top().OnChange(func(change overlay.Change) {
		key, _ := change.Key()
		seen = append(seen, key.String())
	})

	user.Set("theme", "dark")
	tenant.Set("theme", "light")
	base.Set("theme", "system")
	tenant.Set("locale", "en")
	base.Set("region", "eu")

	if diff := cmp.Diff([]string{"theme", "locale", "region"}, seen); diff != "" {
		t.Fatalf("forwarded changes mismatch (-want +got):\n%s", diff)
	}
}

func TestStackOptionsApplyToEveryLayer(t *testing.T) {
	var scopes []string
	logger := overlay.ChangeLoggerFunc(func(event overlay.ChangeLogEvent) {
		if event.Op == overlay.LogOpSet {
			scopes = append(scopes, event.Scope)
		}
	})
	stack, err := overlay.NewStack(store.NewMemory(), []overlay.Scope{
		overlay.NewScope("a", 1),
		overlay.NewScope("b", 2),
	}, overlay.WithChangeLogger(logger), overlay.WithScope(overlay.NewScope("ignored", 9)))
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	for _, scope := range stack.Scopes() {
		layer, _ := stack.Layer(scope.Name)
		layer.Set("k", scope.Name)
	}
	if diff := cmp.Diff([]string{"b", "a"}, scopes); diff != "" {
		t.Fatalf("logged scopes mismatch (-want +got):\n%s", diff)
	}
}

type closeCounter struct {
	*store.Memory
	closed int
}

func (c *closeCounter) Close(context.Context) error {
	c.closed++
	return nil
}

func TestStackCloseClosesBase(t *testing.T) {
	base := &closeCounter{Memory: store.NewMemory()}
	stack, err := overlay.NewStack(base, overlay.DefaultScopes())
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	if stack.Base() != overlay.Store(base) {
		t.Fatalf("expected base store")
	}
	if err := stack.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if base.closed != 1 {
		t.Fatalf("expected base closed once, got %d", base.closed)
	}
}

func ExampleNewStack() {
	base := store.FromValue(map[string]any{"theme": "light"})
	stack, _ := overlay.NewStack(base, overlay.DefaultScopes())
	user, _ := stack.Layer("user")
	user.Set("theme", "dark")

	fmt.Println(stack.Top().Value()["theme"])
	// Output: dark
}
