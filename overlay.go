// Package overlay layers local overrides over an underlying key-value Store
// without mutating it.
//
// Writes (Set, Update, Delete, Clear) only touch the overlay's override
// set. Reads merge the overrides with the store's current fragments, with
// overrides winning for identical keys. Store change events are forwarded
// to overlay subscribers unless the changed key is currently overridden.
//
//	base := store.FromValue(map[string]any{"db": map[string]any{"port": 5432}})
//	ov, _ := overlay.New(base)
//	ov.Set("db.port", 6000)
//	ov.Value()["db"] // map[port:6000]
//	ov.Delete("db.port")
//	ov.Get("db.port") // 5432 again, from the store
package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-overlay/internal/event"
	"github.com/goliatone/go-overlay/keypath"
	"github.com/goliatone/go-overlay/layering"
	"github.com/goliatone/go-overlay/pkg/activity"
)

var _ Store = (*Overlay)(nil)

// Overlay is a transparent override layer over a Store. It is safe for
// concurrent use; notifications are delivered synchronously after the
// mutation that caused them has completed.
type Overlay struct {
	store Store
	cfg   config

	mu        sync.RWMutex
	overrides *overrideSet

	changes      *event.Bus[Change]
	subscription Disposable
	activity     *activity.Emitter

	evalOnce  sync.Once
	evaluator Evaluator
}

// New wraps a resolved store. The change subscription on store is installed
// before New returns. Invalid options, such as a rejected custom function,
// are returned as errors.
func New(store Store, opts ...Option) (*Overlay, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	cfg := applyOptions(opts)
	if err := errors.Join(cfg.optionErrs...); err != nil {
		return nil, fmt.Errorf("overlay: options: %w", err)
	}
	if cfg.changeLogger == nil {
		cfg.changeLogger = noopChangeLogger{}
	}

	o := &Overlay{
		store:     store,
		cfg:       cfg,
		overrides: newOverrideSet(cfg.overrides),
		activity:  activity.NewEmitter(cfg.activityHooks, cfg.activityCfg),
	}
	o.changes = event.NewBus[Change](o.listenerPanicked)
	o.subscription = store.OnChange(o.handleStoreChange)
	if o.subscription == nil {
		o.cfg.changeLogger.LogChange(ChangeLogEvent{
			Op:    LogOpStoreSubscribe,
			Scope: o.cfg.scope.Name,
			Err:   fmt.Errorf("overlay: store returned no subscription"),
		})
	}
	return o, nil
}

// Open awaits a pending store handle and wraps it. Provider failures and
// context cancellation are returned wrapped, preserving errors.Is.
func Open(ctx context.Context, provider Provider, opts ...Option) (*Overlay, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("overlay: open: %w", err)
	}
	store, err := provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("overlay: resolve store: %w", err)
	}
	return New(store, opts...)
}

// Store returns the underlying store.
func (o *Overlay) Store() Store {
	return o.store
}

// Scope returns a copy of the scope this overlay was labelled with.
func (o *Overlay) Scope() Scope {
	return o.cfg.scope.clone()
}

// Overrides returns deep copies of the current overrides.
func (o *Overlay) Overrides() []Fragment {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.overrides.snapshot()
}

// Fragments returns the merged view: every override first, then each store
// fragment whose key is not overridden, in store order.
func (o *Overlay) Fragments() []Fragment {
	fragments := o.Overrides()
	overridden := make(map[string]struct{}, len(fragments))
	for _, fragment := range fragments {
		overridden[fragment.Key.String()] = struct{}{}
	}
	for _, fragment := range o.store.Fragments() {
		if _, ok := overridden[canonicalKey(fragment.Key)]; ok {
			continue
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}

// Value materializes the merged view into a fresh nested map. Fragments are
// applied shortest path first so a deep override survives a shallower one.
func (o *Overlay) Value() map[string]any {
	return foldFragments(o.Fragments())
}

// OnChange subscribes fn to overlay changes, both forwarded store changes
// and local writes. Disposing the returned handle is idempotent and safe
// from inside fn.
func (o *Overlay) OnChange(fn ChangeFunc) Disposable {
	return o.changes.Subscribe(fn)
}

// Close closes the underlying store. Overrides and subscriptions are kept.
func (o *Overlay) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return o.store.Close(ctx)
}

// Get returns the fragment visible at key: the override when present,
// otherwise the store's fragment.
func (o *Overlay) Get(key any) (Fragment, bool) {
	path := keypath.Normalize(key)
	o.mu.RLock()
	override, ok := o.overrides.find(path)
	o.mu.RUnlock()
	if ok {
		return override.Clone(), true
	}
	return o.store.Get(path)
}

// Has reports whether Get would find a fragment.
func (o *Overlay) Has(key any) bool {
	_, ok := o.Get(key)
	return ok
}

// IsOverridden reports whether key currently has a local override.
func (o *Overlay) IsOverridden(key any) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.overrides.exists(key)
}

// Set stores an override for key, replacing any previous override
// atomically, and notifies subscribers with the replaced override (or nil)
// as Old. value is deep copied. Set returns o for chaining.
func (o *Overlay) Set(key any, value any) *Overlay {
	fragment := NewOverride(key, layering.Clone(value))

	o.mu.Lock()
	previous, existed := o.overrides.find(fragment.Key)
	o.overrides.remove(fragment.Key)
	o.overrides.add(fragment)
	o.mu.Unlock()

	change := Change{New: fragmentRef(fragment.Clone())}
	if existed {
		change.Old = fragmentRef(previous)
	}
	o.log(LogOpSet, fragment.Key, nil)
	o.changes.Emit(change)
	o.recordActivity(activity.BuildOverrideSetEvent, fragment.Key, change)
	return o
}

// Update computes the next value for key from the fragment currently
// visible there and stores it with Set. An updater error aborts the update
// without touching the override set and is returned unchanged.
func (o *Overlay) Update(key any, updater Updater) error {
	if updater == nil {
		return ErrNilUpdater
	}
	var (
		current *Fragment
		value   any
	)
	if fragment, ok := o.Get(key); ok {
		clone := fragment.Clone()
		current = &clone
		value = clone.Value
	}
	next, err := updater(value, current)
	if err != nil {
		return err
	}
	o.Set(key, next)
	return nil
}

// Delete removes the override at key and notifies subscribers. New carries
// the store's current fragment at key (nil when the store has none), since
// removing an override exposes the store value again. Deleting a key
// without an override still notifies, with a nil Old.
func (o *Overlay) Delete(key any) {
	path := keypath.Normalize(key)

	o.mu.Lock()
	previous, existed := o.overrides.find(path)
	o.overrides.remove(path)
	o.mu.Unlock()

	change := Change{New: o.storeFragment(path)}
	if existed {
		change.Old = fragmentRef(previous)
	}
	o.log(LogOpDelete, path, nil)
	o.changes.Emit(change)
	o.recordActivity(activity.BuildOverrideDeletedEvent, path, change)
}

// Clear removes every override. Subscribers receive one notification per
// removed override, with New falling through to the store as in Delete.
// Notifications follow insertion order; callers should not rely on it.
func (o *Overlay) Clear() {
	o.mu.Lock()
	removed := o.overrides.reset()
	o.mu.Unlock()

	for _, fragment := range removed {
		change := Change{
			Old: fragmentRef(fragment),
			New: o.storeFragment(fragment.Key),
		}
		o.log(LogOpClear, fragment.Key, nil)
		o.changes.Emit(change)
		o.recordActivity(activity.BuildOverrideDeletedEvent, fragment.Key, change)
	}
}

// handleStoreChange forwards store changes verbatim unless the affected
// key is overridden, in which case the override already shadows it.
func (o *Overlay) handleStoreChange(change Change) {
	path, ok := change.Key()
	if !ok {
		return
	}
	o.mu.RLock()
	overridden := o.overrides.exists(path)
	o.mu.RUnlock()

	o.cfg.changeLogger.LogChange(ChangeLogEvent{
		Op:        LogOpStoreChange,
		Key:       path.String(),
		Scope:     o.cfg.scope.Name,
		Forwarded: !overridden,
	})
	if overridden {
		return
	}
	o.changes.Emit(change)
}

func (o *Overlay) storeFragment(path keypath.Path) *Fragment {
	fragment, ok := o.store.Get(path)
	if !ok {
		return nil
	}
	return &fragment
}

func (o *Overlay) listenerPanicked(recovered any) {
	o.cfg.changeLogger.LogChange(ChangeLogEvent{
		Op:    LogOpListenerPanic,
		Scope: o.cfg.scope.Name,
		Err:   event.PanicError(recovered),
	})
}

func (o *Overlay) log(op string, path keypath.Path, err error) {
	o.cfg.changeLogger.LogChange(ChangeLogEvent{
		Op:    op,
		Key:   path.String(),
		Scope: o.cfg.scope.Name,
		Err:   err,
	})
}

func foldFragments(fragments []Fragment) map[string]any {
	entries := make([]layering.Entry, len(fragments))
	for i, fragment := range fragments {
		entries[i] = layering.Entry{Path: fragment.Key, Value: fragment.Value}
	}
	return layering.Fold(entries)
}

func fragmentRef(fragment Fragment) *Fragment {
	return &fragment
}
