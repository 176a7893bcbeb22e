// Package event provides an ordered, instance-scoped publish/subscribe bus.
package event

import (
	"fmt"
	"sync"
)

// PanicHandler receives the recovered value of a panicking listener.
type PanicHandler func(recovered any)

// Bus delivers values to listeners synchronously, in subscription order.
// Listeners may subscribe or dispose from inside a callback; each Emit works
// on a snapshot of the listener list taken when it starts.
type Bus[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[T]
	onPanic   PanicHandler
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Subscription cancels one listener registration.
type Subscription struct {
	once    sync.Once
	dispose func()
}

// Dispose unsubscribes the listener. Calling it more than once is a no-op.
func (s *Subscription) Dispose() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.dispose != nil {
			s.dispose()
		}
	})
}

// NewBus constructs a bus. onPanic may be nil, in which case panics from
// listeners are recovered and dropped.
func NewBus[T any](onPanic PanicHandler) *Bus[T] {
	return &Bus[T]{onPanic: onPanic}
}

// Subscribe registers fn and returns its subscription. A nil fn yields an
// inert subscription.
func (b *Bus[T]) Subscribe(fn func(T)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener[T]{id: id, fn: fn})
	b.mu.Unlock()

	return &Subscription{dispose: func() { b.remove(id) }}
}

// Emit delivers value to every listener registered when Emit starts. A
// panicking listener does not prevent delivery to the remaining listeners.
func (b *Bus[T]) Emit(value T) {
	b.mu.Lock()
	snapshot := b.listeners
	b.mu.Unlock()

	for _, l := range snapshot {
		b.deliver(l.fn, value)
	}
}

// Len returns the number of active listeners.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Reset drops every listener.
func (b *Bus[T]) Reset() {
	b.mu.Lock()
	b.listeners = nil
	b.mu.Unlock()
}

func (b *Bus[T]) deliver(fn func(T), value T) {
	defer func() {
		if r := recover(); r != nil && b.onPanic != nil {
			b.onPanic(r)
		}
	}()
	fn(value)
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id != id {
			continue
		}
		// copy-on-write keeps in-flight Emit snapshots stable
		next := make([]listener[T], 0, len(b.listeners)-1)
		next = append(next, b.listeners[:i]...)
		next = append(next, b.listeners[i+1:]...)
		b.listeners = next
		return
	}
}

// PanicError converts a recovered listener panic into an error.
func PanicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("event: listener panic: %w", err)
	}
	return fmt.Errorf("event: listener panic: %v", recovered)
}
