// Package state provides the reactive cells that back field state.
// A Rune holds one value and notifies subscribers when it changes.
package state

import "sync"

// Unsubscribe removes a subscription created by Subscribe.
type Unsubscribe func()

// Subscriber receives the new value after every change.
type Subscriber[T any] func(T)

type subEntry[T any] struct {
	id uint64
	fn Subscriber[T]
}

// Rune is a reactive cell holding a comparable value.
// Setting an equal value is a no-op and does not notify.
type Rune[T comparable] struct {
	mu          sync.RWMutex
	value       T
	subscribers []subEntry[T]
	nextSubID   uint64
}

// NewRune creates a Rune with the given initial value.
//
// Example:
//
//	value := state.NewRune("")
//	value.Set("a@b.co")
func NewRune[T comparable](initial T) *Rune[T] {
	return &Rune[T]{value: initial, nextSubID: 1}
}

// Get returns the current value.
func (r *Rune[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Set stores value and notifies subscribers if it differs from the current one.
// Subscribers run synchronously on the caller's goroutine, outside the lock.
func (r *Rune[T]) Set(value T) {
	r.mu.Lock()
	if r.value == value {
		r.mu.Unlock()
		return
	}
	r.value = value
	subs := make([]subEntry[T], len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.fn(value)
	}
}

// Subscribe registers fn for change notifications.
func (r *Rune[T]) Subscribe(fn Subscriber[T]) Unsubscribe {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subscribers = append(r.subscribers, subEntry[T]{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, sub := range r.subscribers {
			if sub.id == id {
				r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
				break
			}
		}
	}
}
