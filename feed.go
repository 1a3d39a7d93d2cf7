package dualbind

import (
	"context"
	"sync"
)

// Subscribable is the update source a subscription-kind action streams
// from. Updates delivers the current value followed by every
// subsequent update until ctx is canceled.
type Subscribable interface {
	Updates(ctx context.Context) <-chan any
}

// Feed holds a single value that can be read, written, and subscribed
// to. It backs subscription-kind GraphQL bindings: every subscriber
// receives the current value immediately and the latest value after
// each Set. Intermediate updates may be skipped for slow subscribers;
// a Feed represents current state, not an event log.
//
// Thread-safe for concurrent Get/Set/Updates.
type Feed[T any] struct {
	mu          sync.RWMutex
	value       T
	subscribers map[int64]chan any
	nextSubID   int64
}

// NewFeed creates a Feed with the given initial value.
func NewFeed[T any](initial T) *Feed[T] {
	return &Feed[T]{
		value:       initial,
		subscribers: make(map[int64]chan any),
	}
}

// Get returns the current value.
func (f *Feed[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set updates the value and broadcasts it to all subscribers.
func (f *Feed[T]) Set(value T) {
	f.mu.Lock()
	f.value = value
	subs := make([]chan any, 0, len(f.subscribers))
	for _, ch := range f.subscribers {
		subs = append(subs, ch)
	}
	f.mu.Unlock()

	// Non-blocking, latest-wins delivery outside the lock.
	for _, ch := range subs {
		select {
		case ch <- value:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- value:
			default:
			}
		}
	}
}

// Update atomically applies fn to the current value and broadcasts the
// result.
func (f *Feed[T]) Update(fn func(T) T) {
	f.mu.Lock()
	next := fn(f.value)
	f.mu.Unlock()
	f.Set(next)
}

// Updates implements Subscribable. The returned channel yields the
// current value first, then the latest value after each Set, and is
// closed when ctx is canceled.
func (f *Feed[T]) Updates(ctx context.Context) <-chan any {
	out := make(chan any, 1)

	f.mu.Lock()
	current := f.value
	ch := make(chan any, 1)
	id := f.nextSubID
	f.nextSubID++
	f.subscribers[id] = ch
	f.mu.Unlock()

	out <- current

	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-ch:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
