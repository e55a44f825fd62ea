// Package broadcast delivers typed events between components that do not
// otherwise reference each other, such as a rating change made on the detail
// view reaching the list synchronizer.
package broadcast

import "sync"

// RatingChanged announces a confirmed rating update for one job.
type RatingChanged struct {
	VideoID string
	Rating  int
}

// Bus is a synchronous fan-out of events of type T. Handlers run on the
// publisher's goroutine in subscription order.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers []subscription[T]
	nextID   int
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	if b == nil || fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, subscription[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, h := range b.handlers {
				if h.id == id {
					b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers event to every current subscriber. A nil bus drops it.
func (b *Bus[T]) Publish(event T) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]func(T), len(b.handlers))
	for i, h := range b.handlers {
		handlers[i] = h.fn
	}
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(event)
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
