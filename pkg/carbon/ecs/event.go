package ecs

import "sync"

// Events is a double-buffered event queue stored as a resource. Events sent during a tick stay
// readable through the following tick and are dropped afterwards unless drained earlier.
type Events[T any] struct {
	mu       sync.Mutex
	previous []T
	current  []T
}

// Send appends events to the current buffer.
func (e *Events[T]) Send(events ...T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = append(e.current, events...)
}

// Read returns a copy of all buffered events, oldest first.
func (e *Events[T]) Read() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]T, 0, len(e.previous)+len(e.current))
	out = append(out, e.previous...)
	return append(out, e.current...)
}

// Drain returns all buffered events, oldest first, and empties the queue.
func (e *Events[T]) Drain() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]T, 0, len(e.previous)+len(e.current))
	out = append(out, e.previous...)
	out = append(out, e.current...)
	e.previous = e.previous[:0]
	e.current = e.current[:0]
	return out
}

// Len returns the number of buffered events.
func (e *Events[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.previous) + len(e.current)
}

// update rotates the buffers at the end of a tick.
func (e *Events[T]) update() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.previous, e.current = e.current, e.previous[:0]
}

type eventBuffer interface {
	update()
}

// AddEvents installs an Events[T] resource and returns it. Calling it again returns the existing
// queue.
func AddEvents[T any](w *World) *Events[T] {
	if events, ok := GetResource[Events[T]](w); ok {
		return events
	}
	events := &Events[T]{}
	InsertResource(w, events)
	w.eventBuffers = append(w.eventBuffers, events)
	return events
}

// SendEvents delivers events to the world's Events[T] queue. Without one the events are dropped
// and false is returned; that is a normal configuration, not an error.
func SendEvents[T any](w *World, events ...T) bool {
	queue, ok := GetResource[Events[T]](w)
	if !ok {
		return false
	}
	if len(events) > 0 {
		queue.Send(events...)
	}
	return true
}
