// Package ringchan provides a bounded channel with overwrite-oldest send
// semantics. Host callbacks publish through it so they never block on a slow
// consumer; readers treat it like an ordinary channel.
package ringchan

// Ring wraps a buffered channel. Send never blocks indefinitely: when the
// buffer is full the oldest element is dropped to make room.
type Ring[T any] struct {
	ch chan T
}

// New creates a Ring with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// Send inserts v, dropping the oldest buffered element if the ring is full.
// It reports whether an element was dropped.
func (r *Ring[T]) Send(v T) bool {
	dropped := false
	select {
	case r.ch <- v:
	default:
		select {
		case <-r.ch:
			dropped = true
		default:
		}
		r.ch <- v
	}
	return dropped
}

// C returns the receive side. Consumers can range over it until Close.
func (r *Ring[T]) C() <-chan T {
	return r.ch
}

// Receive blocks until a value is available or the ring is closed.
func (r *Ring[T]) Receive() (T, bool) {
	v, ok := <-r.ch
	return v, ok
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int { return len(r.ch) }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return cap(r.ch) }

// Close closes the ring. Send after Close panics.
func (r *Ring[T]) Close() { close(r.ch) }
