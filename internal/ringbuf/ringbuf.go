// Package ringbuf provides a fixed-capacity FIFO ring that evicts its oldest
// element when a push would exceed capacity. The ring is not safe for
// concurrent use; callers serialise access per ring.
package ringbuf

// Ring is a bounded, insertion-ordered buffer. Unlike a queue it never
// rejects a push: when full, the oldest element is overwritten.
type Ring[T any] struct {
	buf   []T
	start int // index of the oldest element
	n     int // number of live elements
}

// New creates a ring holding at most capacity elements. Minimum capacity is 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v as the newest element. If the ring was full, the oldest
// element is dropped and returned with evicted=true.
func (r *Ring[T]) Push(v T) (old T, evicted bool) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return old, false
	}

	old = r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return old, true
}

// At returns the i-th element, 0 being the oldest. It panics when i is out
// of range, like slice indexing.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("ringbuf: index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last returns the newest element, or false if the ring is empty.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	return r.At(r.n - 1), true
}

// Items returns a copy of the contents, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.n)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the current number of elements.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Full reports whether the next Push will evict.
func (r *Ring[T]) Full() bool { return r.n == len(r.buf) }

// Reset empties the ring, keeping its capacity.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start, r.n = 0, 0
}

// FromSlice builds a ring of the given capacity and pushes items in order,
// so only the newest capacity items survive.
func FromSlice[T any](capacity int, items []T) *Ring[T] {
	r := New[T](capacity)
	for _, v := range items {
		r.Push(v)
	}
	return r
}
