package series

// window is a fixed-capacity FIFO. Pushing into a full window evicts the
// oldest element first, so Len never exceeds the capacity.
type window[T any] struct {
	buf  []T
	head int
	size int
}

func newWindow[T any](capacity int) *window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &window[T]{buf: make([]T, capacity)}
}

func (w *window[T]) Cap() int { return len(w.buf) }
func (w *window[T]) Len() int { return w.size }

// Push appends v at the tail and reports whether an element was evicted.
func (w *window[T]) Push(v T) bool {
	if w.size < len(w.buf) {
		w.buf[(w.head+w.size)%len(w.buf)] = v
		w.size++
		return false
	}
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	return true
}

// At returns the i-th element counting from the oldest.
func (w *window[T]) At(i int) T {
	return w.buf[(w.head+i)%len(w.buf)]
}

// Last returns the newest element.
func (w *window[T]) Last() (T, bool) {
	var zero T
	if w.size == 0 {
		return zero, false
	}
	return w.At(w.size - 1), true
}

// Values copies the contents, oldest first.
func (w *window[T]) Values() []T {
	out := make([]T, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.At(i)
	}
	return out
}
