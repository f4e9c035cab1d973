package frontier

type FIFOQueue[T any] struct {
	items []T
	head  int
}

func NewFIFOQueue[T any]() *FIFOQueue[T] {
	return &FIFOQueue[T]{}
}

func (f *FIFOQueue[T]) Enqueue(item T) {
	f.items = append(f.items, item)
}

// return false on the second returned values if queue is empty
func (f *FIFOQueue[T]) Dequeue() (T, bool) {
	var zero T
	if f.head >= len(f.items) {
		return zero, false
	}
	first := f.items[f.head]
	f.items[f.head] = zero
	f.head++

	// compact once the consumed prefix dominates the backing array
	if f.head > 64 && f.head*2 >= len(f.items) {
		remaining := copy(f.items, f.items[f.head:])
		clear(f.items[remaining:])
		f.items = f.items[:remaining]
		f.head = 0
	}
	return first, true
}

// Peek returns the front item without removing it.
func (f *FIFOQueue[T]) Peek() (T, bool) {
	var zero T
	if f.head >= len(f.items) {
		return zero, false
	}
	return f.items[f.head], true
}

func (f *FIFOQueue[T]) Size() int {
	return len(f.items) - f.head
}
