package utils

import "sync"

// RingBuffer is a fixed-capacity FIFO. Pushing into a full buffer
// overwrites the oldest element. It is safe for concurrent use.
//
//	rb := NewRingBuffer[int](3)
//	rb.Push(1)
//	rb.Push(2)
//	rb.Push(3)
//	rb.Push(4)                 // 1 is evicted
//	fmt.Println(rb.ToSlice())  // [2 3 4]
//	fmt.Println(rb.Reversed()) // [4 3 2]
type RingBuffer[T any] struct {
	data  []T
	size  int
	count int
	head  int // oldest element
	tail  int // next write position
	mu    sync.RWMutex
}

// NewRingBuffer panics unless size is positive.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		panic("ring buffer size must be positive")
	}
	return &RingBuffer[T]{
		data: make([]T, size),
		size: size,
	}
}

// Push appends item and reports whether an older element was evicted.
func (rb *RingBuffer[T]) Push(item T) (evicted bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.tail] = item
	rb.tail = (rb.tail + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
		return false
	}
	rb.head = (rb.head + 1) % rb.size
	return true
}

// Len is always within [0, Cap()].
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

func (rb *RingBuffer[T]) Cap() int {
	return rb.size
}

// At returns element i counted from the oldest. It panics outside [0, Len()).
func (rb *RingBuffer[T]) At(i int) T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if i < 0 || i >= rb.count {
		panic("index out of range")
	}
	return rb.at(i)
}

func (rb *RingBuffer[T]) at(i int) T {
	return rb.data[(rb.head+i)%rb.size]
}

// ToSlice copies the elements oldest first.
func (rb *RingBuffer[T]) ToSlice() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	result := make([]T, rb.count)
	for i := 0; i < rb.count; i++ {
		result[i] = rb.at(i)
	}
	return result
}

// Reversed copies the elements newest first.
func (rb *RingBuffer[T]) Reversed() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	result := make([]T, rb.count)
	for i := 0; i < rb.count; i++ {
		result[i] = rb.at(rb.count - 1 - i)
	}
	return result
}

// Clear empties the buffer and releases references to stored elements.
func (rb *RingBuffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	clear(rb.data)
	rb.count, rb.head, rb.tail = 0, 0, 0
}
