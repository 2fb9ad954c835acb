package io

import (
	"sync"
)

// QUEUE_DEFAULT_CAPACITY is the default number of pending keys in a new queue.
const QUEUE_DEFAULT_CAPACITY = 16

// Queue is a ring buffer of pending key presses. A user interface pushes
// keys from its own goroutine, and the processor polls them.
type Queue struct {
	Capacity int

	mutex     sync.Mutex
	readIndex int
	count     int
	closed    bool
	data      []uint8
}

// NewQueue returns an empty queue with the default capacity.
func NewQueue() *Queue {
	return &Queue{Capacity: QUEUE_DEFAULT_CAPACITY}
}

// rewind allocates the ring, if needed. Caller holds the mutex.
func (queue *Queue) rewind() {
	if queue.data != nil {
		return
	}

	if queue.Capacity <= 0 {
		queue.Capacity = QUEUE_DEFAULT_CAPACITY
	}
	queue.data = make([]uint8, queue.Capacity)
}

// Push appends a key press to the queue.
// Returns ErrQueueFull if the queue has reached capacity.
func (queue *Queue) Push(key uint8) (err error) {
	if key >= KEY_COUNT {
		err = ErrKeyInvalid
		return
	}

	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	if queue.closed {
		err = ErrKeypadClosed
		return
	}

	queue.rewind()

	if queue.count == len(queue.data) {
		err = ErrQueueFull
		return
	}

	queue.data[(queue.readIndex+queue.count)%len(queue.data)] = key
	queue.count++

	return
}

// Poll removes the oldest key press from the queue, if any.
// Once the queue is closed and drained, Poll returns ErrKeypadClosed.
func (queue *Queue) Poll() (key uint8, ok bool, err error) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	if queue.count == 0 {
		if queue.closed {
			err = ErrKeypadClosed
		}
		return
	}

	key = queue.data[queue.readIndex]
	ok = true
	queue.readIndex = (queue.readIndex + 1) % len(queue.data)
	queue.count--

	return
}

// Len returns the number of pending key presses.
func (queue *Queue) Len() int {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	return queue.count
}

// Reset discards all pending key presses.
func (queue *Queue) Reset() {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	queue.readIndex = 0
	queue.count = 0
}

// Close stops the queue from accepting more key presses.
func (queue *Queue) Close() {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	queue.closed = true
}
