// Package ring provides the receive queue shared between the interrupt
// handler and the main loop.
package ring

// The queue is single-producer/single-consumer. The producer (interrupt
// context) is the only writer of head, the consumer (main loop) is the
// only writer of tail. Each side only loads the other's index, so no lock
// or critical section is needed. Introducing a second producer or consumer
// breaks this.
//
// One slot is always kept free so that head == tail means empty without an
// extra discriminator, which leaves Capacity-1 usable bytes. When the queue
// is full, new bytes are rejected and counted as dropped; the oldest data is
// never overwritten because that would require the producer to move tail.

import "sync/atomic"

// Capacity is the number of slots in the queue.
const Capacity = 64

// Buffer is a fixed-capacity byte queue.
type Buffer struct {
	storage [Capacity]byte
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint64
}

func next(i uint32) uint32 {
	if i++; i >= Capacity {
		return 0
	}
	return i
}

// TryPush appends b. It must only be called by the producer.
// It returns false and counts a dropped byte if the queue is full.
func (r *Buffer) TryPush(b byte) bool {
	head := r.head.Load()
	n := next(head)
	if n == r.tail.Load() {
		r.dropped.Add(1)
		return false
	}
	r.storage[head] = b
	// the store to head publishes storage[head] to the consumer.
	r.head.Store(n)
	return true
}

// TryPop removes the oldest byte. It must only be called by the consumer.
func (r *Buffer) TryPop() (byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	b := r.storage[tail]
	r.tail.Store(next(tail))
	return b, true
}

// IsEmpty reports whether no byte is queued.
func (r *Buffer) IsEmpty() bool {
	return r.head.Load() == r.tail.Load()
}

// IsFull reports whether TryPush would drop.
func (r *Buffer) IsFull() bool {
	return next(r.head.Load()) == r.tail.Load()
}

// Len returns the number of queued bytes as observed at the time of call.
func (r *Buffer) Len() int {
	head, tail := r.head.Load(), r.tail.Load()
	if head >= tail {
		return int(head - tail)
	}
	return int(Capacity - tail + head)
}

// Dropped returns the number of bytes rejected because the queue was full.
func (r *Buffer) Dropped() uint64 {
	return r.dropped.Load()
}
