package midistream

import (
	"github.com/kilpatrickaudio/carbon-core/internal/seqio"
	"github.com/kilpatrickaudio/carbon-core/pkg/midimsg"
)

// DefaultQueueCapacity is the default power-of-two ring size per port,
// per spec §3 ("default 256").
const DefaultQueueCapacity = 256

// Queue is a fixed-capacity, power-of-two SPSC ring of midimsg.Message.
// It is safe for exactly one producer goroutine and one consumer
// goroutine to call Enqueue/Dequeue concurrently with each other, but not
// safe for concurrent producers or concurrent consumers, matching the
// byte-transport-interrupt-to-realtime-task split in spec §5.
type Queue struct {
	buf  []midimsg.Message
	mask uint32
	inp  uint32
	outp uint32
}

// NewQueue allocates a Queue whose capacity is rounded up to the next
// power of two (minimum 2).
func NewQueue(capacity int) *Queue {
	if capacity < 2 {
		capacity = 2
	}
	cap := nextPowerOfTwo(capacity)
	return &Queue{
		buf:  make([]midimsg.Message, cap),
		mask: uint32(cap - 1),
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return int((q.inp - q.outp) & q.mask)
}

// Cap returns the queue's usable capacity (one slot is always kept empty
// to distinguish full from empty).
func (q *Queue) Cap() int {
	return int(q.mask)
}

// Full reports whether the queue is at capacity; Enqueue then drops the
// incoming message.
func (q *Queue) Full() bool {
	return ((q.inp - q.outp) & q.mask) == q.mask
}

// Empty reports whether the queue has no queued messages.
func (q *Queue) Empty() bool {
	return q.inp == q.outp
}

// Enqueue appends msg to the tail. Returns seqio.ErrQueueFull and drops
// the message if the queue is saturated (spec §3: "Overflow drops the
// incoming message and returns full-stream").
func (q *Queue) Enqueue(msg midimsg.Message) error {
	if q.Full() {
		return seqio.ErrQueueFull
	}
	q.buf[q.inp&q.mask] = msg
	q.inp++
	return nil
}

// Dequeue removes and returns the head message, if any.
func (q *Queue) Dequeue() (midimsg.Message, bool) {
	if q.Empty() {
		return midimsg.Message{}, false
	}
	m := q.buf[q.outp&q.mask]
	q.outp++
	return m, true
}

// Available reports whether a Dequeue would succeed.
func (q *Queue) Available() bool {
	return !q.Empty()
}
