package midistream

import (
	"github.com/kilpatrickaudio/carbon-core/internal/seqio"
	"github.com/kilpatrickaudio/carbon-core/pkg/midimsg"
)

// Stream owns one ring Queue and one running-status Parser per Port. It
// is the concrete implementation of spec §4.1's port-stream operations:
// enqueue, dequeue, available, enqueue-byte, enqueue-sysex.
type Stream struct {
	queues  [NumPorts]*Queue
	parsers [NumPorts]*Parser
}

// NewStream allocates a Stream with a queue of the given capacity per
// port (rounded up to the next power of two).
func NewStream(queueCapacity int) *Stream {
	s := &Stream{}
	for p := Port(0); int(p) < NumPorts; p++ {
		s.queues[p] = NewQueue(queueCapacity)
		s.parsers[p] = NewParser(p)
	}
	return s
}

func (s *Stream) queueFor(port Port) (*Queue, error) {
	if !port.Valid() {
		return nil, seqio.ErrInvalidPort
	}
	return s.queues[port], nil
}

// Enqueue pushes a complete Message directly onto its port's queue
// (bypassing byte parsing), used by the engine/out-proc paths that
// already hold a constructed Message.
func (s *Stream) Enqueue(msg midimsg.Message) error {
	q, err := s.queueFor(Port(msg.Port))
	if err != nil {
		return err
	}
	return q.Enqueue(msg)
}

// Dequeue pops the next message for port, if any.
func (s *Stream) Dequeue(port Port) (midimsg.Message, bool) {
	q, err := s.queueFor(port)
	if err != nil {
		return midimsg.Message{}, false
	}
	return q.Dequeue()
}

// Available reports whether port has a queued message ready.
func (s *Stream) Available(port Port) bool {
	q, err := s.queueFor(port)
	if err != nil {
		return false
	}
	return q.Available()
}

// EnqueueByte feeds one incoming wire byte for port through its
// running-status parser, enqueuing any messages produced. Byte-transport
// interrupts drive this path (spec §5: "must only mutate the per-port
// parser/queue and never touch engine state").
func (s *Stream) EnqueueByte(port Port, b byte) error {
	if !port.Valid() {
		return seqio.ErrInvalidPort
	}
	msgs := s.parsers[port].ParseByte(b)
	var firstErr error
	for _, m := range msgs {
		m.Port = int(port)
		if err := s.queues[port].Enqueue(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// EnqueueSysEx splits payload into 3-byte carriers (final carrier 1-3
// bytes) and enqueues each directly, used for outgoing SysEx (firmware
// debug channel, remote-control acks) where no parser round-trip is
// needed. Grounded on spec §4.1: "SysEx send splits a buffer into chunks
// of 3 bytes (final chunk 1-3 bytes)".
func (s *Stream) EnqueueSysEx(port Port, payload []byte) error {
	q, err := s.queueFor(port)
	if err != nil {
		return err
	}
	for i := 0; i < len(payload); i += 3 {
		end := i + 3
		if end > len(payload) {
			end = len(payload)
		}
		if err := q.Enqueue(midimsg.SysExCarrier(int(port), payload[i:end])); err != nil {
			return err
		}
	}
	return nil
}

// QueueLen returns the current queue depth for port, or 0 if invalid.
func (s *Stream) QueueLen(port Port) int {
	q, err := s.queueFor(port)
	if err != nil {
		return 0
	}
	return q.Len()
}
