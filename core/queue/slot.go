// File: core/queue/slot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Slot table entry and its state machine.

package queue

import (
	"github.com/momentics/hioload-bufferqueue/api"
)

// BufferState is the state of one slot in the table. Exactly one holder
// class may act on a slot in each state.
type BufferState int

const (
	// BufferStateFree: owned by the queue, available for dequeue.
	BufferStateFree BufferState = iota
	// BufferStateDequeued: owned by the producer, being filled.
	BufferStateDequeued
	// BufferStateQueued: owned by the queue, pending acquisition.
	BufferStateQueued
	// BufferStateAcquired: owned by the consumer, being displayed.
	BufferStateAcquired
)

func (s BufferState) String() string {
	switch s {
	case BufferStateFree:
		return "free"
	case BufferStateDequeued:
		return "dequeued"
	case BufferStateQueued:
		return "queued"
	case BufferStateAcquired:
		return "acquired"
	default:
		return "unknown"
	}
}

// bufferSlot is one entry of the fixed slot table. Mutated only while the
// core lock is held.
type bufferSlot struct {
	state BufferState

	// graphicBuffer is the preallocated handle stored in the slot; nil
	// means the slot is empty.
	graphicBuffer api.GraphicBuffer

	// fence associated with the last handoff in either direction.
	fence api.Fence

	// frameNumber orders free slots by recency (smallest = oldest) and
	// detects stale entries.
	frameNumber uint64

	// Protocol-compliance flags; violating the implied call order is a
	// caller error, never queue state.
	requestBufferCalled   bool
	acquireCalled         bool
	attachedByConsumer    bool
	needsCleanupOnRelease bool
}
