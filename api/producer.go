// File: api/producer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Application-side contract of the buffer exchange protocol. All methods
// are safe for concurrent use; blocking behavior is limited to
// DequeueBuffer and is documented there.

package api

// Producer is the application-side interface of a buffer queue. A producer
// fills preallocated graphic buffers and submits them for display.
type Producer interface {
	// RequestBuffer returns the buffer handle currently stored in a slot
	// the producer owns, marking the slot as request-buffer-called. A slot
	// must have been requested at least once since its dequeue before it
	// can be queued.
	RequestBuffer(slot int) (GraphicBuffer, Status)

	// SetBufferCount overrides the maximum buffer count. count == 0 clears
	// the override. Legal only while no slot is dequeued; frees all
	// buffers and notifies the consumer listener of the bulk release.
	SetBufferCount(count int) Status

	// DequeueBuffer claims a free slot for filling. width and height must
	// both be zero (use queue defaults) or both be nonzero. The returned
	// fence must signal before the producer may write to the buffer.
	// Blocks until a slot frees unless async is set or the connection
	// guarantees non-blocking dequeue, in which case it returns WouldBlock.
	DequeueBuffer(width, height uint32, format PixelFormat, usage uint32, async bool) (slot int, fence Fence, flags ReturnFlags, st Status)

	// DetachBuffer removes a dequeued, requested slot from queue tracking.
	// The caller keeps the buffer handle it obtained via RequestBuffer.
	DetachBuffer(slot int) Status

	// DetachNextBuffer detaches the oldest free slot still holding a
	// buffer, without blocking. NoMemory when no such slot exists.
	DetachNextBuffer() (GraphicBuffer, Fence, Status)

	// AttachBuffer inserts an externally held buffer into a freshly
	// allocated slot, left in the dequeued state with the request flag set.
	AttachBuffer(buffer GraphicBuffer) (slot int, flags ReturnFlags, st Status)

	// QueueBuffer submits a filled slot for display and returns current
	// queue geometry. Exactly one consumer notification (frame available
	// or frame replaced) fires per call, outside the core lock, in strict
	// call order across concurrent producers.
	QueueBuffer(slot int, input QueueBufferInput) (QueueBufferOutput, Status)

	// CancelBuffer returns a dequeued slot to the free pool without
	// queueing it, storing fence for the next holder to observe.
	CancelBuffer(slot int, fence Fence) Status

	// Query reads one attribute of the queue state.
	Query(what QueryWhat) (int, Status)

	// Connect attaches a producer under the given API identity. Fails when
	// abandoned, when no consumer is connected, or when another API is
	// already connected.
	Connect(listener ProducerListener, apiType ConnectionAPI, producerControlledByApp bool) (QueueBufferOutput, Status)

	// Disconnect detaches the producer connected under apiType, freeing
	// all buffers. Success (no-op) on an abandoned queue.
	Disconnect(apiType ConnectionAPI) Status

	// SetPreallocatedBuffer force-resets a slot to free with the given
	// handle, or empties it when buffer is nil. A non-nil buffer also
	// updates the queue's default geometry and format to match it, a
	// deliberate shortcut: defaults normally belong to the consumer, not
	// to whichever buffer happens to be preallocated.
	SetPreallocatedBuffer(slot int, buffer GraphicBuffer) Status
}
