// File: api/consumer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Consumer is the display-side interface of a buffer queue. A single
// consumer acquires queued buffers, displays them, and releases the slots
// back to the free pool.
type Consumer interface {
	// Connect registers the consumer listener. Exactly one consumer may be
	// connected per queue.
	Connect(listener ConsumerListener, controlledByApp bool) Status

	// Disconnect abandons the queue: every pending and future operation on
	// either side fails with NoInit and all blocked producers wake.
	Disconnect() Status

	// AcquireBuffer pops the next item due by expectedPresent (nanoseconds;
	// 0 means "next in FIFO order") and returns an independently owned
	// clone. When waitForFence is set the call blocks, outside the core
	// lock, until the item's fence signals. Busy when nothing is ready.
	AcquireBuffer(expectedPresent int64, waitForFence bool) (*BufferItem, Status)

	// ReleaseBuffer returns an acquired item's slot to the free pool,
	// storing releaseFence for the next producer handoff.
	ReleaseBuffer(item *BufferItem, releaseFence Fence) Status

	// SetDefaultBufferSize updates the geometry used by DequeueBuffer
	// calls that pass zero dimensions.
	SetDefaultBufferSize(width, height uint32) Status

	// SetDefaultBufferFormat updates the format used by DequeueBuffer
	// calls that pass PixelFormatUnspecified.
	SetDefaultBufferFormat(format PixelFormat) Status

	// SetMaxAcquiredBufferCount bounds how many buffers the consumer may
	// hold acquired simultaneously. Rejected while a producer is connected.
	SetMaxAcquiredBufferCount(count int) Status

	// GetReleasedBuffers returns a bitmask with one bit per slot whose
	// buffer has been freed since the last call.
	GetReleasedBuffers() (uint64, Status)
}
