// File: api/item.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// BufferItem is the snapshot of a slot taken at queue time. Once created it
// is owned independently of the slot table; the consumer always receives a
// clone so it can never observe or mutate the queue's internal record.
type BufferItem struct {
	// Slot is the index the snapshot was taken from.
	Slot int

	// GraphicBuffer is the handle queued in the slot.
	GraphicBuffer GraphicBuffer

	// Crop is the valid region of the buffer, already validated to lie
	// fully inside the buffer bounds.
	Crop Rect

	Transform   Transform
	ScalingMode ScalingMode

	// Timestamp is the presentation time in nanoseconds.
	Timestamp       int64
	IsAutoTimestamp bool

	SwapInterval int

	// FrameNumber is the queue-wide monotonic counter value stamped when
	// the buffer was queued.
	FrameNumber uint64

	// Fence signals when the producer's writes to the buffer complete.
	Fence Fence

	// IsDroppable marks frames that may be replaced by a newer one before
	// acquisition (async/non-blocking submission).
	IsDroppable bool

	// AcquireCalled records whether the consumer has ever acquired this
	// slot before.
	AcquireCalled bool
}

// Clone returns an independently owned copy of the item. Buffer and fence
// handles are opaque references and stay shared; everything the queue
// itself owns is copied by value.
func (it *BufferItem) Clone() *BufferItem {
	out := *it
	return &out
}
