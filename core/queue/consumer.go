// File: core/queue/consumer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Display-side interface of the queue. Thin relative to the producer but
// bound by the same slot invariants. Implements api.Consumer.

package queue

import (
	"time"

	"github.com/momentics/hioload-bufferqueue/api"
	"github.com/momentics/hioload-bufferqueue/metrics"
)

// maxReasonablePresentOffset bounds how far in the future an expected
// present time is taken seriously. Timestamps further out are assumed to
// be bogus and the frame is acquired immediately.
const maxReasonablePresentOffset = int64(time.Second)

// Consumer implements api.Consumer against a shared Core.
type Consumer struct {
	core *Core
}

var _ api.Consumer = (*Consumer)(nil)

// NewConsumer returns the display-side interface of core.
func NewConsumer(core *Core) *Consumer {
	return &Consumer{core: core}
}

// Connect registers the single consumer listener of the queue.
func (cc *Consumer) Connect(listener api.ConsumerListener, controlledByApp bool) api.Status {
	c := cc.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return api.NoInit
	}
	if listener == nil {
		return api.BadValue
	}
	if c.consumerListener != nil {
		c.log.V(1).Info("consumer connect: already connected")
		return api.BadValue
	}
	c.consumerListener = listener
	c.consumerControlledByApp = controlledByApp
	c.log.V(1).Info("consumer connected", "controlledByApp", controlledByApp)
	return api.Success
}

// Disconnect abandons the queue. Abandonment is terminal: every pending
// and future operation on either side fails with NoInit, and every blocked
// producer wakes immediately.
func (cc *Consumer) Disconnect() api.Status {
	c := cc.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumerListener == nil {
		return api.BadValue
	}
	c.isAbandoned = true
	c.consumerListener = nil
	c.connectedAPI = api.NoConnectedAPI
	c.fifo.Clear()
	c.freeAllBuffersLocked()
	c.dequeueCond.Broadcast()
	c.bufferFreedCond.Broadcast()
	c.frameAvailableCond.Broadcast()
	c.log.V(1).Info("consumer disconnected, queue abandoned")
	return api.Success
}

// AcquireBuffer pops the next pending item due by expectedPresent and
// returns an independently owned clone; the shared record is never handed
// out. When waitForFence is set, the call blocks outside the core lock
// until the item's fence signals.
func (cc *Consumer) AcquireBuffer(expectedPresent int64, waitForFence bool) (*api.BufferItem, api.Status) {
	c := cc.core

	c.mu.Lock()
	if c.isAbandoned {
		c.mu.Unlock()
		return nil, api.NoInit
	}

	acquiredCount := 0
	for i := range c.slots {
		if c.slots[i].state == BufferStateAcquired {
			acquiredCount++
		}
	}
	// One transient extra acquisition is tolerated, more is a consumer
	// logic defect.
	if acquiredCount >= c.maxAcquiredBufferCount+1 {
		c.log.V(1).Info("acquireBuffer: too many acquired", "count", acquiredCount)
		c.mu.Unlock()
		return nil, api.InvalidOperation
	}

	if c.fifo.Len() == 0 {
		c.mu.Unlock()
		return nil, api.Busy
	}

	if expectedPresent != 0 {
		// Drop heads that would be stale by the expected present time:
		// the head is expendable while its successor is also due.
		for c.fifo.Len() > 1 && !c.fifo.Head().IsAutoTimestamp {
			next := c.fifo.At(1)
			if next.Timestamp > expectedPresent ||
				next.Timestamp < expectedPresent-maxReasonablePresentOffset {
				break
			}
			head := c.fifo.PopHead()
			if c.stillTrackingLocked(head) {
				c.slots[head.Slot].state = BufferStateFree
				c.slots[head.Slot].frameNumber = 0
			}
			c.log.V(1).Info("dropped stale frame", "slot", head.Slot, "frame", head.FrameNumber)
			if c.metricsOn {
				metrics.StaleFramesDropped.Inc()
			}
		}
		head := c.fifo.Head()
		if head.Timestamp > expectedPresent &&
			head.Timestamp-expectedPresent < maxReasonablePresentOffset {
			// Head is not due yet.
			c.mu.Unlock()
			return nil, api.Busy
		}
	}

	item := c.fifo.PopHead()
	out := item.Clone()
	if c.stillTrackingLocked(item) {
		s := &c.slots[item.Slot]
		out.GraphicBuffer = s.graphicBuffer
		s.state = BufferStateAcquired
		s.acquireCalled = true
		s.fence = api.NoFence
	}
	fence := out.Fence
	c.log.V(1).Info("acquired", "slot", out.Slot, "frame", out.FrameNumber)
	if c.metricsOn {
		metrics.BuffersAcquired.Inc()
	}
	c.mu.Unlock()

	if waitForFence && fence != nil {
		if err := fence.WaitForever(); err != nil {
			c.log.Error(err, "fence wait failed", "slot", out.Slot)
		}
	}
	return out, api.Success
}

// ReleaseBuffer returns an acquired item's slot to the free pool, storing
// releaseFence for the next producer handoff, and wakes blocked dequeues.
func (cc *Consumer) ReleaseBuffer(item *api.BufferItem, releaseFence api.Fence) api.Status {
	c := cc.core
	var listener api.ProducerListener

	if item == nil || releaseFence == nil {
		return api.BadValue
	}

	c.mu.Lock()
	if c.isAbandoned {
		c.mu.Unlock()
		return api.NoInit
	}
	if item.Slot < 0 || item.Slot >= api.NumBufferSlots {
		c.mu.Unlock()
		return api.BadValue
	}
	s := &c.slots[item.Slot]

	if s.state != BufferStateAcquired {
		// The producer may have freed the slot while it was acquired; the
		// cleanup flag tells this release apart from a protocol error.
		if s.needsCleanupOnRelease {
			s.needsCleanupOnRelease = false
			c.mu.Unlock()
			return api.BadValue
		}
		c.log.V(1).Info("releaseBuffer: slot not acquired",
			"slot", item.Slot, "state", s.state.String())
		c.mu.Unlock()
		return api.BadValue
	}
	if s.graphicBuffer != item.GraphicBuffer {
		// Swapped out from under the consumer; flag for cleanup instead
		// of completing a release of the wrong buffer.
		s.needsCleanupOnRelease = true
		c.mu.Unlock()
		return api.BadValue
	}

	s.fence = releaseFence
	s.state = BufferStateFree
	listener = c.producerListener
	c.dequeueCond.Broadcast()
	c.bufferFreedCond.Broadcast()
	c.log.V(1).Info("released", "slot", item.Slot, "frame", item.FrameNumber)
	if c.metricsOn {
		metrics.BuffersReleased.Inc()
	}
	c.mu.Unlock()

	if listener != nil {
		listener.OnBufferReleased()
	}
	return api.Success
}

// SetDefaultBufferSize updates the geometry used by dequeues that pass
// zero dimensions. Affects only future DequeueBuffer calls.
func (cc *Consumer) SetDefaultBufferSize(width, height uint32) api.Status {
	c := cc.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return api.NoInit
	}
	if width == 0 || height == 0 {
		return api.BadValue
	}
	c.defaultWidth = width
	c.defaultHeight = height
	return api.Success
}

// SetDefaultBufferFormat updates the format used by dequeues that pass
// PixelFormatUnspecified.
func (cc *Consumer) SetDefaultBufferFormat(format api.PixelFormat) api.Status {
	c := cc.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return api.NoInit
	}
	c.defaultFormat = format
	return api.Success
}

// SetMaxAcquiredBufferCount bounds simultaneously acquired buffers.
// Rejected while a producer is connected.
func (cc *Consumer) SetMaxAcquiredBufferCount(count int) api.Status {
	c := cc.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return api.NoInit
	}
	if count < 1 || count > maxMaxAcquiredBuffers {
		return api.BadValue
	}
	if c.connectedAPI != api.NoConnectedAPI {
		return api.InvalidOperation
	}
	c.maxAcquiredBufferCount = count
	return api.Success
}

// GetReleasedBuffers returns a bitmask of slots whose buffer has been
// freed since the last call.
func (cc *Consumer) GetReleasedBuffers() (uint64, api.Status) {
	c := cc.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return 0, api.NoInit
	}
	mask := c.freedSlotsMask
	c.freedSlotsMask = 0
	return mask, api.Success
}
