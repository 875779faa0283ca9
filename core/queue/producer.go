// File: core/queue/producer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Application-side interface of the queue: slot allocation, submission
// ordering, and connection management. Implements api.Producer.

package queue

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-bufferqueue/api"
	"github.com/momentics/hioload-bufferqueue/metrics"
)

// Producer implements api.Producer against a shared Core.
type Producer struct {
	core *Core
}

var _ api.Producer = (*Producer)(nil)

// NewProducer returns the application-side interface of core.
func NewProducer(core *Core) *Producer {
	return &Producer{core: core}
}

// RequestBuffer returns the buffer handle stored in a dequeued slot and
// marks the slot as requested. A slot must be requested at least once
// after each dequeue before it may be queued.
func (p *Producer) RequestBuffer(slot int) (api.GraphicBuffer, api.Status) {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return nil, api.NoInit
	}
	if slot < 0 || slot >= api.NumBufferSlots {
		c.log.V(1).Info("requestBuffer: slot out of range", "slot", slot)
		return nil, api.BadValue
	}
	s := &c.slots[slot]
	if s.state != BufferStateDequeued {
		c.log.V(1).Info("requestBuffer: slot not dequeued", "slot", slot, "state", s.state.String())
		return nil, api.BadValue
	}
	if s.graphicBuffer == nil {
		return nil, api.BadValue
	}
	s.requestBufferCalled = true
	return s.graphicBuffer, api.Success
}

// SetBufferCount overrides the maximum buffer count. Zero clears the
// override. Either way all buffers are freed and the consumer listener is
// told, outside the lock, that its buffers are gone.
func (p *Producer) SetBufferCount(count int) api.Status {
	c := p.core
	var listener api.BuffersReleasedListener

	c.mu.Lock()
	if c.isAbandoned {
		c.mu.Unlock()
		return api.NoInit
	}
	if count > api.NumBufferSlots {
		c.mu.Unlock()
		return api.BadValue
	}
	for i := range c.slots {
		if c.slots[i].state == BufferStateDequeued {
			c.log.V(1).Info("setBufferCount: slot still dequeued", "slot", i)
			c.mu.Unlock()
			return api.BadValue
		}
	}

	if count == 0 {
		c.overrideMaxBufferCount = 0
		c.freeAllBuffersLocked()
	} else {
		if count < c.minMaxBufferCountLocked(false) {
			c.log.V(1).Info("setBufferCount: below minimum", "count", count,
				"min", c.minMaxBufferCountLocked(false))
			c.mu.Unlock()
			return api.BadValue
		}
		if c.fifo.Len() != 0 {
			c.mu.Unlock()
			return api.BadValue
		}
		c.freeAllBuffersLocked()
		c.overrideMaxBufferCount = count
	}
	listener = c.consumerListener
	c.dequeueCond.Broadcast()
	c.bufferFreedCond.Broadcast()
	c.mu.Unlock()

	if listener != nil {
		listener.OnBuffersReleased()
	}
	return api.Success
}

// waitForFreeSlotLocked runs the slot-allocation loop: it scans the active
// window for the oldest free slot and blocks on the slot-freed condition
// until one appears, unless the caller or the connection demands
// non-blocking semantics. Core lock must be held; it is released while
// sleeping and reacquired before return.
func (c *Core) waitForFreeSlotLocked(async bool, caller string) (int, api.ReturnFlags, api.Status) {
	var flags api.ReturnFlags
	for {
		if c.isAbandoned {
			c.log.V(1).Info("wait for free slot on abandoned queue", "caller", caller)
			return api.InvalidBufferSlot, flags, api.NoInit
		}

		maxBufferCount := c.maxBufferCountLocked(async)
		if async && c.overrideMaxBufferCount != 0 && c.overrideMaxBufferCount < maxBufferCount {
			c.log.V(1).Info("async dequeue with insufficient override",
				"override", c.overrideMaxBufferCount, "max", maxBufferCount, "caller", caller)
			return api.InvalidBufferSlot, flags, api.BadValue
		}

		// Shrinking the window evicts trailing slots.
		for i := maxBufferCount; i < api.NumBufferSlots; i++ {
			if c.slots[i].graphicBuffer != nil {
				c.freeBufferLocked(i)
				flags |= api.FlagReleaseAllBuffers
			}
		}

		found := api.InvalidBufferSlot
		dequeuedCount := 0
		acquiredCount := 0
		for i := 0; i < maxBufferCount; i++ {
			switch c.slots[i].state {
			case BufferStateDequeued:
				dequeuedCount++
			case BufferStateAcquired:
				acquiredCount++
			case BufferStateFree:
				if found == api.InvalidBufferSlot ||
					c.slots[i].frameNumber < c.slots[found].frameNumber {
					found = i
				}
			}
		}

		// Multiple concurrent dequeues require an explicit buffer-count
		// negotiation first.
		if c.overrideMaxBufferCount == 0 && dequeuedCount > 0 {
			c.log.V(1).Info("multiple dequeues without buffer count override", "caller", caller)
			return api.InvalidBufferSlot, flags, api.InvalidOperation
		}

		if c.bufferHasBeenQueued {
			newUndequeued := maxBufferCount - (dequeuedCount + 1)
			minUndequeued := c.minUndequeuedBufferCountLocked(async)
			if newUndequeued < minUndequeued {
				c.log.V(1).Info("undequeued count would fall below minimum",
					"new", newUndequeued, "min", minUndequeued, "caller", caller)
				return api.InvalidBufferSlot, flags, api.InvalidOperation
			}
		}

		tooManyPending := c.fifo.Len() > maxBufferCount
		if found == api.InvalidBufferSlot || tooManyPending {
			nonBlocking := async ||
				(c.dequeueBufferCannotBlock && acquiredCount <= c.maxAcquiredBufferCount)
			if nonBlocking {
				if c.metricsOn {
					metrics.DequeueWouldBlock.Inc()
				}
				return api.InvalidBufferSlot, flags, api.WouldBlock
			}
			if c.metricsOn {
				metrics.DequeueWaits.Inc()
			}
			c.dequeueCond.Wait()
			continue
		}
		return found, flags, api.Success
	}
}

// DequeueBuffer claims a free slot and hands its buffer to the producer for
// filling. Blocks until a slot frees unless async or the connection
// guarantees non-blocking dequeue. The returned fence gates writes to the
// buffer.
func (p *Producer) DequeueBuffer(width, height uint32, format api.PixelFormat, usage uint32, async bool) (int, api.Fence, api.ReturnFlags, api.Status) {
	c := p.core

	if (width == 0) != (height == 0) {
		c.log.V(1).Info("dequeueBuffer: invalid dimensions", "width", width, "height", height)
		return api.InvalidBufferSlot, nil, 0, api.BadValue
	}

	c.mu.Lock()

	if format == api.PixelFormatUnspecified {
		format = c.defaultFormat
	}
	usage |= c.consumerUsageBits
	if width == 0 {
		width, height = c.defaultWidth, c.defaultHeight
	}

	slot, flags, st := c.waitForFreeSlotLocked(async, "dequeueBuffer")
	if st != api.Success {
		c.mu.Unlock()
		return api.InvalidBufferSlot, nil, flags, st
	}

	s := &c.slots[slot]
	buf := s.graphicBuffer
	if buf == nil || buf.Width() != width || buf.Height() != height ||
		buf.Format() != format || buf.Usage()&usage != usage {
		// Vestigial reallocation branch: this system only ever uses
		// preallocated buffers, so a mismatch is a hard configuration
		// error upstream. It must never silently "succeed".
		c.log.Error(api.ErrBadValue, "preallocated buffer does not satisfy dequeue request",
			"slot", slot, "width", width, "height", height,
			"format", format, "usage", usage)
		c.mu.Unlock()
		panic(fmt.Sprintf(
			"bufferqueue: buffer reallocation is not supported (slot %d, %dx%d format %d usage %#x)",
			slot, width, height, format, usage))
	}

	s.state = BufferStateDequeued
	if s.attachedByConsumer {
		// Caller must treat the handle as freshly reconciled.
		flags |= api.FlagBufferNeedsReallocation
	}
	fence := s.fence
	s.fence = api.NoFence

	c.log.V(1).Info("dequeued", "slot", slot, "frame", s.frameNumber)
	c.mu.Unlock()

	return slot, fence, flags, api.Success
}

// DetachBuffer removes a dequeued, requested slot from tracking. The
// caller keeps the handle it obtained through RequestBuffer.
func (p *Producer) DetachBuffer(slot int) api.Status {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return api.NoInit
	}
	if slot < 0 || slot >= api.NumBufferSlots {
		return api.BadValue
	}
	s := &c.slots[slot]
	if s.state != BufferStateDequeued || !s.requestBufferCalled {
		c.log.V(1).Info("detachBuffer: slot not detachable",
			"slot", slot, "state", s.state.String(), "requested", s.requestBufferCalled)
		return api.BadValue
	}

	c.freeBufferLocked(slot)
	c.dequeueCond.Broadcast()
	c.bufferFreedCond.Broadcast()
	return api.Success
}

// DetachNextBuffer detaches the oldest free slot still holding a buffer,
// without blocking. NoMemory when no buffer is detachable.
func (p *Producer) DetachNextBuffer() (api.GraphicBuffer, api.Fence, api.Status) {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return nil, nil, api.NoInit
	}
	found := api.InvalidBufferSlot
	for i := 0; i < api.NumBufferSlots; i++ {
		s := &c.slots[i]
		if s.state != BufferStateFree || s.graphicBuffer == nil {
			continue
		}
		if found == api.InvalidBufferSlot || s.frameNumber < c.slots[found].frameNumber {
			found = i
		}
	}
	if found == api.InvalidBufferSlot {
		return nil, nil, api.NoMemory
	}

	buf := c.slots[found].graphicBuffer
	fence := c.slots[found].fence
	c.freeBufferLocked(found)
	c.dequeueCond.Broadcast()
	c.bufferFreedCond.Broadcast()
	return buf, fence, api.Success
}

// AttachBuffer inserts an externally held buffer into a freshly allocated
// slot, left dequeued with the request flag already set.
func (p *Producer) AttachBuffer(buffer api.GraphicBuffer) (int, api.ReturnFlags, api.Status) {
	c := p.core
	if buffer == nil {
		return api.InvalidBufferSlot, 0, api.BadValue
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	slot, flags, st := c.waitForFreeSlotLocked(false, "attachBuffer")
	if st != api.Success {
		return api.InvalidBufferSlot, flags, st
	}

	s := &c.slots[slot]
	s.graphicBuffer = buffer
	s.state = BufferStateDequeued
	s.fence = api.NoFence
	s.frameNumber = 0
	s.requestBufferCalled = true
	c.log.V(1).Info("attached", "slot", slot)
	return slot, flags, api.Success
}

// QueueBuffer submits a filled slot for display. If the pending head is
// droppable it is replaced in place and the consumer sees a frame-replaced
// notification; otherwise the item is appended and a frame-available
// notification fires. Notifications are delivered outside the core lock in
// strict ticket order across racing producers.
func (p *Producer) QueueBuffer(slot int, input api.QueueBufferInput) (api.QueueBufferOutput, api.Status) {
	c := p.core
	var out api.QueueBufferOutput

	if !input.ScalingMode.Valid() {
		c.log.V(1).Info("queueBuffer: unknown scaling mode", "mode", int(input.ScalingMode))
		return out, api.BadValue
	}
	fence := input.Fence
	if fence == nil {
		return out, api.BadValue
	}

	var (
		item     api.BufferItem
		listener api.FrameAvailableListener
		replaced bool
		ticket   uint64
	)

	c.mu.Lock()
	if c.isAbandoned {
		c.mu.Unlock()
		return out, api.NoInit
	}
	if c.connectedAPI == api.NoConnectedAPI {
		c.mu.Unlock()
		return out, api.NoInit
	}
	if slot < 0 || slot >= api.NumBufferSlots {
		c.mu.Unlock()
		return out, api.BadValue
	}
	s := &c.slots[slot]
	if s.state != BufferStateDequeued {
		c.log.V(1).Info("queueBuffer: slot not dequeued", "slot", slot, "state", s.state.String())
		c.mu.Unlock()
		return out, api.BadValue
	}
	if !s.requestBufferCalled {
		c.log.V(1).Info("queueBuffer: buffer never requested", "slot", slot)
		c.mu.Unlock()
		return out, api.BadValue
	}

	buf := s.graphicBuffer
	cropped, _ := input.Crop.Intersect(buf.Bounds())
	if cropped != input.Crop {
		c.log.V(1).Info("queueBuffer: crop outside buffer bounds",
			"slot", slot, "crop", input.Crop, "bounds", buf.Bounds())
		c.mu.Unlock()
		return out, api.BadValue
	}

	timestamp := input.Timestamp
	if input.IsAutoTimestamp {
		timestamp = time.Now().UnixNano()
	}

	c.frameCounter++
	s.frameNumber = c.frameCounter
	s.fence = fence
	s.state = BufferStateQueued
	c.bufferHasBeenQueued = true

	item = api.BufferItem{
		Slot:            slot,
		GraphicBuffer:   buf,
		Crop:            input.Crop,
		Transform:       input.Transform,
		ScalingMode:     input.ScalingMode,
		Timestamp:       timestamp,
		IsAutoTimestamp: input.IsAutoTimestamp,
		SwapInterval:    input.SwapInterval,
		FrameNumber:     c.frameCounter,
		Fence:           fence,
		IsDroppable:     c.dequeueBufferCannotBlock || input.Async,
		AcquireCalled:   s.acquireCalled,
	}

	if head := c.fifo.Head(); head == nil {
		c.fifo.Push(item.Clone())
	} else if head.IsDroppable {
		if c.stillTrackingLocked(head) && !c.slotReferencedAfterHeadLocked(head.Slot) {
			c.slots[head.Slot].state = BufferStateFree
			c.slots[head.Slot].frameNumber = 0
		}
		*head = item
		replaced = true
	} else {
		c.fifo.Push(item.Clone())
	}

	out = api.QueueBufferOutput{
		Width:             c.defaultWidth,
		Height:            c.defaultHeight,
		TransformHint:     c.transformHint,
		NumPendingBuffers: c.fifo.Len(),
	}
	listener = c.consumerListener
	ticket = c.takeCallbackTicketLocked()

	c.dequeueCond.Broadcast()
	c.frameAvailableCond.Broadcast()
	c.log.V(1).Info("queued", "slot", slot, "frame", item.FrameNumber, "replaced", replaced)
	if c.metricsOn {
		metrics.BuffersQueued.Inc()
		if replaced {
			metrics.FramesReplaced.Inc()
		}
	}
	c.mu.Unlock()

	// The callback must happen without the core lock held, yet racing
	// producers must reach the consumer in ticket order.
	c.deliverInTicketOrder(ticket, func() {
		if listener == nil {
			return
		}
		if replaced {
			listener.OnFrameReplaced(item)
		} else {
			listener.OnFrameAvailable(item)
		}
	})

	return out, api.Success
}

// CancelBuffer returns a dequeued slot to the free pool without queueing
// it. The fence is stored for the next holder to observe.
func (p *Producer) CancelBuffer(slot int, fence api.Fence) api.Status {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return api.NoInit
	}
	if slot < 0 || slot >= api.NumBufferSlots {
		return api.BadValue
	}
	if fence == nil {
		return api.BadValue
	}
	s := &c.slots[slot]
	if s.state != BufferStateDequeued {
		c.log.V(1).Info("cancelBuffer: slot not dequeued", "slot", slot, "state", s.state.String())
		return api.BadValue
	}

	s.state = BufferStateFree
	s.frameNumber = 0
	s.fence = fence
	c.dequeueCond.Broadcast()
	c.bufferFreedCond.Broadcast()
	if c.metricsOn {
		metrics.BuffersCanceled.Inc()
	}
	return api.Success
}

// Query reads one attribute of the queue state.
func (p *Producer) Query(what api.QueryWhat) (int, api.Status) {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return 0, api.NoInit
	}
	switch what {
	case api.QueryWidth:
		return int(c.defaultWidth), api.Success
	case api.QueryHeight:
		return int(c.defaultHeight), api.Success
	case api.QueryFormat:
		return int(c.defaultFormat), api.Success
	case api.QueryMinUndequeuedBuffers:
		return c.minUndequeuedBufferCountLocked(false), api.Success
	case api.QueryConsumerRunningBehind:
		if c.fifo.Len() >= 2 {
			return 1, api.Success
		}
		return 0, api.Success
	case api.QueryConsumerUsageBits:
		return int(c.consumerUsageBits), api.Success
	case api.QueryMaxBufferCountAsync:
		return c.maxBufferCountLocked(true), api.Success
	default:
		return 0, api.BadValue
	}
}

// Connect attaches a producer under the given API identity and reports
// the current default geometry and pending count.
func (p *Producer) Connect(listener api.ProducerListener, apiType api.ConnectionAPI, producerControlledByApp bool) (api.QueueBufferOutput, api.Status) {
	c := p.core
	var out api.QueueBufferOutput

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return out, api.NoInit
	}
	if c.consumerListener == nil {
		return out, api.NoInit
	}
	if !apiType.Valid() {
		return out, api.BadValue
	}
	if c.connectedAPI != api.NoConnectedAPI {
		c.log.V(1).Info("connect: already connected",
			"connected", c.connectedAPI.String(), "requested", apiType.String())
		return out, api.BadValue
	}

	c.connectedAPI = apiType
	c.producerListener = listener
	c.dequeueBufferCannotBlock = c.consumerControlledByApp && producerControlledByApp

	out = api.QueueBufferOutput{
		Width:             c.defaultWidth,
		Height:            c.defaultHeight,
		TransformHint:     c.transformHint,
		NumPendingBuffers: c.fifo.Len(),
	}
	c.log.V(1).Info("producer connected", "api", apiType.String(),
		"cannotBlock", c.dequeueBufferCannotBlock)
	return out, api.Success
}

// Disconnect detaches the producer connected under apiType, freeing all
// buffers and waking every blocked dequeue. Success (no-op) on an
// abandoned queue; BadValue when apiType never connected.
func (p *Producer) Disconnect(apiType api.ConnectionAPI) api.Status {
	c := p.core
	var (
		consumerListener api.BuffersReleasedListener
		producerListener api.ProducerListener
	)

	c.mu.Lock()
	if c.isAbandoned {
		c.mu.Unlock()
		return api.Success
	}
	if !apiType.Valid() {
		c.mu.Unlock()
		return api.BadValue
	}
	if c.connectedAPI != apiType {
		c.log.V(1).Info("disconnect: api mismatch",
			"connected", c.connectedAPI.String(), "requested", apiType.String())
		c.mu.Unlock()
		return api.BadValue
	}

	c.freeAllBuffersLocked()
	c.fifo.Clear()
	consumerListener = c.consumerListener
	producerListener = c.producerListener
	c.producerListener = nil
	c.connectedAPI = api.NoConnectedAPI
	c.dequeueBufferCannotBlock = false
	c.dequeueCond.Broadcast()
	c.bufferFreedCond.Broadcast()
	c.log.V(1).Info("producer disconnected", "api", apiType.String())
	c.mu.Unlock()

	if consumerListener != nil {
		consumerListener.OnBuffersReleased()
	}
	if producerListener != nil {
		producerListener.OnBufferReleased()
	}
	return api.Success
}

// SetPreallocatedBuffer force-resets a slot to free with the given handle,
// or empties it when buffer is nil. A present handle updates the queue
// defaults to match it, a deliberate shortcut: defaults normally belong to
// the consumer rather than to whichever buffer happens to be preallocated.
func (p *Producer) SetPreallocatedBuffer(slot int, buffer api.GraphicBuffer) api.Status {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isAbandoned {
		return api.NoInit
	}
	if slot < 0 || slot >= api.NumBufferSlots {
		return api.BadValue
	}

	s := &c.slots[slot]
	s.graphicBuffer = buffer
	s.state = BufferStateFree
	s.frameNumber = 0
	s.fence = api.NoFence
	s.requestBufferCalled = false
	s.acquireCalled = false
	s.attachedByConsumer = false
	s.needsCleanupOnRelease = false

	if buffer != nil {
		c.defaultWidth = buffer.Width()
		c.defaultHeight = buffer.Height()
		c.defaultFormat = buffer.Format()
	} else {
		// Recovery: a pending item pointing at a slot outside the table
		// means tracking is corrupt; drop everything.
		orphaned := false
		for i := 0; i < c.fifo.Len(); i++ {
			if it := c.fifo.At(i); it.Slot < 0 || it.Slot >= api.NumBufferSlots {
				orphaned = true
				break
			}
		}
		if orphaned {
			c.log.V(1).Info("preallocation cleanup: clearing corrupt pending queue")
			c.fifo.Clear()
			c.freeAllBuffersLocked()
		}
	}

	// One broadcast suffices; waiters tolerate spurious wakeups.
	c.dequeueCond.Broadcast()
	return api.Success
}
