// File: core/queue/core.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core is the single shared-mutable-state object of a buffer queue: the
// slot table, the pending FIFO, connection and configuration state, and
// the condition variables blocking operations sleep on. One mutex guards
// everything; methods suffixed "Locked" require it held.

package queue

import (
	"math"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/momentics/hioload-bufferqueue/api"
	"github.com/momentics/hioload-bufferqueue/metrics"
)

// maxMaxAcquiredBuffers bounds SetMaxAcquiredBufferCount: at least one slot
// must stay undequeued and one dequeuable.
const maxMaxAcquiredBuffers = api.NumBufferSlots - 2

// Options configures a new Core. The zero value is usable; defaults are
// filled in by NewCore.
type Options struct {
	// Logger receives structured debug/error output. Zero value discards.
	Logger logr.Logger

	// Default geometry and format used when DequeueBuffer passes zeros.
	DefaultWidth  uint32
	DefaultHeight uint32
	DefaultFormat api.PixelFormat

	// ConsumerUsageBits are merged into every dequeue request's usage.
	ConsumerUsageBits uint32

	// MaxAcquiredBufferCount bounds simultaneously acquired buffers.
	// Defaults to 1.
	MaxAcquiredBufferCount int

	// TransformHint is reported back to producers in QueueBufferOutput.
	TransformHint api.Transform

	// EnableMetrics toggles the process-wide operation counters.
	EnableMetrics bool
}

// Core owns all state shared between the producer and consumer interfaces
// of one queue.
type Core struct {
	mu sync.Mutex

	// dequeueCond signals "a slot became free" to blocked producers.
	dequeueCond *sync.Cond
	// bufferFreedCond is the consumer-facing "a buffer became free"
	// variant, woken alongside dequeueCond.
	bufferFreedCond *sync.Cond
	// frameAvailableCond is reserved for blocking consumer reads; it is
	// currently only ever signaled, never waited on.
	frameAvailableCond *sync.Cond

	slots [api.NumBufferSlots]bufferSlot
	fifo  itemFIFO

	frameCounter        uint64
	bufferHasBeenQueued bool

	connectedAPI             api.ConnectionAPI
	isAbandoned              bool
	consumerControlledByApp  bool
	dequeueBufferCannotBlock bool

	defaultWidth           uint32
	defaultHeight          uint32
	defaultFormat          api.PixelFormat
	consumerUsageBits      uint32
	maxAcquiredBufferCount int
	overrideMaxBufferCount int
	transformHint          api.Transform

	consumerListener api.ConsumerListener
	producerListener api.ProducerListener

	// freedSlotsMask accumulates slots whose buffer was freed since the
	// consumer last asked.
	freedSlotsMask uint64

	// Callback ticketing. nextCallbackTicket is assigned under mu;
	// delivery order is enforced under callbackMu so listener calls never
	// happen while mu is held.
	callbackMu            sync.Mutex
	callbackCond          *sync.Cond
	nextCallbackTicket    uint64
	currentCallbackTicket uint64

	id        string
	log       logr.Logger
	metricsOn bool
}

// NewCore creates the shared state of one producer/consumer pair. The core
// lives until the consumer abandons it; slots are reset, not freed, across
// producer reconnects.
func NewCore(opts Options) *Core {
	if opts.DefaultWidth == 0 {
		opts.DefaultWidth = 1
	}
	if opts.DefaultHeight == 0 {
		opts.DefaultHeight = 1
	}
	if opts.DefaultFormat == api.PixelFormatUnspecified {
		opts.DefaultFormat = api.PixelFormatRGBA8888
	}
	if opts.MaxAcquiredBufferCount <= 0 {
		opts.MaxAcquiredBufferCount = 1
	}

	c := &Core{
		connectedAPI:           api.NoConnectedAPI,
		defaultWidth:           opts.DefaultWidth,
		defaultHeight:          opts.DefaultHeight,
		defaultFormat:          opts.DefaultFormat,
		consumerUsageBits:      opts.ConsumerUsageBits,
		maxAcquiredBufferCount: opts.MaxAcquiredBufferCount,
		transformHint:          opts.TransformHint,
		fifo:                   newItemFIFO(),
		id:                     uuid.NewString(),
		metricsOn:              opts.EnableMetrics,
	}
	c.dequeueCond = sync.NewCond(&c.mu)
	c.bufferFreedCond = sync.NewCond(&c.mu)
	c.frameAvailableCond = sync.NewCond(&c.mu)
	c.callbackCond = sync.NewCond(&c.callbackMu)
	c.log = opts.Logger.WithName("bufferqueue").WithValues("queue", c.id[:8])
	for i := range c.slots {
		c.slots[i].fence = api.NoFence
	}
	return c
}

// ID returns the unique identifier of this queue instance.
func (c *Core) ID() string { return c.id }

// minUndequeuedBufferCountLocked is the number of buffers that must remain
// undequeued in the given mode: the consumer's acquired allowance plus one
// extra when dequeue may not block.
func (c *Core) minUndequeuedBufferCountLocked(async bool) int {
	extra := 0
	if async || c.dequeueBufferCannotBlock {
		extra = 1
	}
	return c.maxAcquiredBufferCount + extra
}

// minMaxBufferCountLocked is the smallest legal max buffer count.
func (c *Core) minMaxBufferCountLocked(async bool) int {
	return c.minUndequeuedBufferCountLocked(async) + 1
}

// maxBufferCountLocked computes the active slot window. An override raises
// the window but never shrinks it below the computed minimum.
func (c *Core) maxBufferCountLocked(async bool) int {
	count := c.minMaxBufferCountLocked(async)
	if c.overrideMaxBufferCount != 0 && c.overrideMaxBufferCount > count {
		count = c.overrideMaxBufferCount
	}
	if count > api.NumBufferSlots {
		count = api.NumBufferSlots
	}
	return count
}

// freeBufferLocked forces a slot back to free and drops its buffer handle.
// An acquired slot freed this way is flagged for cleanup when the consumer
// eventually releases it. The frame number moves to the far future so
// empty slots are chosen after buffer-holding ones.
func (c *Core) freeBufferLocked(slot int) {
	s := &c.slots[slot]
	if s.graphicBuffer != nil {
		c.freedSlotsMask |= 1 << uint(slot)
		if c.metricsOn {
			metrics.BuffersFreed.Inc()
		}
	}
	if s.state == BufferStateAcquired {
		s.needsCleanupOnRelease = true
	}
	s.graphicBuffer = nil
	s.state = BufferStateFree
	s.frameNumber = math.MaxUint64
	s.fence = api.NoFence
	s.requestBufferCalled = false
	s.acquireCalled = false
	s.attachedByConsumer = false
}

// freeAllBuffersLocked forces every slot free and forgets that a buffer
// was ever queued.
func (c *Core) freeAllBuffersLocked() {
	c.bufferHasBeenQueued = false
	for i := range c.slots {
		c.freeBufferLocked(i)
	}
}

// stillTrackingLocked reports whether the slot table still holds the exact
// buffer an item snapshotted.
func (c *Core) stillTrackingLocked(item *api.BufferItem) bool {
	if item.Slot < 0 || item.Slot >= api.NumBufferSlots {
		return false
	}
	return c.slots[item.Slot].graphicBuffer == item.GraphicBuffer
}

// slotReferencedAfterHeadLocked reports whether any pending item beyond
// the head references the given slot.
func (c *Core) slotReferencedAfterHeadLocked(slot int) bool {
	for i := 1; i < c.fifo.Len(); i++ {
		if c.fifo.At(i).Slot == slot {
			return true
		}
	}
	return false
}

// takeCallbackTicketLocked reserves the next listener delivery ticket.
func (c *Core) takeCallbackTicketLocked() uint64 {
	t := c.nextCallbackTicket
	c.nextCallbackTicket++
	return t
}

// deliverInTicketOrder runs fn once every earlier ticket holder has
// finished, then wakes later holders. Must be called without holding the
// core lock. fn runs with the callback lock held, so it must return
// promptly.
func (c *Core) deliverInTicketOrder(ticket uint64, fn func()) {
	c.callbackMu.Lock()
	for ticket != c.currentCallbackTicket {
		c.callbackCond.Wait()
	}
	if fn != nil {
		fn()
	}
	c.currentCallbackTicket++
	c.callbackCond.Broadcast()
	c.callbackMu.Unlock()
}
