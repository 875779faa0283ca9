package queue_test

import (
	"testing"

	"github.com/momentics/hioload-bufferqueue/api"
	"github.com/momentics/hioload-bufferqueue/core/queue"
	"github.com/momentics/hioload-bufferqueue/fake"
)

const (
	testWidth  = 640
	testHeight = 480
	testFormat = api.PixelFormatRGBA8888
)

type testQueue struct {
	core     *queue.Core
	producer *queue.Producer
	consumer *queue.Consumer
	events   *fake.ConsumerListener
	released *fake.ProducerListener
}

// newConnectedQueue builds a queue with both sides connected and the first
// prealloc slots seeded with matching buffers.
func newConnectedQueue(t *testing.T, prealloc int) *testQueue {
	t.Helper()

	core := queue.NewCore(queue.Options{
		DefaultWidth:  testWidth,
		DefaultHeight: testHeight,
		DefaultFormat: testFormat,
	})
	q := &testQueue{
		core:     core,
		producer: queue.NewProducer(core),
		consumer: queue.NewConsumer(core),
		events:   fake.NewConsumerListener(),
		released: fake.NewProducerListener(),
	}
	if st := q.consumer.Connect(q.events, false); st != api.Success {
		t.Fatalf("consumer connect: %v", st)
	}
	if _, st := q.producer.Connect(q.released, api.NativeWindowAPICPU, false); st != api.Success {
		t.Fatalf("producer connect: %v", st)
	}
	q.seed(t, prealloc)
	return q
}

// newControlledQueue wires both sides with the app-controlled flags set, so
// the connection itself decides whether dequeue may block.
func newControlledQueue(t *testing.T, consumerControlled, producerControlled bool) *testQueue {
	t.Helper()

	core := queue.NewCore(queue.Options{
		DefaultWidth:  testWidth,
		DefaultHeight: testHeight,
		DefaultFormat: testFormat,
	})
	q := &testQueue{
		core:     core,
		producer: queue.NewProducer(core),
		consumer: queue.NewConsumer(core),
		events:   fake.NewConsumerListener(),
		released: fake.NewProducerListener(),
	}
	if st := q.consumer.Connect(q.events, consumerControlled); st != api.Success {
		t.Fatalf("consumer connect: %v", st)
	}
	if _, st := q.producer.Connect(q.released, api.NativeWindowAPICPU, producerControlled); st != api.Success {
		t.Fatalf("producer connect: %v", st)
	}
	return q
}

func (q *testQueue) seed(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		buf := fake.NewGraphicBuffer(testWidth, testHeight, testFormat, 0)
		if st := q.producer.SetPreallocatedBuffer(i, buf); st != api.Success {
			t.Fatalf("preallocate slot %d: %v", i, st)
		}
	}
}

// dequeueAndQueue walks one slot through the full producer-side cycle.
func (q *testQueue) dequeueAndQueue(t *testing.T, async bool) int {
	t.Helper()
	slot, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, async)
	if st != api.Success {
		t.Fatalf("dequeue: %v", st)
	}
	if _, st := q.producer.RequestBuffer(slot); st != api.Success {
		t.Fatalf("request slot %d: %v", slot, st)
	}
	if _, st := q.producer.QueueBuffer(slot, queueInput(async)); st != api.Success {
		t.Fatalf("queue slot %d: %v", slot, st)
	}
	return slot
}

func queueInput(async bool) api.QueueBufferInput {
	return api.QueueBufferInput{
		Timestamp:    1000,
		Crop:         api.Rect{Right: testWidth, Bottom: testHeight},
		ScalingMode:  api.ScalingModeFreeze,
		SwapInterval: 1,
		Async:        async,
		Fence:        api.NoFence,
	}
}

func TestConnectRequiresConsumer(t *testing.T) {
	core := queue.NewCore(queue.Options{})
	producer := queue.NewProducer(core)
	if _, st := producer.Connect(nil, api.NativeWindowAPICPU, false); st != api.NoInit {
		t.Fatalf("connect without consumer: got %v, want NoInit", st)
	}
}

func TestConnectTwiceFails(t *testing.T) {
	q := newConnectedQueue(t, 2)
	if _, st := q.producer.Connect(nil, api.NativeWindowAPIEGL, false); st != api.BadValue {
		t.Fatalf("second connect: got %v, want BadValue", st)
	}
}

func TestConnectRejectsInvalidAPI(t *testing.T) {
	core := queue.NewCore(queue.Options{})
	consumer := queue.NewConsumer(core)
	if st := consumer.Connect(fake.NewConsumerListener(), false); st != api.Success {
		t.Fatalf("consumer connect: %v", st)
	}
	producer := queue.NewProducer(core)
	if _, st := producer.Connect(nil, api.ConnectionAPI(42), false); st != api.BadValue {
		t.Fatalf("invalid api: got %v, want BadValue", st)
	}
}

func TestDisconnectStatusSequence(t *testing.T) {
	q := newConnectedQueue(t, 2)

	// An API that never connected is a caller error.
	if st := q.producer.Disconnect(api.NativeWindowAPIEGL); st != api.BadValue {
		t.Fatalf("disconnect foreign api: got %v, want BadValue", st)
	}
	if st := q.producer.Disconnect(api.NativeWindowAPICPU); st != api.Success {
		t.Fatalf("disconnect: got %v, want Success", st)
	}
	if st := q.producer.Disconnect(api.NativeWindowAPICPU); st != api.BadValue {
		t.Fatalf("double disconnect: got %v, want BadValue", st)
	}
}

func TestDisconnectNotifiesBulkRelease(t *testing.T) {
	q := newConnectedQueue(t, 2)
	if st := q.producer.Disconnect(api.NativeWindowAPICPU); st != api.Success {
		t.Fatalf("disconnect: %v", st)
	}
	events := q.events.Events()
	if len(events) != 1 || events[0].Kind != "released" {
		t.Fatalf("expected one buffers-released event, got %+v", events)
	}
}

func TestDequeueMismatchedDimensions(t *testing.T) {
	q := newConnectedQueue(t, 2)
	if _, _, _, st := q.producer.DequeueBuffer(testWidth, 0, testFormat, 0, false); st != api.BadValue {
		t.Fatalf("mismatched dims: got %v, want BadValue", st)
	}
	if _, _, _, st := q.producer.DequeueBuffer(0, testHeight, testFormat, 0, false); st != api.BadValue {
		t.Fatalf("mismatched dims: got %v, want BadValue", st)
	}
}

func TestDequeueUsesDefaults(t *testing.T) {
	q := newConnectedQueue(t, 2)
	slot, fence, _, st := q.producer.DequeueBuffer(0, 0, api.PixelFormatUnspecified, 0, false)
	if st != api.Success {
		t.Fatalf("dequeue with defaults: %v", st)
	}
	if fence == nil {
		t.Fatal("dequeue returned nil fence")
	}
	if slot < 0 || slot >= api.NumBufferSlots {
		t.Fatalf("slot %d out of range", slot)
	}
}

func TestDoubleDequeueWithoutOverride(t *testing.T) {
	q := newConnectedQueue(t, 2)
	if _, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false); st != api.Success {
		t.Fatalf("first dequeue: %v", st)
	}
	// Multiple concurrent dequeues require an explicit buffer-count
	// negotiation first.
	if _, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false); st != api.InvalidOperation {
		t.Fatalf("second dequeue: got %v, want InvalidOperation", st)
	}
}

func TestDequeueCancelResetsFrameNumber(t *testing.T) {
	q := newConnectedQueue(t, 2)

	slot, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	if st != api.Success {
		t.Fatalf("dequeue: %v", st)
	}
	if st := q.producer.CancelBuffer(slot, api.NoFence); st != api.Success {
		t.Fatalf("cancel: %v", st)
	}

	// The canceled slot is the oldest free slot again.
	again, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	if st != api.Success {
		t.Fatalf("re-dequeue: %v", st)
	}
	if again != slot {
		t.Fatalf("expected canceled slot %d to be reused, got %d", slot, again)
	}
}

func TestOldestFreeSlotPreferred(t *testing.T) {
	q := newConnectedQueue(t, 2)

	// Queue and fully cycle slot A so it carries a newer frame number.
	slotA := q.dequeueAndQueue(t, false)
	item, st := q.consumer.AcquireBuffer(0, false)
	if st != api.Success {
		t.Fatalf("acquire: %v", st)
	}
	if st := q.consumer.ReleaseBuffer(item, api.NoFence); st != api.Success {
		t.Fatalf("release: %v", st)
	}

	// The untouched slot (frame number 0) must win over slot A (frame 1).
	slotB, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	if st != api.Success {
		t.Fatalf("dequeue: %v", st)
	}
	if slotB == slotA {
		t.Fatalf("expected oldest free slot, got freshly released slot %d", slotA)
	}
}

func TestQueueWithoutRequestFails(t *testing.T) {
	q := newConnectedQueue(t, 2)
	slot, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	if st != api.Success {
		t.Fatalf("dequeue: %v", st)
	}
	if _, st := q.producer.QueueBuffer(slot, queueInput(false)); st != api.BadValue {
		t.Fatalf("queue without request: got %v, want BadValue", st)
	}
	// State must be unchanged: the slot is still queueable after a request.
	if _, st := q.producer.RequestBuffer(slot); st != api.Success {
		t.Fatalf("request: %v", st)
	}
	if _, st := q.producer.QueueBuffer(slot, queueInput(false)); st != api.Success {
		t.Fatalf("queue after request: %v", st)
	}
}

func TestQueueRejectsUnknownScalingMode(t *testing.T) {
	q := newConnectedQueue(t, 2)
	slot, _, _, _ := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	q.producer.RequestBuffer(slot)

	in := queueInput(false)
	in.ScalingMode = api.ScalingMode(99)
	if _, st := q.producer.QueueBuffer(slot, in); st != api.BadValue {
		t.Fatalf("unknown scaling mode: got %v, want BadValue", st)
	}
}

func TestQueueRejectsOutOfBoundsCrop(t *testing.T) {
	q := newConnectedQueue(t, 2)
	slot, _, _, _ := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	q.producer.RequestBuffer(slot)

	in := queueInput(false)
	in.Crop = api.Rect{Right: testWidth + 1, Bottom: testHeight}
	if _, st := q.producer.QueueBuffer(slot, in); st != api.BadValue {
		t.Fatalf("oversized crop: got %v, want BadValue", st)
	}

	// Exactly-contained crop passes.
	in.Crop = api.Rect{Left: 10, Top: 10, Right: 100, Bottom: 100}
	if _, st := q.producer.QueueBuffer(slot, in); st != api.Success {
		t.Fatalf("contained crop: %v", st)
	}
}

func TestQueueEmptyFiresFrameAvailable(t *testing.T) {
	q := newConnectedQueue(t, 2)
	q.dequeueAndQueue(t, false)

	events := q.events.Events()
	if len(events) != 1 || events[0].Kind != "available" {
		t.Fatalf("expected single frame-available, got %+v", events)
	}
}

func TestDroppableHeadReplacedInPlace(t *testing.T) {
	q := newConnectedQueue(t, 3)

	q.dequeueAndQueue(t, true)
	q.dequeueAndQueue(t, true)

	events := q.events.Events()
	if len(events) != 2 {
		t.Fatalf("expected two events, got %+v", events)
	}
	if events[0].Kind != "available" || events[1].Kind != "replaced" {
		t.Fatalf("expected available then replaced, got %+v", events)
	}
	stats := q.core.Stats()
	if stats.PendingItems != 1 {
		t.Fatalf("replacement must keep queue length 1, got %d", stats.PendingItems)
	}

	// The replacement is visible to the consumer: frame 2, not frame 1.
	item, st := q.consumer.AcquireBuffer(0, false)
	if st != api.Success {
		t.Fatalf("acquire: %v", st)
	}
	if item.FrameNumber != 2 {
		t.Fatalf("expected replaced head frame 2, got %d", item.FrameNumber)
	}
}

func TestNonDroppableHeadAppends(t *testing.T) {
	q := newConnectedQueue(t, 2)

	q.dequeueAndQueue(t, false)
	q.dequeueAndQueue(t, false)

	events := q.events.Events()
	if len(events) != 2 || events[0].Kind != "available" || events[1].Kind != "available" {
		t.Fatalf("expected two frame-available events, got %+v", events)
	}
	if stats := q.core.Stats(); stats.PendingItems != 2 {
		t.Fatalf("append must grow queue to 2, got %d", stats.PendingItems)
	}
}

func TestSetBufferCountValidation(t *testing.T) {
	q := newConnectedQueue(t, 2)

	if st := q.producer.SetBufferCount(api.NumBufferSlots + 1); st != api.BadValue {
		t.Fatalf("oversized count: got %v, want BadValue", st)
	}
	if st := q.producer.SetBufferCount(1); st != api.BadValue {
		t.Fatalf("below minimum: got %v, want BadValue", st)
	}

	slot, _, _, _ := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	if st := q.producer.SetBufferCount(4); st != api.BadValue {
		t.Fatalf("with dequeued slot: got %v, want BadValue", st)
	}
	q.producer.CancelBuffer(slot, api.NoFence)

	if st := q.producer.SetBufferCount(4); st != api.Success {
		t.Fatalf("set buffer count: %v", st)
	}
}

func TestSetBufferCountZeroThenDequeue(t *testing.T) {
	q := newConnectedQueue(t, 2)

	if st := q.producer.SetBufferCount(0); st != api.Success {
		t.Fatalf("clear override: %v", st)
	}
	// All buffers were freed; the bulk-release notification fired.
	events := q.events.Events()
	if len(events) == 0 || events[len(events)-1].Kind != "released" {
		t.Fatalf("expected buffers-released event, got %+v", events)
	}

	// After re-seeding, dequeue must complete deterministically.
	q.seed(t, 2)
	if _, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false); st != api.Success {
		t.Fatalf("dequeue after reset: %v", st)
	}
}

func TestAsyncDequeueWithLowOverride(t *testing.T) {
	q := newConnectedQueue(t, 4)
	if st := q.producer.SetBufferCount(2); st != api.Success {
		t.Fatalf("set buffer count: %v", st)
	}
	q.seed(t, 4)
	// Async needs one extra buffer beyond the sync minimum; an override of
	// two is below the async window of three.
	if _, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, true); st != api.BadValue {
		t.Fatalf("async with low override: got %v, want BadValue", st)
	}
}

func TestDetachBuffer(t *testing.T) {
	q := newConnectedQueue(t, 2)

	slot, _, _, _ := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	// Detach requires the handle to have been fetched.
	if st := q.producer.DetachBuffer(slot); st != api.BadValue {
		t.Fatalf("detach before request: got %v, want BadValue", st)
	}
	if _, st := q.producer.RequestBuffer(slot); st != api.Success {
		t.Fatalf("request: %v", st)
	}
	if st := q.producer.DetachBuffer(slot); st != api.Success {
		t.Fatalf("detach: %v", st)
	}
	// The slot no longer holds a buffer.
	if _, st := q.producer.RequestBuffer(slot); st != api.BadValue {
		t.Fatalf("request detached slot: got %v, want BadValue", st)
	}
}

func TestDetachNextBuffer(t *testing.T) {
	q := newConnectedQueue(t, 2)

	buf, fence, st := q.producer.DetachNextBuffer()
	if st != api.Success {
		t.Fatalf("detach next: %v", st)
	}
	if buf == nil || fence == nil {
		t.Fatal("detach next returned nil handle or fence")
	}

	q.producer.DetachNextBuffer()
	if _, _, st := q.producer.DetachNextBuffer(); st != api.NoMemory {
		t.Fatalf("detach next on empty table: got %v, want NoMemory", st)
	}
}

func TestAttachBuffer(t *testing.T) {
	q := newConnectedQueue(t, 2)

	if _, _, st := q.producer.AttachBuffer(nil); st != api.BadValue {
		t.Fatalf("attach nil: got %v, want BadValue", st)
	}

	buf := fake.NewGraphicBuffer(testWidth, testHeight, testFormat, 0)
	slot, _, st := q.producer.AttachBuffer(buf)
	if st != api.Success {
		t.Fatalf("attach: %v", st)
	}
	// Attached slots are dequeued with the request flag pre-set, so they
	// can be queued immediately.
	if _, st := q.producer.QueueBuffer(slot, queueInput(false)); st != api.Success {
		t.Fatalf("queue attached slot: %v", st)
	}
}

func TestCancelValidation(t *testing.T) {
	q := newConnectedQueue(t, 2)

	if st := q.producer.CancelBuffer(-1, api.NoFence); st != api.BadValue {
		t.Fatalf("cancel out of range: got %v, want BadValue", st)
	}
	if st := q.producer.CancelBuffer(0, api.NoFence); st != api.BadValue {
		t.Fatalf("cancel free slot: got %v, want BadValue", st)
	}
	slot, _, _, _ := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false)
	if st := q.producer.CancelBuffer(slot, nil); st != api.BadValue {
		t.Fatalf("cancel with nil fence: got %v, want BadValue", st)
	}
}

func TestQuery(t *testing.T) {
	q := newConnectedQueue(t, 2)

	cases := []struct {
		what api.QueryWhat
		want int
	}{
		{api.QueryWidth, testWidth},
		{api.QueryHeight, testHeight},
		{api.QueryFormat, int(testFormat)},
		{api.QueryMinUndequeuedBuffers, 1},
		{api.QueryConsumerRunningBehind, 0},
		{api.QueryConsumerUsageBits, 0},
		{api.QueryMaxBufferCountAsync, 3},
	}
	for _, tc := range cases {
		got, st := q.producer.Query(tc.what)
		if st != api.Success {
			t.Fatalf("query %d: %v", tc.what, st)
		}
		if got != tc.want {
			t.Fatalf("query %d: got %d, want %d", tc.what, got, tc.want)
		}
	}
	if _, st := q.producer.Query(api.QueryWhat(99)); st != api.BadValue {
		t.Fatalf("unknown query: want BadValue")
	}
}

func TestWrongStateTransitionsLeaveStateUnchanged(t *testing.T) {
	q := newConnectedQueue(t, 2)
	before := q.core.Stats()

	if _, st := q.producer.RequestBuffer(0); st != api.BadValue {
		t.Fatalf("request free slot: got %v, want BadValue", st)
	}
	if _, st := q.producer.QueueBuffer(0, queueInput(false)); st != api.BadValue {
		t.Fatalf("queue free slot: got %v, want BadValue", st)
	}
	if st := q.producer.CancelBuffer(0, api.NoFence); st != api.BadValue {
		t.Fatalf("cancel free slot: got %v, want BadValue", st)
	}
	if st := q.producer.DetachBuffer(0); st != api.BadValue {
		t.Fatalf("detach free slot: got %v, want BadValue", st)
	}
	if st := q.consumer.ReleaseBuffer(&api.BufferItem{Slot: 0}, api.NoFence); st != api.BadValue {
		t.Fatalf("release free slot: got %v, want BadValue", st)
	}

	after := q.core.Stats()
	if before != after {
		t.Fatalf("failed validations mutated state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestOperationsAfterAbandonFailNoInit(t *testing.T) {
	q := newConnectedQueue(t, 2)
	if st := q.consumer.Disconnect(); st != api.Success {
		t.Fatalf("consumer disconnect: %v", st)
	}

	if _, _, _, st := q.producer.DequeueBuffer(testWidth, testHeight, testFormat, 0, false); st != api.NoInit {
		t.Fatalf("dequeue after abandon: got %v, want NoInit", st)
	}
	if _, st := q.producer.RequestBuffer(0); st != api.NoInit {
		t.Fatalf("request after abandon: got %v, want NoInit", st)
	}
	if _, st := q.producer.Query(api.QueryWidth); st != api.NoInit {
		t.Fatalf("query after abandon: got %v, want NoInit", st)
	}
	if _, st := q.consumer.AcquireBuffer(0, false); st != api.NoInit {
		t.Fatalf("acquire after abandon: got %v, want NoInit", st)
	}
	// Producer disconnect stays a silent no-op.
	if st := q.producer.Disconnect(api.NativeWindowAPICPU); st != api.Success {
		t.Fatalf("disconnect after abandon: got %v, want Success", st)
	}
}
