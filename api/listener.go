// File: api/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Listener capability interfaces invoked by the queue core. Callbacks are
// synchronous and always made without holding the core lock; notification
// order across racing producers is serialized by the core's ticket
// mechanism, so listeners must return promptly. A listener must not
// re-enter the producer or consumer interface of the same queue from
// within a callback.

package api

// FrameAvailableListener receives new-frame and replaced-frame
// notifications on the consumer side. Exactly one of the two methods fires
// per successful QueueBuffer call.
type FrameAvailableListener interface {
	// OnFrameAvailable reports a frame appended to the pending queue.
	OnFrameAvailable(item BufferItem)

	// OnFrameReplaced reports a droppable head frame superseded in place
	// by a newer one.
	OnFrameReplaced(item BufferItem)
}

// BuffersReleasedListener receives bulk-free notifications on the consumer
// side, fired when the producer forces all buffers free (buffer count
// change, disconnect).
type BuffersReleasedListener interface {
	OnBuffersReleased()
}

// ConsumerListener is the full consumer-side callback surface. The two
// embedded capabilities are split so implementers can stub the one they do
// not use.
type ConsumerListener interface {
	FrameAvailableListener
	BuffersReleasedListener
}

// ProducerListener is notified when the consumer returns a buffer to the
// free pool, unblocking pending dequeues.
type ProducerListener interface {
	OnBufferReleased()
}
