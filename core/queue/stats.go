// File: core/queue/stats.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking operational snapshot of a queue core, for health checks
// and debug probes.

package queue

import "github.com/momentics/hioload-bufferqueue/api"

// Stats is a point-in-time snapshot, not a live view.
type Stats struct {
	QueueID      string
	Free         int
	Dequeued     int
	Queued       int
	Acquired     int
	PendingItems int
	FrameCounter uint64
	ConnectedAPI api.ConnectionAPI
	Abandoned    bool
}

// Stats returns a snapshot of the slot table and connection state.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		QueueID:      c.id,
		PendingItems: c.fifo.Len(),
		FrameCounter: c.frameCounter,
		ConnectedAPI: c.connectedAPI,
		Abandoned:    c.isAbandoned,
	}
	for i := range c.slots {
		switch c.slots[i].state {
		case BufferStateFree:
			st.Free++
		case BufferStateDequeued:
			st.Dequeued++
		case BufferStateQueued:
			st.Queued++
		case BufferStateAcquired:
			st.Acquired++
		}
	}
	return st
}
