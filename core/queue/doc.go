// File: core/queue/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package queue implements the slot-based buffer exchange core: a fixed
// table of buffer slots, a pending-item FIFO, and the producer and consumer
// interfaces operating on them under a single lock.
//
// Every slot is an independent state machine cycling
// Free -> Dequeued -> Queued -> Acquired -> Free; droppable queued frames
// may collapse Queued -> Free when superseded before acquisition, and
// cancellation or detach collapses Dequeued -> Free. Exactly one side may
// act on a slot in each state.
//
// All shared state is guarded by one mutex owned by Core. Listener
// callbacks are never invoked while that mutex is held; QueueBuffer
// serializes them across racing producers with a monotonic ticket counter
// and a dedicated callback lock, so notifications always reach the
// consumer in the order the frames were numbered.
package queue
