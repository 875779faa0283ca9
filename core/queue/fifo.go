// File: core/queue/fifo.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package queue

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-bufferqueue/api"
)

// itemFIFO is the ordered sequence of pending buffer items, queued but not
// yet acquired. Items appear in non-decreasing frame-number order. Access
// only while holding the core lock.
type itemFIFO struct {
	q *queue.Queue
}

func newItemFIFO() itemFIFO {
	return itemFIFO{q: queue.New()}
}

func (f *itemFIFO) Len() int {
	return f.q.Length()
}

// Push appends an item to the tail.
func (f *itemFIFO) Push(item *api.BufferItem) {
	f.q.Add(item)
}

// Head returns the front item without removing it, or nil when empty.
func (f *itemFIFO) Head() *api.BufferItem {
	if f.q.Length() == 0 {
		return nil
	}
	return f.q.Peek().(*api.BufferItem)
}

// At returns the item at position i (0 = head). Caller must bounds-check
// against Len.
func (f *itemFIFO) At(i int) *api.BufferItem {
	return f.q.Get(i).(*api.BufferItem)
}

// PopHead removes and returns the front item, or nil when empty.
func (f *itemFIFO) PopHead() *api.BufferItem {
	if f.q.Length() == 0 {
		return nil
	}
	return f.q.Remove().(*api.BufferItem)
}

// Clear drops every pending item.
func (f *itemFIFO) Clear() {
	for f.q.Length() > 0 {
		f.q.Remove()
	}
}
