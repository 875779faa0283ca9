// Package fake
// Author: momentics <momentics@gmail.com>
//
// Recording listener implementations for tests and examples. Every
// callback is appended to an event log under a mutex so tests can assert
// on delivery order.

package fake

import (
	"sync"

	"github.com/momentics/hioload-bufferqueue/api"
)

// ConsumerEvent is one recorded consumer-side callback.
type ConsumerEvent struct {
	// Kind is "available", "replaced", or "released".
	Kind string
	// Item is the notified frame; zero for "released" events.
	Item api.BufferItem
}

// ConsumerListener is a fake implementation of api.ConsumerListener that
// records every callback in order.
type ConsumerListener struct {
	mu     sync.Mutex
	events []ConsumerEvent
}

// NewConsumerListener creates an empty recording listener.
func NewConsumerListener() *ConsumerListener {
	return &ConsumerListener{}
}

// OnFrameAvailable records an "available" event.
func (l *ConsumerListener) OnFrameAvailable(item api.BufferItem) {
	l.mu.Lock()
	l.events = append(l.events, ConsumerEvent{Kind: "available", Item: item})
	l.mu.Unlock()
}

// OnFrameReplaced records a "replaced" event.
func (l *ConsumerListener) OnFrameReplaced(item api.BufferItem) {
	l.mu.Lock()
	l.events = append(l.events, ConsumerEvent{Kind: "replaced", Item: item})
	l.mu.Unlock()
}

// OnBuffersReleased records a "released" event.
func (l *ConsumerListener) OnBuffersReleased() {
	l.mu.Lock()
	l.events = append(l.events, ConsumerEvent{Kind: "released"})
	l.mu.Unlock()
}

// Events returns a snapshot of recorded events in delivery order.
func (l *ConsumerListener) Events() []ConsumerEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ConsumerEvent, len(l.events))
	copy(out, l.events)
	return out
}

// ProducerListener is a fake implementation of api.ProducerListener
// counting release notifications.
type ProducerListener struct {
	mu       sync.Mutex
	released int
}

// NewProducerListener creates a zeroed counter listener.
func NewProducerListener() *ProducerListener {
	return &ProducerListener{}
}

// OnBufferReleased increments the release counter.
func (l *ProducerListener) OnBufferReleased() {
	l.mu.Lock()
	l.released++
	l.mu.Unlock()
}

// Released returns how many release notifications arrived.
func (l *ProducerListener) Released() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}
