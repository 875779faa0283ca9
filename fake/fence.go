// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake fence implementation for tests and examples.

package fake

import "sync"

// Fence is a fake implementation of api.Fence backed by a channel. It is
// created unsignaled; Signal releases every current and future waiter.
type Fence struct {
	once sync.Once
	done chan struct{}
}

// NewFence creates an unsignaled fence.
func NewFence() *Fence {
	return &Fence{done: make(chan struct{})}
}

// NewSignaledFence creates a fence whose wait returns immediately.
func NewSignaledFence() *Fence {
	f := NewFence()
	f.Signal()
	return f
}

// Signal marks the fence signaled; idempotent.
func (f *Fence) Signal() {
	f.once.Do(func() { close(f.done) })
}

// WaitForever blocks until Signal is called.
func (f *Fence) WaitForever() error {
	<-f.done
	return nil
}
