// File: api/fence.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Fence is an opaque synchronization handle signaled once the GPU work that
// last touched a buffer has completed. The queue never signals fences; it
// stores them across handoffs and, when asked, blocks on them.
type Fence interface {
	// WaitForever blocks until the fence signals. There is no timeout; a
	// fence that never signals blocks the caller indefinitely.
	WaitForever() error
}

// NoFence is the "already signaled" sentinel. Waiting on it returns
// immediately.
var NoFence Fence = noFence{}

type noFence struct{}

func (noFence) WaitForever() error { return nil }
