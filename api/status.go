// File: api/status.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Closed status code set and return flags shared by every producer and
// consumer operation. Errors are values from this set; the single fatal
// path (buffer reallocation) panics instead of returning a status.

package api

import "fmt"

// Sentinel errors corresponding to non-success status codes.
var (
	ErrBadValue         = fmt.Errorf("bad value")
	ErrNoInit           = fmt.Errorf("not initialized")
	ErrBusy             = fmt.Errorf("busy")
	ErrWouldBlock       = fmt.Errorf("operation would block")
	ErrInvalidOperation = fmt.Errorf("invalid operation")
	ErrNoMemory         = fmt.Errorf("no memory")
)

// Status is the closed result code set of the buffer exchange protocol.
type Status int

const (
	// Success reports that the operation completed.
	Success Status = iota
	// BadValue reports malformed arguments or a protocol-order violation.
	BadValue
	// NoInit reports an abandoned or unconnected queue; terminal for the call.
	NoInit
	// Busy reports transient unavailability on the consumer side.
	Busy
	// WouldBlock reports that a non-blocking dequeue found no free slot.
	WouldBlock
	// InvalidOperation reports a violated protocol invariant.
	InvalidOperation
	// NoMemory reports that no detachable buffer exists.
	NoMemory
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case BadValue:
		return "bad value"
	case NoInit:
		return "no init"
	case Busy:
		return "busy"
	case WouldBlock:
		return "would block"
	case InvalidOperation:
		return "invalid operation"
	case NoMemory:
		return "no memory"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Err maps a status to its sentinel error, or nil for Success.
func (s Status) Err() error {
	switch s {
	case Success:
		return nil
	case BadValue:
		return ErrBadValue
	case NoInit:
		return ErrNoInit
	case Busy:
		return ErrBusy
	case WouldBlock:
		return ErrWouldBlock
	case InvalidOperation:
		return ErrInvalidOperation
	case NoMemory:
		return ErrNoMemory
	default:
		return fmt.Errorf("unknown status %d", int(s))
	}
}

// ReturnFlags is a bit set carried alongside a Status by DequeueBuffer,
// AttachBuffer, and Connect.
type ReturnFlags int

const (
	// FlagBufferNeedsReallocation marks a slot whose handle must be treated
	// as freshly reconciled by the caller. The reallocation itself is an
	// unimplemented path in this library: buffers are always preallocated.
	FlagBufferNeedsReallocation ReturnFlags = 1 << iota
	// FlagReleaseAllBuffers tells the caller that slots outside the active
	// window were reclaimed and their buffers released.
	FlagReleaseAllBuffers
)

// Has reports whether all bits of f are set.
func (r ReturnFlags) Has(f ReturnFlags) bool { return r&f == f }
