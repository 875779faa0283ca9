// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package api defines the public contracts of the hioload-bufferqueue library:
// the producer and consumer interfaces of the slot-based buffer exchange
// protocol, the closed status code set shared by every operation, listener
// capability interfaces for asynchronous notifications, and the opaque
// graphic-buffer and fence collaborator types.
//
// The package contains no implementation code. Concrete types live in
// core/queue; api exists so that callers, fakes, and adapters depend only on
// stable contracts.
package api
