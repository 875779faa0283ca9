// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake graphic buffer implementation for tests and examples.

package fake

import (
	"github.com/momentics/hioload-bufferqueue/api"
)

// GraphicBuffer is a fake implementation of api.GraphicBuffer. It carries
// geometry only; there is no backing pixel memory.
type GraphicBuffer struct {
	W, H  uint32
	Fmt   api.PixelFormat
	UBits uint32
}

// NewGraphicBuffer creates a fake buffer with the given geometry.
func NewGraphicBuffer(width, height uint32, format api.PixelFormat, usage uint32) *GraphicBuffer {
	return &GraphicBuffer{W: width, H: height, Fmt: format, UBits: usage}
}

// Width returns the buffer width in pixels.
func (b *GraphicBuffer) Width() uint32 { return b.W }

// Height returns the buffer height in pixels.
func (b *GraphicBuffer) Height() uint32 { return b.H }

// Format returns the buffer pixel format.
func (b *GraphicBuffer) Format() api.PixelFormat { return b.Fmt }

// Usage returns the allocation usage bits.
func (b *GraphicBuffer) Usage() uint32 { return b.UBits }

// Bounds returns the rectangle (0,0)-(Width,Height).
func (b *GraphicBuffer) Bounds() api.Rect {
	return api.Rect{Right: int32(b.W), Bottom: int32(b.H)}
}
