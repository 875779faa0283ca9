// File: api/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Opaque graphic-buffer handle contract and the rectangle type used for
// crop validation. The queue never allocates or frees buffer memory; it
// only stores handles and moves their ownership between sides.

package api

// Rect is an axis-aligned rectangle with exclusive right/bottom edges.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// Width returns the horizontal extent; negative for malformed rectangles.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns the vertical extent; negative for malformed rectangles.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// IsEmpty reports whether the rectangle covers no area.
func (r Rect) IsEmpty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Intersect returns the overlap of r and other. ok is false when the two
// rectangles do not overlap at all.
func (r Rect) Intersect(other Rect) (out Rect, ok bool) {
	out.Left = max32(r.Left, other.Left)
	out.Top = max32(r.Top, other.Top)
	out.Right = min32(r.Right, other.Right)
	out.Bottom = min32(r.Bottom, other.Bottom)
	return out, !out.IsEmpty()
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// GraphicBuffer is the opaque handle of a preallocated graphics buffer.
// Implementations are provided by the embedding system; the queue relies
// only on the geometry accessors below and on handle identity (==).
type GraphicBuffer interface {
	// Width returns the buffer width in pixels.
	Width() uint32

	// Height returns the buffer height in pixels.
	Height() uint32

	// Format returns the buffer pixel format.
	Format() PixelFormat

	// Usage returns the allocation usage bits of the buffer.
	Usage() uint32

	// Bounds returns the rectangle (0,0)-(Width,Height).
	Bounds() Rect
}
