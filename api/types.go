// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared enumerations and DTOs of the buffer exchange protocol.

package api

// NumBufferSlots is the fixed size of the slot table.
const NumBufferSlots = 64

// InvalidBufferSlot is returned when no slot could be produced.
const InvalidBufferSlot = -1

// PixelFormat identifies the pixel layout of a graphic buffer. The value 0
// means "unspecified" and resolves to the queue default.
type PixelFormat uint32

const (
	PixelFormatUnspecified PixelFormat = iota
	PixelFormatRGBA8888
	PixelFormatRGBX8888
	PixelFormatRGB888
	PixelFormatRGB565
)

// Transform is a bit set of flips and rotations applied at composition time.
type Transform uint32

const (
	TransformNone   Transform = 0
	TransformFlipH  Transform = 1
	TransformFlipV  Transform = 2
	TransformRot90  Transform = 4
	TransformRot180 Transform = TransformFlipH | TransformFlipV
	TransformRot270 Transform = TransformRot180 | TransformRot90
)

// ScalingMode declares how a queued buffer maps onto the output window.
// QueueBuffer rejects values outside this closed set.
type ScalingMode int

const (
	ScalingModeFreeze ScalingMode = iota
	ScalingModeScaleToWindow
	ScalingModeScaleCrop
	ScalingModeNoScaleCrop
)

// Valid reports whether m belongs to the closed scaling mode set.
func (m ScalingMode) Valid() bool {
	return m >= ScalingModeFreeze && m <= ScalingModeNoScaleCrop
}

// ConnectionAPI identifies the producer API a client connects under.
type ConnectionAPI int

const (
	NoConnectedAPI ConnectionAPI = iota
	NativeWindowAPIEGL
	NativeWindowAPICPU
	NativeWindowAPIMedia
	NativeWindowAPICamera
)

func (a ConnectionAPI) String() string {
	switch a {
	case NoConnectedAPI:
		return "none"
	case NativeWindowAPIEGL:
		return "egl"
	case NativeWindowAPICPU:
		return "cpu"
	case NativeWindowAPIMedia:
		return "media"
	case NativeWindowAPICamera:
		return "camera"
	default:
		return "invalid"
	}
}

// Valid reports whether a names a connectable producer API.
func (a ConnectionAPI) Valid() bool {
	return a >= NativeWindowAPIEGL && a <= NativeWindowAPICamera
}

// QueryWhat selects the attribute read by Producer.Query.
type QueryWhat int

const (
	QueryWidth QueryWhat = iota
	QueryHeight
	QueryFormat
	QueryMinUndequeuedBuffers
	QueryConsumerRunningBehind
	QueryConsumerUsageBits
	QueryMaxBufferCountAsync
)

// QueueBufferInput carries the per-frame parameters of a QueueBuffer call.
type QueueBufferInput struct {
	Timestamp       int64 // nanoseconds; ignored when IsAutoTimestamp is set
	IsAutoTimestamp bool
	Crop            Rect
	ScalingMode     ScalingMode
	Transform       Transform
	SwapInterval    int
	Async           bool
	Fence           Fence
}

// QueueBufferOutput reports queue geometry back to the producer after
// QueueBuffer and Connect.
type QueueBufferOutput struct {
	Width             uint32
	Height            uint32
	TransformHint     Transform
	NumPendingBuffers int
}
