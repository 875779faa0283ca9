// File: facade/bufferqueue.go
// Unified facade layer for hioload-bufferqueue.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines the BufferQueue struct, which aggregates the core
// components of the library behind a single facade: the shared queue core
// plus its producer and consumer endpoints, initialized from an immutable
// configuration. The facade also provides the default structured logger
// used when the embedding application has no logr sink of its own.

package facade

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/momentics/hioload-bufferqueue/api"
	"github.com/momentics/hioload-bufferqueue/core/queue"
)

// Config holds parameters immutable per queue. All fields influence core
// initialization and cannot be changed at runtime except through the
// consumer interface (default geometry/format, acquired-buffer cap).
type Config struct {
	DefaultWidth           uint32          // Geometry for zero-sized dequeue requests
	DefaultHeight          uint32          //
	DefaultFormat          api.PixelFormat // Format for unspecified-format dequeue requests
	ConsumerUsageBits      uint32          // Usage bits merged into every dequeue
	MaxAcquiredBufferCount int             // Buffers the consumer may hold at once
	TransformHint          api.Transform   // Hint reported to producers
	EnableMetrics          bool            // Toggle process-wide operation counters
	Logger                 logr.Logger     // Structured log sink; zero value discards
}

// DefaultConfig returns default configuration values. These sane defaults
// support typical double-buffered use without tuning.
func DefaultConfig() *Config {
	return &Config{
		DefaultWidth:           1,
		DefaultHeight:          1,
		DefaultFormat:          api.PixelFormatRGBA8888,
		ConsumerUsageBits:      0,
		MaxAcquiredBufferCount: 1,
		TransformHint:          api.TransformNone,
		EnableMetrics:          true,
		Logger:                 logr.Discard(),
	}
}

// BufferQueue is the main facade type: one core with its two endpoints.
type BufferQueue struct {
	core     *queue.Core
	producer api.Producer
	consumer api.Consumer
}

// New constructs a wired producer/consumer pair around a fresh core.
func New(cfg *Config) *BufferQueue {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	core := queue.NewCore(queue.Options{
		Logger:                 cfg.Logger,
		DefaultWidth:           cfg.DefaultWidth,
		DefaultHeight:          cfg.DefaultHeight,
		DefaultFormat:          cfg.DefaultFormat,
		ConsumerUsageBits:      cfg.ConsumerUsageBits,
		MaxAcquiredBufferCount: cfg.MaxAcquiredBufferCount,
		TransformHint:          cfg.TransformHint,
		EnableMetrics:          cfg.EnableMetrics,
	})
	return &BufferQueue{
		core:     core,
		producer: queue.NewProducer(core),
		consumer: queue.NewConsumer(core),
	}
}

// Producer returns the application-side endpoint.
func (b *BufferQueue) Producer() api.Producer { return b.producer }

// Consumer returns the display-side endpoint.
func (b *BufferQueue) Consumer() api.Consumer { return b.consumer }

// Stats returns an operational snapshot of the core.
func (b *BufferQueue) Stats() queue.Stats { return b.core.Stats() }

// ID returns the unique identifier of the underlying core.
func (b *BufferQueue) ID() string { return b.core.ID() }

// NewDevelopmentLogger builds a console logr.Logger over a zap development
// core, for applications without their own sink. verbosity maps to zap
// debug levels: 0 logs info and above, 1 adds transition-level debug.
func NewDevelopmentLogger(verbosity int) logr.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("02/01 15:04:05")
	level := zap.NewAtomicLevelAt(zapcore.Level(0 - verbosity))
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zapr.NewLogger(zap.New(core))
}
