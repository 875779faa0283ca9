// File: metrics/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Operation counters for the buffer exchange core, exported in Prometheus
// format. Kept free of any dependency on other packages so every component
// can increment counters without import cycles.

package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var startTime = time.Now()

// Counters incremented by the queue core. All are process-wide totals
// across every queue instance.
var (
	BuffersQueued      = metrics.NewCounter(`bufferqueue_buffers_queued_total`)
	FramesReplaced     = metrics.NewCounter(`bufferqueue_frames_replaced_total`)
	BuffersAcquired    = metrics.NewCounter(`bufferqueue_buffers_acquired_total`)
	BuffersReleased    = metrics.NewCounter(`bufferqueue_buffers_released_total`)
	BuffersCanceled    = metrics.NewCounter(`bufferqueue_buffers_canceled_total`)
	BuffersFreed       = metrics.NewCounter(`bufferqueue_buffers_freed_total`)
	DequeueWaits       = metrics.NewCounter(`bufferqueue_dequeue_waits_total`)
	DequeueWouldBlock  = metrics.NewCounter(`bufferqueue_dequeue_would_block_total`)
	StaleFramesDropped = metrics.NewCounter(`bufferqueue_stale_frames_dropped_total`)
)

// WritePrometheus dumps all registered metrics plus process uptime to w,
// for scraping or push export.
func WritePrometheus(w io.Writer, exposeProcessMetrics bool) {
	metrics.WritePrometheus(w, exposeProcessMetrics)
	fmt.Fprintf(w, "bufferqueue_uptime_seconds %d\n", int(time.Since(startTime).Seconds()))
}
