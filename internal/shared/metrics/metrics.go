// Package metrics keeps process-wide counters and renders them in the
// Prometheus text format.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadsStartedTotal   atomic.Uint64
	uploadsCompletedTotal atomic.Uint64
	uploadsFailedTotal    atomic.Uint64
	uploadsCancelledTotal atomic.Uint64

	resourceReadyTotal atomic.Uint64
	resourceErrorTotal atomic.Uint64
	resourceStaleTotal atomic.Uint64

	feedAckedTotal  atomic.Uint64
	feedNackedTotal atomic.Uint64

	blobDoubleReleaseTotal atomic.Uint64

	rateLimitedMu    sync.Mutex
	rateLimitedTotal map[string]uint64

	uploadDuration   = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000})
	resourceDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 15000})
)

// IncUploadStarted counts an upload that passed validation.
func IncUploadStarted() { uploadsStartedTotal.Add(1) }

// IncUploadCompleted counts an upload whose file was committed.
func IncUploadCompleted() { uploadsCompletedTotal.Add(1) }

// IncUploadFailed counts an upload that ended without a file.
func IncUploadFailed() { uploadsFailedTotal.Add(1) }

// IncUploadCancelled counts an upload abandoned by its caller.
func IncUploadCancelled() { uploadsCancelledTotal.Add(1) }

// ObserveUploadDurationMs records the wall time of a finished upload.
func ObserveUploadDurationMs(value float64) { uploadDuration.Observe(clamp(value)) }

// ObserveResourceAttempt records one settled resource attempt.
func ObserveResourceAttempt(ok bool, durationMs float64) {
	if ok {
		resourceReadyTotal.Add(1)
	} else {
		resourceErrorTotal.Add(1)
	}
	resourceDuration.Observe(clamp(durationMs))
}

// IncResourceStale counts an attempt whose result was discarded.
func IncResourceStale() { resourceStaleTotal.Add(1) }

// IncFeedAcked counts a notification feed delivery that was acknowledged.
func IncFeedAcked() { feedAckedTotal.Add(1) }

// IncFeedNacked counts a notification feed delivery that was rejected.
func IncFeedNacked() { feedNackedTotal.Add(1) }

// IncBlobDoubleRelease counts release attempts on an already released handle.
func IncBlobDoubleRelease() { blobDoubleReleaseTotal.Add(1) }

// IncRateLimited counts a request rejected by the rate limiter for group.
func IncRateLimited(group string) {
	rateLimitedMu.Lock()
	if rateLimitedTotal == nil {
		rateLimitedTotal = make(map[string]uint64)
	}
	rateLimitedTotal[group]++
	rateLimitedMu.Unlock()
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "cv_uploads_started_total", "Uploads that passed validation", uploadsStartedTotal.Load())
	writeCounter(&buf, "cv_uploads_completed_total", "Uploads committed", uploadsCompletedTotal.Load())
	writeCounter(&buf, "cv_uploads_failed_total", "Uploads that failed", uploadsFailedTotal.Load())
	writeCounter(&buf, "cv_uploads_cancelled_total", "Uploads cancelled", uploadsCancelledTotal.Load())
	writeHistogram(&buf, "cv_upload_duration_ms", "Upload duration in milliseconds", uploadDuration.Snapshot())
	writeCounter(&buf, "resource_attempts_ready_total", "Resource attempts settled ready", resourceReadyTotal.Load())
	writeCounter(&buf, "resource_attempts_error_total", "Resource attempts settled in error", resourceErrorTotal.Load())
	writeCounter(&buf, "resource_attempts_stale_total", "Resource attempts discarded as stale", resourceStaleTotal.Load())
	writeHistogram(&buf, "resource_attempt_duration_ms", "Resource attempt duration in milliseconds", resourceDuration.Snapshot())
	writeCounter(&buf, "notification_feed_acked_total", "Feed deliveries acknowledged", feedAckedTotal.Load())
	writeCounter(&buf, "notification_feed_nacked_total", "Feed deliveries rejected", feedNackedTotal.Load())
	writeCounter(&buf, "blob_double_release_total", "Release calls on released handles", blobDoubleReleaseTotal.Load())
	writeLabeledCounter(&buf, "http_rate_limited_total", "Requests rejected by the rate limiter", "group", rateLimitedSnapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket that holds it; rendering accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func rateLimitedSnapshot() map[string]uint64 {
	rateLimitedMu.Lock()
	defer rateLimitedMu.Unlock()
	out := make(map[string]uint64, len(rateLimitedTotal))
	for k, v := range rateLimitedTotal {
		out[k] = v
	}
	return out
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
