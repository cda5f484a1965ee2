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
	validationRuns = newLabeledCounter()
	ocrStages      = newLabeledCounter()
	workerMessages = newLabeledCounter()

	ocrTimeoutsTotal   atomic.Uint64
	relayCopiesTotal   atomic.Uint64
	faceComparesTotal  atomic.Uint64
	resummarizedTotal  atomic.Uint64
	queueEnqueuedTotal atomic.Uint64

	runDuration = newHistogram([]float64{50, 250, 1000, 5000, 15000, 30000, 60000, 120000, 300000})
)

// IncValidationRun counts a persisted run by category and verdict label.
func IncValidationRun(category, verdict string) {
	validationRuns.Inc(fmt.Sprintf(`category="%s",verdict="%s"`, category, verdict))
}

// IncOCRStage counts a pipeline trace step (line-text-ok, word-fallback-used, ...).
func IncOCRStage(step string) {
	ocrStages.Inc(fmt.Sprintf(`step="%s"`, step))
}

// IncWorkerMessage counts queue messages by outcome (received, completed,
// failed, dropped).
func IncWorkerMessage(outcome string) {
	workerMessages.Inc(fmt.Sprintf(`outcome="%s"`, outcome))
}

func IncOCRTimeout()    { ocrTimeoutsTotal.Add(1) }
func IncRelayCopy()     { relayCopiesTotal.Add(1) }
func IncFaceCompare()   { faceComparesTotal.Add(1) }
func IncQueueEnqueued() { queueEnqueuedTotal.Add(1) }
func AddResummarized(n int) {
	if n > 0 {
		resummarizedTotal.Add(uint64(n))
	}
}

// ObserveRunDurationMs records how long one category run took.
func ObserveRunDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.Observe(value)
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
	writeLabeled(&buf, "validation_runs_total", "Validation runs by category and verdict", validationRuns.Snapshot())
	writeLabeled(&buf, "ocr_stage_total", "OCR pipeline steps by outcome", ocrStages.Snapshot())
	writeLabeled(&buf, "worker_messages_total", "Queue messages handled by outcome", workerMessages.Snapshot())
	writeCounter(&buf, "ocr_timeouts_total", "OCR documents that hit the job deadline", ocrTimeoutsTotal.Load())
	writeCounter(&buf, "relay_copies_total", "Cross-region blob copies performed", relayCopiesTotal.Load())
	writeCounter(&buf, "face_compares_total", "Face similarity calls", faceComparesTotal.Load())
	writeCounter(&buf, "resummarized_records_total", "Records rewritten by resummarize", resummarizedTotal.Load())
	writeCounter(&buf, "validation_enqueued_total", "Validation runs sent to the queue", queueEnqueuedTotal.Load())
	writeHistogram(&buf, "validation_run_duration_ms", "Category run duration in milliseconds", runDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(labels string) {
	l.mu.Lock()
	l.values[labels]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
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
	return &histogram{buckets: buckets, counts: make([]uint64, len(buckets))}
}

// Observe stores the value in the first bucket that holds it; Render accumulates.
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
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeled(buf *bytes.Buffer, name, help string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s} %d\n", name, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s histogram\n", name, help, name)
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
