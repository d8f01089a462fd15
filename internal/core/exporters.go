package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq atomic.Uint64

// ExpvarRecorder aggregates per-operation durations and outcome counters and
// publishes the running totals on the process expvar page. It suits
// deployments that want service metrics without an external collector.
type ExpvarRecorder struct {
	name  string
	mu    sync.Mutex
	tally map[string]*opTally
}

var _ MetricsRecorder = (*ExpvarRecorder)(nil)

type opTally struct {
	elapsedMS float64
	ok        int64
	failed    int64
}

// ExpvarSnapshot is the JSON document the expvar variable serves.
type ExpvarSnapshot struct {
	OpDurationMS map[string]float64          `json:"op_duration_ms"`
	OpResults    map[string]map[string]int64 `json:"op_results"`
	CapturedAt   time.Time                   `json:"captured_at"`
}

// NewExpvarRecorder publishes a recorder under name. An empty name gets a
// process-unique one so parallel tests never collide on the expvar registry.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		name = fmt.Sprintf("deck_service_metrics_%d", expvarSeq.Add(1))
	}
	rec := &ExpvarRecorder{name: name, tally: make(map[string]*opTally)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name reports the expvar variable the recorder publishes under.
func (r *ExpvarRecorder) Name() string { return r.name }

// Observe adds one operation outcome to the running totals. Outcomes with a
// blank operation name are dropped.
func (r *ExpvarRecorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tally[operation]
	if t == nil {
		t = &opTally{}
		r.tally[operation] = t
	}
	t.elapsedMS += float64(d) / float64(time.Millisecond)
	if success {
		t.ok++
	} else {
		t.failed++
	}
}

// Snapshot copies the current totals into an encodable document.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarSnapshot{
		OpDurationMS: make(map[string]float64, len(r.tally)),
		OpResults:    make(map[string]map[string]int64, len(r.tally)),
		CapturedAt:   time.Now().UTC(),
	}
	for operation, t := range r.tally {
		snap.OpDurationMS[operation] = t.elapsedMS
		snap.OpResults[operation] = map[string]int64{
			"success": t.ok,
			"error":   t.failed,
		}
	}
	return snap
}

// TraceRecord is one finished span as the recording tracer stores and
// encodes it.
type TraceRecord struct {
	Op        string    `json:"op"`
	Outcome   string    `json:"outcome"`
	ElapsedMS float64   `json:"elapsed_ms"`
	Error     string    `json:"error,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// RecordingTracer retains every finished span in memory and, when built with
// a writer, streams each one as a JSON line as it completes.
type RecordingTracer struct {
	mu      sync.Mutex
	records []TraceRecord
	enc     *json.Encoder
}

var _ Tracer = (*RecordingTracer)(nil)

// NewRecordingTracer builds a tracer. Pass nil to keep spans in memory only.
func NewRecordingTracer(w io.Writer) *RecordingTracer {
	t := &RecordingTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Records returns a copy of the spans finished so far.
func (t *RecordingTracer) Records() []TraceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.records)
}

// Start opens a span for operation.
func (t *RecordingTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &liveSpan{tracer: t, op: operation, begun: time.Now().UTC()}
}

type liveSpan struct {
	tracer *RecordingTracer
	op     string
	begun  time.Time
}

func (s *liveSpan) End(err error) {
	done := time.Now().UTC()
	record := TraceRecord{
		Op:        s.op,
		Outcome:   "success",
		ElapsedMS: float64(done.Sub(s.begun)) / float64(time.Millisecond),
		Start:     s.begun,
		End:       done,
	}
	if err != nil {
		record.Outcome = "error"
		record.Error = err.Error()
	}
	s.tracer.keep(record)
}

func (t *RecordingTracer) keep(record TraceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record)
	if t.enc != nil {
		_ = t.enc.Encode(record)
	}
}
