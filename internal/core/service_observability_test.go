package core

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"flowdeck/pkg/domain"
)

const (
	entryStatusSuccess = AuditStatusSuccess
	entryStatusError   = AuditStatusError
)

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *captureAuditRecorder) has(operation string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Operation != operation || e.Status != status {
			continue
		}
		if predicate == nil || predicate(e) {
			return true
		}
	}
	return false
}

type metricsCall struct {
	operation string
	success   bool
	duration  time.Duration
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (r *captureMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, metricsCall{operation: operation, success: success, duration: duration})
}

func (r *captureMetricsRecorder) has(operation string, success bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.operation == operation && c.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	operation string
	err       error
}

type captureTracer struct {
	mu      sync.Mutex
	started []spanRecord
	ended   []spanRecord
}

func (t *captureTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	t.mu.Lock()
	t.started = append(t.started, spanRecord{operation: operation})
	t.mu.Unlock()
	return ctx, &captureSpan{tracer: t, operation: operation}
}

func (t *captureTracer) has(operation string, failed bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.ended {
		if s.operation == operation && (s.err != nil) == failed {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer    *captureTracer
	operation string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{operation: s.operation, err: err})
	s.tracer.mu.Unlock()
}

func TestServiceObservabilityCoversOperations(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc := NewInMemoryService(NewRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)
	ctx := context.Background()

	if _, _, err := svc.UpdateGeometry(ctx, GeometrySettings{CoordinateFile: "mesh/crd.dat", ConnectivityFile: "mesh/cnn.dat", Element: domain.ElementTri3}); err != nil {
		t.Fatalf("update geometry: %v", err)
	}
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	solver := snap.Solver
	solver.MaxTimeSteps = 25
	if _, _, err := svc.UpdateSolver(ctx, solver); err != nil {
		t.Fatalf("update solver: %v", err)
	}
	if _, _, err := svc.UpdateFluid(ctx, FluidProperties{Density: 1.2, Velocity: 10, Viscosity: 1.8e-5, Length: 0.5, Gamma: 1.4, SpeedOfSound: 340}); err != nil {
		t.Fatalf("update fluid: %v", err)
	}
	if _, _, err := svc.UpdateInitialConditions(ctx, InitialConditions{XVelocity: 10}); err != nil {
		t.Fatalf("update initial conditions: %v", err)
	}

	file, _, err := svc.CreateBoundaryFile(ctx, BoundaryFile{Path: "mesh/outer.dat"})
	if err != nil {
		t.Fatalf("create boundary file: %v", err)
	}
	if _, _, err := svc.UpdateBoundaryFile(ctx, file.ID, func(f *BoundaryFile) error {
		f.Path = "mesh/inner.dat"
		return nil
	}); err != nil {
		t.Fatalf("update boundary file: %v", err)
	}
	if _, err := svc.DeleteBoundaryFile(ctx, file.ID); err != nil {
		t.Fatalf("delete boundary file: %v", err)
	}

	cond, _, err := svc.CreateCondition(ctx, BoundaryCondition{Variable: domain.VarXVelocity, Kind: domain.KindDirichlet, Boundary: "inlet", Value: 5})
	if err != nil {
		t.Fatalf("create condition: %v", err)
	}
	if _, _, err := svc.UpdateCondition(ctx, cond.ID, func(c *BoundaryCondition) error {
		c.Value = 7.5
		return nil
	}); err != nil {
		t.Fatalf("update condition: %v", err)
	}
	if _, err := svc.DeleteCondition(ctx, cond.ID); err != nil {
		t.Fatalf("delete condition: %v", err)
	}

	motion, _, err := svc.CreateMotion(ctx, PrescribedMotion{Tag: 1, Heave: domain.MotionComponent{Amplitude: 0.6, Frequency: 1.2}})
	if err != nil {
		t.Fatalf("create motion: %v", err)
	}
	if _, _, err := svc.UpdateMotion(ctx, motion.ID, func(m *PrescribedMotion) error {
		m.Heave.Phase = 90
		return nil
	}); err != nil {
		t.Fatalf("update motion: %v", err)
	}
	if _, err := svc.DeleteMotion(ctx, motion.ID); err != nil {
		t.Fatalf("delete motion: %v", err)
	}

	probe, _, err := svc.CreateProbe(ctx, Probe{Path: "probes/wake.dat"})
	if err != nil {
		t.Fatalf("create probe: %v", err)
	}
	if _, _, err := svc.UpdateProbe(ctx, probe.ID, func(p *Probe) error {
		p.Path = "probes/tip.dat"
		return nil
	}); err != nil {
		t.Fatalf("update probe: %v", err)
	}
	if _, err := svc.DeleteProbe(ctx, probe.ID); err != nil {
		t.Fatalf("delete probe: %v", err)
	}

	surface, _, err := svc.CreateSurface(ctx, Surface{Path: "surfaces/wing.dat"})
	if err != nil {
		t.Fatalf("create surface: %v", err)
	}
	if _, _, err := svc.UpdateSurface(ctx, surface.ID, func(sf *Surface) error {
		sf.Path = "surfaces/flap.dat"
		return nil
	}); err != nil {
		t.Fatalf("update surface: %v", err)
	}
	if _, err := svc.DeleteSurface(ctx, surface.ID); err != nil {
		t.Fatalf("delete surface: %v", err)
	}

	if _, err := svc.DeleteProbe(ctx, "missing"); err == nil {
		t.Fatal("expected error deleting unknown probe")
	}
	if !metrics.has("delete_probe", false) {
		t.Error("missing failure metric for delete_probe")
	}
	if !tracer.has("delete_probe", true) {
		t.Error("missing failed span for delete_probe")
	}
	if !audit.has("delete_probe", entryStatusError, func(e AuditEntry) bool {
		return e.EntityID == "missing" && e.Error != ""
	}) {
		t.Error("missing error audit entry for delete_probe")
	}

	if text, _, err := svc.RenderDeck(ctx); err != nil {
		t.Fatalf("render deck: %v", err)
	} else if text == "" {
		t.Fatal("render deck returned empty text")
	}
	if err := svc.ImportState(ctx, snap); err != nil {
		t.Fatalf("import state: %v", err)
	}
	for _, op := range []string{"render_deck", "import_state"} {
		if !metrics.has(op, true) {
			t.Errorf("missing success metric for %s", op)
		}
		if !tracer.has(op, false) {
			t.Errorf("missing span for %s", op)
		}
	}

	successOps := []string{
		"update_geometry",
		"update_solver",
		"update_fluid",
		"update_initial_conditions",
		"create_boundary_file",
		"update_boundary_file",
		"delete_boundary_file",
		"create_condition",
		"update_condition",
		"delete_condition",
		"create_motion",
		"update_motion",
		"delete_motion",
		"create_probe",
		"update_probe",
		"delete_probe",
		"create_surface",
		"update_surface",
		"delete_surface",
	}
	for _, op := range successOps {
		if !metrics.has(op, true) {
			t.Errorf("missing success metric for %s", op)
		}
		if !tracer.has(op, false) {
			t.Errorf("missing successful span for %s", op)
		}
		if !audit.has(op, entryStatusSuccess, nil) {
			t.Errorf("missing success audit entry for %s", op)
		}
	}

	if len(tracer.started) != len(tracer.ended) {
		t.Errorf("started %d spans but ended %d", len(tracer.started), len(tracer.ended))
	}
}

func TestExpvarRecorderExports(t *testing.T) {
	rec := NewExpvarRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "test_op", true, 10*time.Millisecond)
	rec.Observe(ctx, "test_op", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.OpDurationMS["test_op"] <= 0 {
		t.Errorf("expected positive duration total, got %v", snap.OpDurationMS["test_op"])
	}
	if got := snap.OpResults["test_op"]["success"]; got != 1 {
		t.Errorf("success count = %d, want 1", got)
	}
	if got := snap.OpResults["test_op"]["error"]; got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
	if len(snap.OpResults) != 1 {
		t.Errorf("expected blank operation to be dropped, got %d operations", len(snap.OpResults))
	}
	if snap.CapturedAt.IsZero() {
		t.Error("snapshot timestamp not set")
	}

	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("expvar %q not published", rec.Name())
	}
	if !strings.Contains(v.String(), "test_op") {
		t.Errorf("expvar export missing operation: %s", v.String())
	}
}

func TestRecordingTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewRecordingTracer(&buf)
	ctx := context.Background()

	spanCtx, span := tracer.Start(ctx, "trace_op")
	if spanCtx == nil {
		t.Fatal("Start returned nil context")
	}
	span.End(nil)

	_, failed := tracer.Start(ctx, "trace_op")
	failed.End(errors.New("boom"))

	records := tracer.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Op != "trace_op" || records[0].Outcome != "success" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[0].Error != "" {
		t.Errorf("success record carries error %q", records[0].Error)
	}
	if records[1].Outcome != "error" || records[1].Error != "boom" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
	if records[0].End.Before(records[0].Start) {
		t.Error("span ended before it started")
	}
	if !strings.Contains(buf.String(), `"op":"trace_op"`) {
		t.Errorf("encoded stream missing operation: %s", buf.String())
	}
}

func TestPrometheusMetricsRecorderCollects(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()

	rec.Observe(ctx, "render_deck", true, 120*time.Millisecond)
	rec.Observe(ctx, "render_deck", true, 80*time.Millisecond)
	rec.Observe(ctx, "render_deck", false, 40*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("render_deck", "success")); got != 2 {
		t.Errorf("success counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("render_deck", "error")); got != 1 {
		t.Errorf("error counter = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(rec.durations); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}

	again, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	again.Observe(ctx, "render_deck", true, 10*time.Millisecond)
	if got := testutil.ToFloat64(rec.results.WithLabelValues("render_deck", "success")); got != 3 {
		t.Errorf("shared counter = %v, want 3", got)
	}
}
