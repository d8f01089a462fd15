package core

import (
	"context"
	"testing"
	"time"
)

type stubClock struct {
	t time.Time
}

func (c stubClock) Now() time.Time { return c.t }

func TestServiceOptionsCoverClockAndLogger(t *testing.T) {
	fixed := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	log := &captureLogger{}
	svc := NewInMemoryService(nil, WithClock(stubClock{t: fixed}), WithLogger(log))
	ctx := context.Background()

	if _, _, err := svc.CreateProbe(ctx, Probe{Path: "probes/wake.dat"}); err != nil {
		t.Fatalf("create probe: %v", err)
	}
	if _, err := svc.DeleteProbe(ctx, "missing"); err == nil {
		t.Fatal("expected error deleting unknown probe")
	}

	if svc.clock == nil {
		t.Fatal("clock option not applied")
	}
	if got := svc.clock.Now(); got.Unix() != fixed.Unix() {
		t.Errorf("clock now = %v, want %v", got, fixed)
	}
	if len(log.calls) == 0 {
		t.Error("expected logger to capture operation events")
	}
}

func TestServiceOptionsIgnoreNilValues(t *testing.T) {
	svc := NewInMemoryService(nil,
		nil,
		WithLogger(nil),
		WithClock(nil),
		WithAuditRecorder(nil),
		WithMetricsRecorder(nil),
		WithTracer(nil),
	)

	if _, ok := svc.logger.(noopLogger); !ok {
		t.Errorf("expected noop logger, got %T", svc.logger)
	}
	if _, ok := svc.audit.(noopAuditRecorder); !ok {
		t.Errorf("expected noop audit recorder, got %T", svc.audit)
	}
	if _, ok := svc.metrics.(noopMetricsRecorder); !ok {
		t.Errorf("expected noop metrics recorder, got %T", svc.metrics)
	}
	if _, ok := svc.tracer.(noopTracer); !ok {
		t.Errorf("expected noop tracer, got %T", svc.tracer)
	}
	if svc.clock != nil {
		t.Errorf("expected nil clock, got %T", svc.clock)
	}
}
