package decks

import (
	"context"
	"testing"
	"time"

	"flowdeck/pkg/domain"
)

func TestWorkerStopIsIdempotent(t *testing.T) {
	w := NewWorker(stubSource{snapshot: domain.DefaultSnapshot()}, NewMemoryObjectStore(), nil)
	w.Start()
	if _, err := w.EnqueuePublish(context.Background(), PublishInput{Label: "stop-check"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		if err := w.Stop(ctx); err != nil {
			t.Fatalf("stop call %d: %v", i+1, err)
		}
	}
}

func TestWorkerStopHonorsCanceledContext(t *testing.T) {
	w := NewWorker(stubSource{snapshot: domain.DefaultSnapshot()}, NewMemoryObjectStore(), nil)
	w.Start()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The drain may win the race against the canceled context; only require
	// that Stop returns.
	done := make(chan error, 1)
	go func() { done <- w.Stop(ctx) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop never returned")
	}
}
