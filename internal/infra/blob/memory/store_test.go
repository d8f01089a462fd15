package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"flowdeck/internal/blob/core"
)

func TestPutAssignsDigestETag(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "decks/job-1/inputFile.txt", strings.NewReader("deck"), core.PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"fingerprint": "f1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "decks/job-1/inputFile.txt" || info.Size != 4 {
		t.Fatalf("unexpected info %+v", info)
	}
	if len(info.ETag) != 64 {
		t.Fatalf("etag should be a sha256 hex digest, got %q", info.ETag)
	}
	if info.LastModified.IsZero() || info.LastModified.Location() != time.UTC {
		t.Fatalf("timestamp should be UTC, got %v", info.LastModified)
	}

	same, err := New().Put(ctx, "other", strings.NewReader("deck"), core.PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if same.ETag != info.ETag {
		t.Fatal("equal payloads should produce equal etags")
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "decks/job-1/inputFile.txt", strings.NewReader("v1"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := store.Put(ctx, "decks/job-1/inputFile.txt", strings.NewReader("v2"), core.PutOptions{})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected create-only rejection, got %v", err)
	}
}

func TestGetHeadDeleteLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	put, err := store.Put(ctx, "decks/job-1/inputFile.txt", strings.NewReader("deck"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	head, err := store.Head(ctx, "decks/job-1/inputFile.txt")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "text/plain" || head.ETag != put.ETag {
		t.Fatalf("head diverged from put: %+v", head)
	}

	got, rc, err := store.Get(ctx, "decks/job-1/inputFile.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "deck" || got.Size != 4 {
		t.Fatalf("payload round trip failed: %q %+v", body, got)
	}

	ok, err := store.Delete(ctx, "decks/job-1/inputFile.txt")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = store.Delete(ctx, "decks/job-1/inputFile.txt")
	if err != nil || ok {
		t.Fatalf("second delete should report missing: ok=%v err=%v", ok, err)
	}
	if _, err := store.Head(ctx, "decks/job-1/inputFile.txt"); err == nil {
		t.Fatal("head after delete should fail")
	}
	if _, _, err := store.Get(ctx, "decks/job-1/inputFile.txt"); err == nil {
		t.Fatal("get after delete should fail")
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"decks/b/inputFile.txt", "decks/a/inputFile.txt", "runs/r/log.txt"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"decks/a/inputFile.txt", "decks/b/inputFile.txt", "runs/r/log.txt"}
	for i, info := range all {
		if info.Key != want[i] {
			t.Fatalf("list order: got %q at %d, want %q", info.Key, i, want[i])
		}
	}

	decks, err := store.List(ctx, "decks/")
	if err != nil || len(decks) != 2 {
		t.Fatalf("prefix filter: err=%v got=%+v", err, decks)
	}
	none, err := store.List(ctx, "zzz")
	if err != nil || len(none) != 0 {
		t.Fatalf("unmatched prefix should be empty: err=%v got=%+v", err, none)
	}
}

func TestPresignUnsupported(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestStoredStateIsIsolated(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("original")), core.PutOptions{Metadata: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}

	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	body[0] = 'X'
	info.Metadata["a"] = "mutated"

	again, rc2, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	b2, _ := io.ReadAll(rc2)
	_ = rc2.Close()
	if string(b2) != "original" || again.Metadata["a"] != "1" {
		t.Fatal("stored copy must be isolated from callers")
	}
}
