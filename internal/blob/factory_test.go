package blob

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
)

func TestFactory_Memory(t *testing.T) {
	t.Setenv("FLOWDECK_BLOB_DRIVER", "memory")
	bs, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if bs.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", bs.Driver())
	}
}

func TestFactory_DefaultFilesystem(t *testing.T) {
	ctx := context.Background()
	_ = os.Unsetenv("FLOWDECK_BLOB_DRIVER")
	dir := t.TempDir()
	t.Setenv("FLOWDECK_BLOB_FS_ROOT", dir)
	bs, err := Open(ctx)
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if bs.Driver() != DriverFilesystem {
		t.Fatalf("expected filesystem driver, got %s", bs.Driver())
	}
	if _, err := bs.Head(ctx, "decks/missing/inputFile.txt"); err == nil {
		t.Fatalf("expected head error for missing artifact")
	}
}

func TestFactory_InvalidDriver(t *testing.T) {
	t.Setenv("FLOWDECK_BLOB_DRIVER", "invalid")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error for invalid driver")
	}
}

func TestFactory_S3RequiresBucket(t *testing.T) {
	t.Setenv("FLOWDECK_BLOB_DRIVER", "s3")
	_ = os.Unsetenv("FLOWDECK_BLOB_S3_BUCKET")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error without bucket")
	}
}

// TestStoreRoundTripViaInterface exercises the interface surface the deck
// publishing layer relies on, independent of the backing driver.
func TestStoreRoundTripViaInterface(t *testing.T) {
	ctx := context.Background()
	bs := NewMemory()
	deck := []byte("Number of dimensions             : 2\n")
	info, err := bs.Put(ctx, "decks/job-1/inputFile.txt", bytes.NewReader(deck), PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(deck)) {
		t.Fatalf("unexpected size %d", info.Size)
	}
	if _, err := bs.Put(ctx, "decks/job-1/inputFile.txt", bytes.NewReader(deck), PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}
	got, rc, err := bs.Get(ctx, "decks/job-1/inputFile.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	payload, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(payload, deck) || got.ContentType != "text/plain" {
		t.Fatalf("round trip mismatch: %q %q", payload, got.ContentType)
	}
	list, err := bs.List(ctx, "decks/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	ok, err := bs.Delete(ctx, "decks/job-1/inputFile.txt")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}
