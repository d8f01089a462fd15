package decks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"flowdeck/internal/blob"
)

// BlobObjectStore adapts a blob.Store (fs, memory or S3) to the ObjectStore
// interface the worker publishes through.
type BlobObjectStore struct {
	store blob.Store
}

// NewBlobObjectStore wraps the provided blob store.
func NewBlobObjectStore(store blob.Store) *BlobObjectStore {
	return &BlobObjectStore{store: store}
}

var _ ObjectStore = (*BlobObjectStore)(nil)

// Put stores the payload under key, create-only.
func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]string) (DeckArtifact, error) {
	info, err := s.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType, Metadata: metadata})
	if err != nil {
		return DeckArtifact{}, err
	}
	return artifactFromInfo(info), nil
}

// Get returns the artifact metadata and full payload bytes.
func (s *BlobObjectStore) Get(ctx context.Context, key string) (DeckArtifact, []byte, error) {
	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return DeckArtifact{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return DeckArtifact{}, nil, err
	}
	return artifactFromInfo(info), payload, nil
}

// Delete removes the artifact; returns true if it existed.
func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, key)
}

// List returns artifacts under prefix in ascending key order.
func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]DeckArtifact, error) {
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]DeckArtifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, artifactFromInfo(info))
	}
	return out, nil
}

func artifactFromInfo(info blob.Info) DeckArtifact {
	return DeckArtifact{
		Key:         info.Key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         info.URL,
		Metadata:    maps.Clone(info.Metadata),
		CreatedAt:   info.LastModified,
	}
}

// MemoryObjectStore keeps published artifacts in process memory. Tests and
// disk-free smoke runs use it in place of a real backend.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	artifact DeckArtifact
	data     []byte
}

// snapshot returns the artifact with its metadata map detached from the
// stored one.
func (o memObject) snapshot() DeckArtifact {
	artifact := o.artifact
	artifact.Metadata = maps.Clone(artifact.Metadata)
	return artifact
}

// NewMemoryObjectStore returns an empty in-memory store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]memObject)}
}

var _ ObjectStore = (*MemoryObjectStore)(nil)

// Put stores payload under key. Keys are create-only, matching the real
// backends.
func (s *MemoryObjectStore) Put(_ context.Context, key string, payload []byte, contentType string, metadata map[string]string) (DeckArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return DeckArtifact{}, fmt.Errorf("artifact %s already exists", key)
	}
	obj := memObject{
		artifact: DeckArtifact{
			Key:         key,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			URL:         "memory://" + key,
			Metadata:    maps.Clone(metadata),
			CreatedAt:   time.Now().UTC(),
		},
		data: bytes.Clone(payload),
	}
	s.objects[key] = obj
	return obj.snapshot(), nil
}

// Get returns the stored artifact and a copy of its payload.
func (s *MemoryObjectStore) Get(_ context.Context, key string) (DeckArtifact, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return DeckArtifact{}, nil, fmt.Errorf("artifact %s not found", key)
	}
	return obj.snapshot(), bytes.Clone(obj.data), nil
}

// Delete removes key and reports whether it was present.
func (s *MemoryObjectStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

// List returns artifacts under prefix in ascending key order. An empty prefix
// lists everything.
func (s *MemoryObjectStore) List(_ context.Context, prefix string) ([]DeckArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DeckArtifact
	for key, obj := range s.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, obj.snapshot())
	}
	slices.SortFunc(out, func(a, b DeckArtifact) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

// Objects lists everything in the store, for test assertions.
func (s *MemoryObjectStore) Objects() []DeckArtifact {
	artifacts, _ := s.List(context.Background(), "")
	return artifacts
}

// MemoryAuditLog collects publish audit entries for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record appends entry to the log.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of everything recorded so far.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}
