// Package decks publishes rendered solver decks to object storage. A Worker
// consumes publish requests asynchronously, renders the current configuration
// snapshot and stores the deck text under a per-request key, tracking each
// request through a queued/running/succeeded/failed lifecycle with an audit
// trail.
package decks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"flowdeck/internal/deck"
	"flowdeck/internal/deckmodel"
	"flowdeck/pkg/domain"
)

// PublishStatus is the lifecycle stage of a publish request. A request moves
// from queued through running to either succeeded or failed.
type PublishStatus string

const (
	PublishStatusQueued    PublishStatus = "queued"
	PublishStatusRunning   PublishStatus = "running"
	PublishStatusSucceeded PublishStatus = "succeeded"
	PublishStatusFailed    PublishStatus = "failed"
)

// DeckArtifact describes one stored deck: where it lives, how it was rendered
// and how big it is.
type DeckArtifact struct {
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// PublishRecord is the full state of one publish request, from intake to its
// terminal status.
type PublishRecord struct {
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Status      PublishStatus      `json:"status"`
	Error       string             `json:"error,omitempty"`
	Warnings    []domain.Violation `json:"warnings,omitempty"`
	Artifact    *DeckArtifact      `json:"artifact,omitempty"`
	RequestedBy string             `json:"requested_by"`
	Reason      string             `json:"reason,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// PublishInput carries the caller-supplied fields of a publish request.
type PublishInput struct {
	Label       string
	RequestedBy string
	Reason      string
}

// DeckPublisher accepts publish requests and reports their progress.
type DeckPublisher interface {
	EnqueuePublish(ctx context.Context, input PublishInput) (PublishRecord, error)
	GetPublish(id string) (PublishRecord, bool)
}

// SnapshotSource supplies the configuration snapshot to publish.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// ObjectStore is the artifact backend the worker writes decks to.
type ObjectStore interface {
	// Put writes payload under a fresh key. Backends reject keys that already
	// exist so published decks stay immutable.
	Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]string) (DeckArtifact, error)
	// Get loads the artifact descriptor together with the deck bytes.
	Get(ctx context.Context, key string) (DeckArtifact, []byte, error)
	// Delete removes key, reporting whether anything was there.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns descriptors for every key under prefix; "" matches all.
	List(ctx context.Context, prefix string) ([]DeckArtifact, error)
}

// AuditLogger receives one entry per status change. Implementations must be
// safe for concurrent use.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry is a single line in the publish audit trail.
type AuditEntry struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor"`
	Label      string            `json:"label"`
	Status     PublishStatus     `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

const (
	auditAction     = "deck_publish"
	deckContentType = "text/plain"
	defaultLabel    = "deck"

	renderCacheSize = 64
	queueCapacity   = 32
)

// errQueueFull reports that the intake channel is at capacity.
var errQueueFull = errors.New("publish queue full")

var _ DeckPublisher = (*Worker)(nil)

// renderedDeck pairs cached deck bytes with the warnings produced when the
// snapshot was validated; both are deterministic for a given fingerprint.
type renderedDeck struct {
	payload  []byte
	warnings []domain.Violation
}

// Worker renders and stores decks in the background. Requests enter through
// EnqueuePublish; progress is visible through GetPublish and the audit trail.
type Worker struct {
	source SnapshotSource
	store  ObjectStore
	audit  AuditLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	queue chan string
	cache *lru.Cache[string, renderedDeck]

	mu   sync.RWMutex
	jobs map[string]*PublishRecord
}

// NewWorker wires a publish worker to its snapshot source, artifact store and
// audit sink. store and audit may be nil: without a store every publish fails
// when it runs, without an audit sink the trail is dropped.
func NewWorker(source SnapshotSource, store ObjectStore, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	cache, _ := lru.New[string, renderedDeck](renderCacheSize)
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan string, queueCapacity),
		cache:  cache,
		jobs:   make(map[string]*PublishRecord),
	}
}

// Start launches the run loop in the background.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				return
			case id := <-w.queue:
				w.run(id)
			}
		}
	}()
}

// Stop cancels the run loop and waits for it to drain, giving up when ctx
// expires. Stopping an already stopped worker is harmless.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		w.wg.Wait()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-drained:
		return nil
	}
}

// EnqueuePublish registers a publish request and hands it to the run loop. The
// returned record reflects the queued state; poll GetPublish to follow the
// request to completion.
func (w *Worker) EnqueuePublish(ctx context.Context, input PublishInput) (PublishRecord, error) {
	if w.source == nil {
		return PublishRecord{}, errors.New("snapshot source not configured")
	}
	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = defaultLabel
	}

	now := time.Now().UTC()
	record := &PublishRecord{
		ID:          newID(),
		Label:       label,
		Status:      PublishStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.jobs[record.ID] = record
	queued := record.copy()
	w.mu.Unlock()

	w.note(ctx, queued, nil)

	select {
	case w.queue <- queued.ID:
	default:
		w.settle(queued.ID, nil, errQueueFull)
		return PublishRecord{}, errQueueFull
	}
	return queued, nil
}

// GetPublish reports the current state of one request.
func (w *Worker) GetPublish(id string) (PublishRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return PublishRecord{}, false
	}
	return record.copy(), true
}

// ListPublishes returns every known request, oldest first.
func (w *Worker) ListPublishes() []PublishRecord {
	w.mu.RLock()
	out := make([]PublishRecord, 0, len(w.jobs))
	for _, record := range w.jobs {
		out = append(out, record.copy())
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b PublishRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// run drives one request from running to its terminal status.
func (w *Worker) run(id string) {
	record, ok := w.mutate(id, func(r *PublishRecord) {
		r.Status = PublishStatusRunning
	})
	if !ok {
		return
	}
	w.note(w.ctx, record, nil)

	artifact, err := w.publish(id)
	w.settle(id, artifact, err)
}

// publish renders the current snapshot and stores the deck text. Renders are
// cached per fingerprint, so repeat publishes of an unchanged configuration
// reuse the previous bytes instead of rendering again.
func (w *Worker) publish(id string) (*DeckArtifact, error) {
	if w.store == nil {
		return nil, errors.New("object store not configured")
	}
	snapshot, err := w.source.Snapshot(w.ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	fingerprint, err := snapshot.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fingerprint snapshot: %w", err)
	}
	w.mutate(id, func(r *PublishRecord) { r.Fingerprint = fingerprint })

	rendered, fromCache := w.cache.Get(fingerprint)
	if !fromCache {
		text, res, err := deck.Render(snapshot)
		if err != nil {
			return nil, err
		}
		rendered = renderedDeck{payload: []byte(text), warnings: res.Warnings()}
		w.cache.Add(fingerprint, rendered)
	}
	var label string
	w.mutate(id, func(r *PublishRecord) {
		r.Warnings = slices.Clone(rendered.warnings)
		label = r.Label
	})

	meta := map[string]string{
		"fingerprint": fingerprint,
		"label":       label,
	}
	if version := deckmodel.Version(); version != "" {
		meta["deck_model"] = version
	}
	if fromCache {
		meta["render"] = "cached"
	}
	stored, err := w.store.Put(w.ctx, artifactKey(id), rendered.payload, deckContentType, meta)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	if stored.ContentType == "" {
		stored.ContentType = deckContentType
	}
	if stored.SizeBytes == 0 {
		stored.SizeBytes = int64(len(rendered.payload))
	}
	return &stored, nil
}

// artifactKey derives the storage key for a publish request. Decks keep the
// solver's conventional filename so a downloaded artifact is runnable as-is.
func artifactKey(id string) string {
	return fmt.Sprintf("decks/%s/%s", id, deck.DefaultFilename)
}

// mutate applies fn to the live record under the write lock, stamping
// UpdatedAt first so fn can reuse the timestamp. The detached copy it returns
// is safe to hand to the audit trail; ok is false for unknown ids.
func (w *Worker) mutate(id string, fn func(*PublishRecord)) (PublishRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return PublishRecord{}, false
	}
	record.UpdatedAt = time.Now().UTC()
	fn(record)
	return record.copy(), true
}

// settle writes the terminal state for a request. A non-nil err marks it
// failed; otherwise artifact is what was stored.
func (w *Worker) settle(id string, artifact *DeckArtifact, err error) {
	record, ok := w.mutate(id, func(r *PublishRecord) {
		done := r.UpdatedAt
		r.CompletedAt = &done
		if err != nil {
			r.Status = PublishStatusFailed
			r.Error = err.Error()
			return
		}
		r.Status = PublishStatusSucceeded
		r.Error = ""
		r.Artifact = artifact
	})
	if !ok {
		return
	}
	var meta map[string]string
	switch {
	case err != nil:
		meta = map[string]string{"error": err.Error()}
	case artifact != nil:
		meta = map[string]string{"key": artifact.Key}
	}
	w.note(w.ctx, record, meta)
}

// note appends one audit entry reflecting the request's current state. meta
// carries step detail: the stored key on success, the reason on failure.
func (w *Worker) note(ctx context.Context, record PublishRecord, meta map[string]string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		Action:     auditAction,
		Actor:      record.RequestedBy,
		Label:      record.Label,
		Status:     record.Status,
		Reason:     record.Reason,
		Metadata:   meta,
		OccurredAt: record.UpdatedAt,
	})
}

// copy detaches the record from the worker's mutable state.
func (r PublishRecord) copy() PublishRecord {
	out := r
	out.Warnings = slices.Clone(r.Warnings)
	if r.Artifact != nil {
		artifact := *r.Artifact
		artifact.Metadata = maps.Clone(artifact.Metadata)
		out.Artifact = &artifact
	}
	return out
}

// newID returns a random 160-bit identifier in hex.
func newID() string {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random id bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
