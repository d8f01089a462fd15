// Package sqlite layers file durability over the in-memory store. Every
// successful commit snapshots the full configuration into a single SQLite
// table as JSON blobs, so a reopened store resumes exactly where the last
// session ended.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // database/sql driver registration

	"flowdeck/internal/deckmodel/sqlbundle"
	"flowdeck/internal/infra/persistence/memory"
	"flowdeck/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "flowdeck.db"

const stateTableDDL = `CREATE TABLE IF NOT EXISTS deck_state (
	section TEXT PRIMARY KEY,
	payload BLOB NOT NULL
)`

const stateUpsert = `INSERT INTO deck_state (section, payload) VALUES (?, ?)
	ON CONFLICT (section) DO UPDATE SET payload = excluded.payload`

// Store runs all reads and transactions against the embedded in-memory store
// and rewrites the snapshot table after each successful commit.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// sectionBinding ties one deck_state row to its slot in the snapshot. The
// same binding drives both persisting and hydrating.
type sectionBinding struct {
	name   string
	target func(*domain.Snapshot) any
}

var snapshotSections = []sectionBinding{
	{"geometry", func(s *domain.Snapshot) any { return &s.Geometry }},
	{"solver", func(s *domain.Snapshot) any { return &s.Solver }},
	{"fluid", func(s *domain.Snapshot) any { return &s.Fluid }},
	{"initial_conditions", func(s *domain.Snapshot) any { return &s.Initial }},
	{"boundary_files", func(s *domain.Snapshot) any { return &s.BoundaryFiles }},
	{"conditions", func(s *domain.Snapshot) any { return &s.Conditions }},
	{"motions", func(s *domain.Snapshot) any { return &s.Motions }},
	{"probes", func(s *domain.Snapshot) any { return &s.Probes }},
	{"surfaces", func(s *domain.Snapshot) any { return &s.Surfaces }},
}

// NewStore opens or creates the database file and hydrates the in-memory
// state from its last snapshot. An empty path selects flowdeck.db in the
// working directory.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	ctx := context.Background()
	if err := prepareSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, found, err := loadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	backing := memory.NewStore(engine)
	if found {
		if err := backing.ImportState(ctx, snapshot); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Store{Store: backing, db: db, path: path}, nil
}

// RunInTransaction applies fn within an in-memory transaction and snapshots
// the result to SQLite when it succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err == nil {
		err = s.persist(ctx)
	}
	return res, err
}

// ImportState replaces the stored configuration and snapshots it to SQLite.
func (s *Store) ImportState(ctx context.Context, snapshot domain.Snapshot) error {
	if err := s.Store.ImportState(ctx, snapshot); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DB returns the live handle so integration suites can inspect the schema.
func (s *Store) DB() *sql.DB { return s.db }

// Path reports the database file backing this store.
func (s *Store) Path() string { return s.path }

// Close releases the database handle. In-memory state stays readable.
func (s *Store) Close() error { return s.db.Close() }

// prepareSchema applies the generated deck-model DDL and creates the
// snapshot table the store writes through.
func prepareSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqlbundle.SQLiteStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply deck-model ddl: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, stateTableDDL); err != nil {
		return fmt.Errorf("create deck_state table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (domain.Snapshot, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT section, payload FROM deck_state`)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("read deck_state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := make(map[string][]byte)
	for rows.Next() {
		var section string
		var payload []byte
		if err := rows.Scan(&section, &payload); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("scan deck_state row: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		payloads[section] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("iterate deck_state: %w", err)
	}
	if len(payloads) == 0 {
		return domain.Snapshot{}, false, nil
	}

	var snapshot domain.Snapshot
	for _, binding := range snapshotSections {
		payload, ok := payloads[binding.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, binding.target(&snapshot)); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("decode section %s: %w", binding.name, err)
		}
	}
	return snapshot, true, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, err := s.Store.ExportState(ctx)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, binding := range snapshotSections {
		payload, err := json.Marshal(binding.target(&snapshot))
		if err != nil {
			return fmt.Errorf("encode section %s: %w", binding.name, err)
		}
		if _, err := tx.ExecContext(ctx, stateUpsert, binding.name, payload); err != nil {
			return fmt.Errorf("write section %s: %w", binding.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}
