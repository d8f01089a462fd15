// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics while applying the generated deck-model DDL on
// startup.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver registration

	"flowdeck/internal/deckmodel/sqlbundle"
	"flowdeck/internal/infra/persistence/memory"
	"flowdeck/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	pgxDriver   = "pgx"
	fallbackDSN = "postgres://localhost/flowdeck?sslmode=disable"
)

const stateTableDDL = `CREATE TABLE IF NOT EXISTS deck_state (
	section TEXT PRIMARY KEY,
	payload JSONB NOT NULL
)`

const stateUpsert = `INSERT INTO deck_state (section, payload) VALUES ($1, $2)
	ON CONFLICT (section) DO UPDATE SET payload = EXCLUDED.payload`

// Store persists deck state to Postgres while reusing the in-memory
// implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
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

// NewStore opens a Postgres handle for the DSN, falling back to a local
// default, and prepares it as a deck store.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = fallbackDSN
	}
	db, err := sql.Open(pgxDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	store, err := NewStoreWithDB(db, engine)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreWithDB prepares the schema on an existing handle and hydrates the
// in-memory store from any persisted snapshot. Tests inject stub handles
// through here.
func NewStoreWithDB(db *sql.DB, engine *domain.RulesEngine) (*Store, error) {
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := prepareSchema(ctx, db); err != nil {
		return nil, err
	}
	snapshot, found, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	backing := memory.NewStore(engine)
	if found {
		if err := backing.ImportState(ctx, snapshot); err != nil {
			return nil, err
		}
	}
	return &Store{Store: backing, db: db}, nil
}

// RunInTransaction applies fn within an in-memory transaction and snapshots
// the result to Postgres when it succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err == nil {
		err = s.persist(ctx)
	}
	return res, err
}

// ImportState replaces the stored configuration and snapshots it to Postgres.
func (s *Store) ImportState(ctx context.Context, snapshot domain.Snapshot) error {
	if err := s.Store.ImportState(ctx, snapshot); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DB returns the live handle so integration suites can inspect the schema.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle. In-memory state stays readable.
func (s *Store) Close() error { return s.db.Close() }

// prepareSchema applies the generated deck-model DDL and creates the
// snapshot table the store writes through.
func prepareSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqlbundle.PostgresStatements() {
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
