package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"flowdeck/internal/deckmodel/sqlbundle"
	"flowdeck/internal/infra/persistence/postgres/pgstub"
	"flowdeck/pkg/domain"
)

func newStubStore(t *testing.T, engine *domain.RulesEngine) (*Store, *pgstub.Conn) {
	t.Helper()
	db, conn := pgstub.Open()
	store, err := NewStoreWithDB(db, engine)
	if err != nil {
		t.Fatalf("NewStoreWithDB: %v", err)
	}
	return store, conn
}

func TestNewStoreWithDBPreparesSchema(t *testing.T) {
	_, conn := newStubStore(t, domain.NewRulesEngine())

	bundle := sqlbundle.PostgresStatements()
	if len(conn.Statements) < len(bundle)+1 {
		t.Fatalf("expected %d bundle statements plus deck_state DDL, got %d", len(bundle), len(conn.Statements))
	}
	for i, stmt := range bundle {
		if strings.TrimSpace(conn.Statements[i]) != strings.TrimSpace(stmt) {
			t.Fatalf("statement %d mismatch:\nwant: %s\ngot:  %s", i, strings.TrimSpace(stmt), strings.TrimSpace(conn.Statements[i]))
		}
	}
	if !strings.Contains(conn.Statements[len(bundle)], "deck_state") {
		t.Fatalf("expected deck_state DDL after the bundle, got %q", conn.Statements[len(bundle)])
	}
}

func TestNewStoreWithDBSeedsDefaults(t *testing.T) {
	store, _ := newStubStore(t, domain.NewRulesEngine())

	if got := len(store.ListBoundaryFiles()); got != 1 {
		t.Errorf("expected seeded boundary file placeholder, got %d entries", got)
	}
	if got := store.Fluid().Density; got != 1000 {
		t.Errorf("expected default density 1000, got %v", got)
	}
}

func TestNewStoreWithDBLoadsSnapshot(t *testing.T) {
	db, conn := pgstub.Open()
	fluid, err := json.Marshal(domain.FluidProperties{Density: 998.2, Velocity: 2, Viscosity: 1e-3, Length: 1, Gamma: 1.4, SpeedOfSound: 1481})
	if err != nil {
		t.Fatalf("marshal fluid: %v", err)
	}
	probes, err := json.Marshal([]domain.Probe{{Base: domain.Base{ID: "p1"}, Seq: 1, Path: "probes/wake.dat"}})
	if err != nil {
		t.Fatalf("marshal probes: %v", err)
	}
	conn.State["fluid"] = fluid
	conn.State["probes"] = probes

	store, err := NewStoreWithDB(db, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStoreWithDB: %v", err)
	}
	if got := store.Fluid().Density; got != 998.2 {
		t.Errorf("density = %v, want 998.2", got)
	}
	loaded := store.ListProbes()
	if len(loaded) != 1 || loaded[0].ID != "p1" || loaded[0].Path != "probes/wake.dat" {
		t.Fatalf("unexpected probes %+v", loaded)
	}
	if got := len(store.ListBoundaryFiles()); got != 1 {
		t.Errorf("expected boundary file floor restored on load, got %d entries", got)
	}
}

func TestNewStoreWithDBPingFailure(t *testing.T) {
	db, conn := pgstub.Open()
	conn.PingErr = errors.New("connection refused")

	if _, err := NewStoreWithDB(db, nil); err == nil {
		t.Fatal("expected ping error")
	} else if !strings.Contains(err.Error(), "connect to postgres") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestNewStoreWithDBSurfacesDDLError(t *testing.T) {
	db, conn := pgstub.Open()
	conn.ExecErr = errors.New("syntax error")

	if _, err := NewStoreWithDB(db, nil); err == nil || !strings.Contains(err.Error(), "apply deck-model ddl") {
		t.Fatalf("expected ddl error, got %v", err)
	}
}

func TestNewStoreWithDBRejectsCorruptSection(t *testing.T) {
	db, conn := pgstub.Open()
	conn.State["fluid"] = []byte(`{not json`)

	if _, err := NewStoreWithDB(db, nil); err == nil || !strings.Contains(err.Error(), "decode section fluid") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNewStoreWithDBSurfacesRowIterationError(t *testing.T) {
	db, conn := pgstub.Open()
	conn.State["fluid"] = []byte(`{}`)
	conn.IterErr = errors.New("stream cut")

	if _, err := NewStoreWithDB(db, nil); err == nil || !strings.Contains(err.Error(), "iterate deck_state") {
		t.Fatalf("expected iteration error, got %v", err)
	}
}

func TestNewStoreRejectsMalformedDSN(t *testing.T) {
	if _, err := NewStore("://nope", nil); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestRunInTransactionPersistsState(t *testing.T) {
	store, conn := newStubStore(t, domain.NewRulesEngine())
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateProbe(domain.Probe{Path: "probes/tip.dat"})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	for _, binding := range snapshotSections {
		if _, ok := conn.State[binding.name]; !ok {
			t.Errorf("section %s not persisted", binding.name)
		}
	}
	var persisted []domain.Probe
	if err := json.Unmarshal(conn.State["probes"], &persisted); err != nil {
		t.Fatalf("decode probes: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Path != "probes/tip.dat" {
		t.Fatalf("unexpected persisted probes %+v", persisted)
	}
}

func TestRunInTransactionSurfacesWriteError(t *testing.T) {
	store, conn := newStubStore(t, domain.NewRulesEngine())
	conn.WriteErrs = map[string]error{"geometry": errors.New("disk full")}

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProbe(domain.Probe{Path: "probes/tip.dat"})
		return err
	})
	if err == nil {
		t.Fatal("expected persist error")
	}
	if !strings.Contains(err.Error(), "write section geometry") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestImportStatePersists(t *testing.T) {
	store, conn := newStubStore(t, nil)
	ctx := context.Background()

	snapshot, err := store.ExportState(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	snapshot.Fluid.Density = 1.225
	if err := store.ImportState(ctx, snapshot); err != nil {
		t.Fatalf("import: %v", err)
	}

	var persisted domain.FluidProperties
	if err := json.Unmarshal(conn.State["fluid"], &persisted); err != nil {
		t.Fatalf("decode fluid: %v", err)
	}
	if persisted.Density != 1.225 {
		t.Errorf("persisted density = %v, want 1.225", persisted.Density)
	}
}

func TestPersistSurfacesBeginError(t *testing.T) {
	store, conn := newStubStore(t, nil)
	conn.BeginErr = errors.New("too many connections")

	snapshot, err := store.ExportState(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	err = store.ImportState(context.Background(), snapshot)
	if err == nil || !strings.Contains(err.Error(), "begin snapshot tx") {
		t.Fatalf("expected begin error, got %v", err)
	}
}

func TestPersistSurfacesCommitError(t *testing.T) {
	store, conn := newStubStore(t, nil)
	conn.CommitErr = errors.New("commit rejected")

	snapshot, err := store.ExportState(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	err = store.ImportState(context.Background(), snapshot)
	if err == nil || !strings.Contains(err.Error(), "commit snapshot") {
		t.Fatalf("expected commit error, got %v", err)
	}
}
