package memory

import (
	"context"
	"testing"
	"time"

	"flowdeck/pkg/domain"
)

func TestMigrateSnapshotBackfillsStructure(t *testing.T) {
	migrated := migrateSnapshot(Snapshot{})

	defaults := domain.DefaultSnapshot()
	if migrated.Geometry.Element != defaults.Geometry.Element {
		t.Fatalf("expected element backfill, got %q", migrated.Geometry.Element)
	}
	if migrated.Solver.Simulation != defaults.Solver.Simulation || migrated.Solver.Linear != defaults.Solver.Linear {
		t.Fatalf("expected solver enum backfill, got %+v", migrated.Solver)
	}
	if migrated.Solver.Dimensions != defaults.Solver.Dimensions {
		t.Fatalf("expected dimension backfill, got %d", migrated.Solver.Dimensions)
	}
	if len(migrated.BoundaryFiles) != minBoundaryFiles {
		t.Fatalf("expected boundary file floor, got %d entries", len(migrated.BoundaryFiles))
	}
	if migrated.Solver.TimeStepSize != 0 {
		t.Fatalf("expected numeric fields to stay as provided, got %v", migrated.Solver.TimeStepSize)
	}
}

func TestMigrateSnapshotPreservesUserState(t *testing.T) {
	snapshot := domain.DefaultSnapshot()
	snapshot.Solver.Fluid = domain.FluidEuler
	snapshot.Solver.TimeStepSize = 0.002
	snapshot.BoundaryFiles = []BoundaryFile{{Path: "custom.dat"}, {Path: "other.dat"}}

	migrated := migrateSnapshot(snapshot)

	if migrated.Solver.Fluid != domain.FluidEuler {
		t.Fatalf("expected fluid equation to survive migration, got %q", migrated.Solver.Fluid)
	}
	if migrated.Solver.TimeStepSize != 0.002 {
		t.Fatalf("expected time step to survive migration, got %v", migrated.Solver.TimeStepSize)
	}
	if len(migrated.BoundaryFiles) != 2 {
		t.Fatalf("expected user boundary files to survive, got %d", len(migrated.BoundaryFiles))
	}
}

func TestAdoptSnapshotAssignsIdentity(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.nowFn = func() time.Time { return fixed }

	existing := domain.Base{ID: "keep-me", CreatedAt: fixed.Add(-time.Hour), UpdatedAt: fixed.Add(-time.Hour)}
	snapshot := domain.DefaultSnapshot()
	snapshot.BoundaryFiles = []BoundaryFile{
		{Base: existing, Path: "a.dat", Seq: 7},
		{Path: "b.dat"},
	}
	snapshot.Conditions = []BoundaryCondition{{Variable: domain.VarXVelocity, Kind: domain.KindDirichlet}}

	adopted := store.adoptSnapshot(snapshot)

	if adopted.BoundaryFiles[0].ID != "keep-me" {
		t.Fatalf("expected existing ID to survive adoption")
	}
	if !adopted.BoundaryFiles[0].CreatedAt.Equal(existing.CreatedAt) {
		t.Fatalf("expected existing timestamps to survive adoption")
	}
	if adopted.BoundaryFiles[0].Seq != 1 || adopted.BoundaryFiles[1].Seq != 2 {
		t.Fatalf("expected labels to be renumbered, got %d and %d", adopted.BoundaryFiles[0].Seq, adopted.BoundaryFiles[1].Seq)
	}
	if adopted.BoundaryFiles[1].ID == "" {
		t.Fatalf("expected generated ID for adopted record")
	}
	if !adopted.BoundaryFiles[1].CreatedAt.Equal(fixed) {
		t.Fatalf("expected adopted record to be stamped with store time")
	}
	if adopted.Conditions[0].ID == "" || adopted.Conditions[0].Seq != 1 {
		t.Fatalf("expected condition to be adopted, got %+v", adopted.Conditions[0])
	}
}

func TestImportStateRoundTrip(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateBoundaryFile(BoundaryFile{Path: "walls.dat"}); err != nil {
			return err
		}
		m := domain.DefaultPrescribedMotion()
		m.Tag = 3
		_, err := tx.CreateMotion(m)
		return err
	}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	exported, err := store.ExportState(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	replica := NewStore(nil)
	if err := replica.ImportState(ctx, exported); err != nil {
		t.Fatalf("import: %v", err)
	}

	restored, err := replica.ExportState(ctx)
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	want, err := exported.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint exported: %v", err)
	}
	got, err := restored.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint restored: %v", err)
	}
	if want != got {
		t.Fatalf("expected imported state to match exported state")
	}
}
