package memory

import (
	"context"
	"fmt"
	"testing"

	"flowdeck/pkg/domain"
)

func TestTransactionCommitMakesStateVisible(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, ok := tx.Snapshot().FindCondition("missing"); ok {
			t.Fatalf("lookup hit before anything was created")
		}
		created, err := tx.CreateCondition(domain.BoundaryCondition{
			Variable: domain.VarXVelocity,
			Kind:     domain.KindDirichlet,
			Value:    1.5,
		})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("condition came back without an id")
		}
		if created.Seq != 1 {
			t.Fatalf("first condition carries seq %d, want 1", created.Seq)
		}
		if n := len(tx.Snapshot().ListConditions()); n != 1 {
			t.Fatalf("transaction snapshot lists %d conditions, want 1", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if n := len(store.ListConditions()); n != 1 {
		t.Fatalf("committed condition not visible, listing has %d", n)
	}
	if store.RulesEngine() == nil {
		t.Fatal("store should fall back to a default rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatal("store should expose its clock")
	}
}

func TestImportEmptySnapshotReseedsDefaults(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCondition(domain.BoundaryCondition{Variable: domain.VarXVelocity, Kind: domain.KindDirichlet, Value: 1.5})
		return err
	}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	saved, err := store.ExportState(ctx)
	if err != nil {
		t.Fatalf("export state: %v", err)
	}
	if err := store.ImportState(ctx, Snapshot{}); err != nil {
		t.Fatalf("import empty state: %v", err)
	}
	if n := len(store.ListConditions()); n != 0 {
		t.Fatalf("conditions survive the empty import, listing has %d", n)
	}
	if n := len(store.ListBoundaryFiles()); n != minBoundaryFiles {
		t.Fatalf("empty import should reseed the boundary file floor, got %d", n)
	}
	if err := store.ImportState(ctx, saved); err != nil {
		t.Fatalf("import saved state: %v", err)
	}
	if n := len(store.ListConditions()); n != 1 {
		t.Fatalf("saved state did not come back, listing has %d", n)
	}
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(denyAllRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateProbe(domain.Probe{Path: "probe.dat"})
		return e
	})
	if err == nil {
		t.Fatal("commit should fail while a deny rule is registered")
	}
	if len(store.ListProbes()) != 0 {
		t.Fatal("aborted transaction left a probe behind")
	}
}

type denyAllRule struct{}

func (denyAllRule) Name() string { return "deny-writes" }

func (denyAllRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "deny-writes", Severity: domain.SeverityBlock}}}, nil
}

func TestUpdateBoundaryFileErrors(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateBoundaryFile("missing", func(*domain.BoundaryFile) error { return nil }); err == nil {
			t.Fatalf("update of an unknown id should fail")
		}
		f, err := tx.CreateBoundaryFile(domain.BoundaryFile{Path: "walls.dat"})
		if err != nil {
			return err
		}
		if _, err := tx.UpdateBoundaryFile(f.ID, func(*domain.BoundaryFile) error { return fmt.Errorf("boom") }); err == nil {
			t.Fatalf("mutator failure should surface")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestSetSolverRejectsUnknownMembers(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		cfg := tx.Snapshot().Solver()
		cfg.Fluid = "plasma"
		_, err := tx.SetSolver(cfg)
		return err
	})
	if err == nil {
		t.Fatalf("unknown fluid equation should be rejected")
	}
	if store.Solver().Fluid == "plasma" {
		t.Fatalf("rejected solver update leaked into the store")
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		cfg := tx.Snapshot().Solver()
		cfg.Dimensions = 4
		_, err := tx.SetSolver(cfg)
		return err
	})
	if err == nil {
		t.Fatalf("unsupported dimension count should be rejected")
	}
}

func TestSetGeometryRejectsUnknownElement(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.SetGeometry(domain.GeometrySettings{Element: "hexahedron"})
		return err
	})
	if err == nil {
		t.Fatalf("unknown element type should be rejected")
	}
}

func TestCheckConditionGuards(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateCondition(domain.BoundaryCondition{Variable: "vorticity", Kind: domain.KindDirichlet}); err == nil {
			t.Fatalf("unknown variable should be rejected")
		}
		if _, err := tx.CreateCondition(domain.BoundaryCondition{Variable: domain.VarXVelocity, Kind: "neumann"}); err == nil {
			t.Fatalf("unknown kind should be rejected")
		}
		if _, err := tx.CreateCondition(domain.BoundaryCondition{Variable: domain.VarXVelocity, Kind: domain.KindDirichlet, MotionTag: -2}); err == nil {
			t.Fatalf("negative motion tag should be rejected")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}
