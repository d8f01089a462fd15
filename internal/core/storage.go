package core

import (
	"fmt"
	"os"

	"flowdeck/internal/infra/persistence/memory"
	"flowdeck/internal/infra/persistence/postgres"
	"flowdeck/internal/infra/persistence/sqlite"
	"flowdeck/pkg/domain"
)

// StorageDriver names the configured session store backend.
type StorageDriver string

const (
	// StorageMemory keeps sessions in process memory, for tests and
	// ephemeral authoring runs.
	StorageMemory StorageDriver = "memory"
	// StorageSQLite persists sessions to an embedded sqlite file, the
	// default for single-host deployments.
	StorageSQLite StorageDriver = "sqlite"
	// StoragePostgres persists sessions to a PostgreSQL server.
	StoragePostgres StorageDriver = "postgres"
)

// ParseStorageDriver maps raw configuration to a StorageDriver. Empty input
// selects sqlite.
func ParseStorageDriver(raw string) (StorageDriver, error) {
	switch d := StorageDriver(raw); d {
	case "":
		return StorageSQLite, nil
	case StorageMemory, StorageSQLite, StoragePostgres:
		return d, nil
	default:
		return "", fmt.Errorf("unknown storage driver %s", raw)
	}
}

// Persistence contracts, re-exported from the domain package for the service
// layer.
type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// OpenPersistentStore selects a backend from the environment:
//
//	FLOWDECK_STORAGE_DRIVER  memory|sqlite|postgres (default sqlite)
//	FLOWDECK_SQLITE_PATH     sqlite file path (default ./flowdeck.db)
//	FLOWDECK_POSTGRES_DSN    postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver, err := ParseStorageDriver(os.Getenv("FLOWDECK_STORAGE_DRIVER"))
	if err != nil {
		return nil, err
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("FLOWDECK_POSTGRES_DSN"), engine)
	default:
		return sqlite.NewStore(os.Getenv("FLOWDECK_SQLITE_PATH"), engine)
	}
}
