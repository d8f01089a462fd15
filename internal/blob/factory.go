package blob

import (
	"context"
	"os"

	"flowdeck/internal/infra/blob/fs"
	memorystore "flowdeck/internal/infra/blob/memory"
)

// Open selects the artifact store from the environment:
//
//	FLOWDECK_BLOB_DRIVER: fs|s3|memory (default fs)
//	FLOWDECK_BLOB_FS_ROOT: directory root for the fs driver (default ./deckdata)
//
// The S3 driver reads its own FLOWDECK_BLOB_S3_* variables, see s3.go.
func Open(ctx context.Context) (Store, error) {
	driver, err := ParseDriver(os.Getenv("FLOWDECK_BLOB_DRIVER"))
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverS3:
		return OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return NewFilesystem(os.Getenv("FLOWDECK_BLOB_FS_ROOT"))
	}
}

// NewFilesystem roots a filesystem-backed Store at root. An empty root uses
// the fs driver default.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory Store for tests.
func NewMemory() Store { return memorystore.New() }
