// Package blob is the facade over the deck artifact backends. It re-exports
// the core storage contract and owns driver selection, so the rest of the
// tree never imports an infra package directly.
package blob

import "flowdeck/internal/blob/core"

type (
	// Driver names one of the compiled-in artifact backends.
	Driver = core.Driver
	// PutOptions carries the content type and metadata for a write.
	PutOptions = core.PutOptions
	// SignedURLOptions bounds the lifetime of a presigned link.
	SignedURLOptions = core.SignedURLOptions
	// Info is the stored artifact descriptor.
	Info = core.Info
	// Store is the contract every artifact backend implements.
	Store = core.Store
)

const (
	// DriverFilesystem stores artifacts under a local directory.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 stores artifacts in an S3-compatible bucket.
	DriverS3 = core.DriverS3
	// DriverMemory keeps artifacts in process memory for tests.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported reports an operation the active driver cannot serve.
var ErrUnsupported = core.ErrUnsupported

// ParseDriver maps a configuration string onto a Driver.
func ParseDriver(raw string) (Driver, error) { return core.ParseDriver(raw) }
