// Package core defines the storage contract shared by the deck artifact
// backends. Higher layers program against Store and stay ignorant of the
// driver behind it.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrUnsupported is returned when an optional capability is not available on
// the active driver.
var ErrUnsupported = errors.New("blob: operation not supported by this driver")

// Driver identifies a concrete artifact storage backend.
type Driver string

const (
	// DriverFilesystem stores artifacts under a local directory root.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores artifacts in an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory, for tests.
	DriverMemory Driver = "memory"
)

// Valid reports whether the driver names a known backend.
func (d Driver) Valid() bool {
	switch d {
	case DriverFilesystem, DriverS3, DriverMemory:
		return true
	}
	return false
}

// ParseDriver maps a configuration string onto a Driver. The empty string
// selects the filesystem driver.
func ParseDriver(raw string) (Driver, error) {
	if raw == "" {
		return DriverFilesystem, nil
	}
	d := Driver(raw)
	if !d.Valid() {
		return "", fmt.Errorf("unknown blob driver %s", raw)
	}
	return d, nil
}

// PutOptions carries the optional attributes stored with a new artifact.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions configures PresignURL. Method is GET or PUT; a zero
// Expiry falls back to the driver default.
type SignedURLOptions struct {
	Method  string
	Expiry  time.Duration
	Headers map[string]string
}

// Info describes a stored deck artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	URL          string            `json:"url,omitempty"`
}

// Store is the thin S3-like surface the publishing layer writes decks
// through. Put is create-only: a published deck is never silently replaced.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}
