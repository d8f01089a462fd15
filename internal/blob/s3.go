package blob

import (
	"context"

	infraS3 "flowdeck/internal/infra/blob/s3"
)

// S3Config aliases the S3 backend configuration so publishing call sites can
// construct bucket-backed stores through the facade.
type S3Config = infraS3.Config

// NewS3 opens an S3-backed Store with an explicit configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// OpenFromEnv opens an S3 store configured from FLOWDECK_BLOB_S3_* variables.
func OpenFromEnv(ctx context.Context) (Store, error) {
	return infraS3.OpenFromEnv(ctx)
}

// NewMockS3ForTests exposes the offline S3 mock to cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
