// Package s3 implements the artifact store on an S3-compatible backend
// (AWS S3 or MinIO) for publishing decks to shared object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"flowdeck/internal/blob/core"
)

// defaultPresignExpiry applies when the caller leaves the expiry unset.
const defaultPresignExpiry = 15 * time.Minute

// Store implements core.Store on a single S3 bucket. Artifact keys map to
// object keys directly.
type Store struct {
	client  *s3.Client
	bucket  string
	presign *s3.PresignClient
	baseURL *url.URL
}

// Config holds explicit construction parameters. Deployments usually
// configure the store through the environment instead; see OpenFromEnv.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

func (c Config) region() string {
	if c.Region == "" {
		return "us-east-1"
	}
	return c.Region
}

// New creates an S3 artifact store from cfg. Static credentials in cfg take
// precedence over the default AWS chain; an Endpoint switches the client to
// a custom backend such as MinIO.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.region())}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	store := &Store{client: client, bucket: cfg.Bucket, presign: s3.NewPresignClient(client)}
	if cfg.Endpoint != "" {
		if u, err := url.Parse(cfg.Endpoint); err == nil {
			store.baseURL = u
		}
	}
	return store, nil
}

// OpenFromEnv constructs a store from FLOWDECK_BLOB_S3_* variables:
//
//	FLOWDECK_BLOB_S3_BUCKET      bucket name (required)
//	FLOWDECK_BLOB_S3_REGION      region, default us-east-1
//	FLOWDECK_BLOB_S3_ENDPOINT    custom endpoint, e.g. a MinIO URL
//	FLOWDECK_BLOB_S3_PATH_STYLE  true to force path-style addressing
//
// Credentials come from the standard AWS environment.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("FLOWDECK_BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, errors.New("FLOWDECK_BLOB_S3_BUCKET required for s3 driver")
	}
	return New(ctx, Config{
		Bucket:    bucket,
		Region:    os.Getenv("FLOWDECK_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("FLOWDECK_BLOB_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("FLOWDECK_BLOB_S3_PATH_STYLE"), "true"),
	})
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Put stores a new artifact. S3 PutObject overwrites silently, so an
// existence probe runs first to keep published decks immutable.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key}); err == nil {
		return core.Info{}, fmt.Errorf("artifact %s already exists", key)
	}
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: r}
	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.Info{}, err
	}
	return s.Head(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return core.Info{}, nil, err
	}
	return s.objectInfo(key, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified), out.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return core.Info{}, err
	}
	return s.objectInfo(key, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Delete removes key. S3 reports success for absent keys as well, so the
// returned bool cannot distinguish the two.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix})
	var infos []core.Info
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			infos = append(infos, core.Info{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				URL:          s.objectURL(key),
			})
		}
	}
	slices.SortFunc(infos, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return infos, nil
}

func (s *Store) PresignURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	signed, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: &s.bucket, Key: &key},
		func(po *s3.PresignOptions) { po.Expires = expiry })
	if err != nil {
		return "", err
	}
	return signed.URL, nil
}

func (s *Store) objectInfo(key string, size *int64, contentType, etag *string, metadata map[string]string, modified *time.Time) core.Info {
	info := core.Info{
		Key:          key,
		Size:         aws.ToInt64(size),
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), `"`),
		Metadata:     metadata,
		LastModified: time.Now().UTC(),
		URL:          s.objectURL(key),
	}
	if modified != nil {
		info.LastModified = modified.UTC()
	}
	return info
}

// objectURL reports the unsigned object URL when an explicit endpoint is
// configured, matching what a MinIO console shows. Empty otherwise.
func (s *Store) objectURL(key string) string {
	if s.baseURL == nil {
		return ""
	}
	return s.baseURL.JoinPath(s.bucket, key).String()
}
