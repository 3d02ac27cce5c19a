// Package s3 publishes bundle archives to S3-compatible object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	DefaultRegion = "us-east-1"
	DefaultBucket = "plotline-artifacts"
	// DefaultURLExpiry is how long a published archive link stays valid.
	DefaultURLExpiry = time.Hour
)

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

// objectAPI is the subset of *minio.Client the publisher uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (*url.URL, error)
}

// Publisher implements ports.ArchivePublisher.
type Publisher struct {
	client objectAPI
	bucket string
	region string
	expiry time.Duration

	mu    sync.Mutex
	ready bool
}

// New validates cfg and builds a publisher backed by a minio client.
// No request is made until the first Publish.
func New(cfg Config) (*Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	cfg = withDefaults(cfg)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return newPublisher(client, cfg), nil
}

func newPublisher(client objectAPI, cfg Config) *Publisher {
	cfg = withDefaults(cfg)
	return &Publisher{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		expiry: cfg.URLExpiry,
	}
}

func withDefaults(cfg Config) Config {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = DefaultRegion
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		cfg.Bucket = DefaultBucket
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = DefaultURLExpiry
	}
	return cfg
}

// ensureBucket creates the bucket on first use. A failed attempt is retried on the next call.
func (p *Publisher) ensureBucket(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
			return err
		}
	}
	p.ready = true
	return nil
}

// Publish uploads archivePath as <bundleID>/<file name> and returns a presigned GET URL.
func (p *Publisher) Publish(ctx context.Context, bundleID, archivePath string) (string, error) {
	bundleID = strings.TrimSpace(bundleID)
	if bundleID == "" {
		return "", errors.New("bundle id is required")
	}
	if strings.TrimSpace(archivePath) == "" {
		return "", errors.New("archive path is required")
	}
	if err := p.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := objectKey(bundleID, filepath.Base(archivePath))
	if _, err := p.client.FPutObject(ctx, p.bucket, key, archivePath, minio.PutObjectOptions{
		ContentType: "application/zip",
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, p.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func objectKey(bundleID, name string) string {
	return strings.TrimSuffix(bundleID, "/") + "/" + strings.TrimLeft(name, "/")
}
