// Package minio adapts minio-go behind a single-bucket client and a small
// ObjectRepository (Upload/Download), the only two object operations the
// document corpus store (internal/store/docstore) ever performs against
// it. Multi-bucket provisioning, lifecycle rules, presigned URLs, and
// bucket statistics belong to a document-management platform this pipeline
// is not; cfg.Bucket is the corpus's one home.
package minio

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client the repository needs, so tests can
// substitute a mock without a running server.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinIOConfig connects to one MinIO (or S3-compatible) endpoint and names the
// single bucket the document corpus lives in.
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	PartSize        int64         `mapstructure:"part_size"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

func (cfg *MinIOConfig) fillDefaults() {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PartSize == 0 {
		cfg.PartSize = 16 * 1024 * 1024
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "retrosynth-documents"
	}
}

// MinIOClient owns the connection and the corpus bucket's lifecycle.
type MinIOClient struct {
	client MinIOAPI
	config *MinIOConfig
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewMinIOClient dials cfg.Endpoint and verifies connectivity by listing
// buckets. It does not itself create cfg.Bucket; call EnsureBuckets for
// that.
func NewMinIOClient(cfg *MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	cfg.fillDefaults()

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeExternalService, "connect to minio").WithDetail("endpoint=" + cfg.Endpoint)
	}

	log.Info("minio client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return &MinIOClient{client: client, config: cfg, logger: log}, nil
}

// EnsureBuckets creates cfg.Bucket if it does not already exist.
func (c *MinIOClient) EnsureBuckets(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "check bucket existence").WithDetail("bucket=" + c.config.Bucket)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create bucket").WithDetail("bucket=" + c.config.Bucket)
	}
	c.logger.Info("created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// GetClient exposes the underlying API for the repository.
func (c *MinIOClient) GetClient() MinIOAPI { return c.client }

// Bucket returns the configured corpus bucket name.
func (c *MinIOClient) Bucket() string { return c.config.Bucket }

var ErrMinIOClientClosed = errors.New(errors.CodeInternal, "minio client is closed")

// Close marks the client closed. The underlying HTTP transport has no
// explicit shutdown in minio-go; this only guards repeated Close calls.
func (c *MinIOClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
