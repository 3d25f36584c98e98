package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// ObjectRepository is the corpus store's object API: write a document once,
// read it back later. Tagging, copy/move, listing, and presigned URLs
// belong to a document-management surface this pipeline never exposes.
type ObjectRepository interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	Download(ctx context.Context, bucket, objectKey string) (*DownloadResult, error)
}

type UploadRequest struct {
	Bucket      string
	ObjectKey   string
	Data        []byte
	ContentType string
}

type UploadResult struct {
	Bucket    string
	ObjectKey string
	ETag      string
	Size      int64
}

type DownloadResult struct {
	Data        []byte
	ContentType string
	Size        int64
	ETag        string
}

var ErrObjectNotFound = errors.New(errors.CodeNotFound, "object not found")

// minioAPI is the subset of *minio.Client this repository calls.
type minioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

type minioRepository struct {
	client minioAPI
	logger logging.Logger
}

// NewMinIORepository adapts an already-connected MinIOClient into an
// ObjectRepository.
func NewMinIORepository(client *MinIOClient, log logging.Logger) ObjectRepository {
	return &minioRepository{client: client.GetClient(), logger: log}
}

// NewMinIORepositoryWithAPI injects a mock minioAPI for tests.
func NewMinIORepositoryWithAPI(api minioAPI, log logging.Logger) ObjectRepository {
	return &minioRepository{client: api, logger: log}
}

func (r *minioRepository) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req.Bucket == "" || req.ObjectKey == "" {
		return nil, errors.New(errors.CodeInvalidParam, "bucket and key required")
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Data)
	}

	info, err := r.client.PutObject(ctx, req.Bucket, req.ObjectKey, bytes.NewReader(req.Data), int64(len(req.Data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternalService, "upload failed").WithDetail("key=" + req.ObjectKey)
	}

	return &UploadResult{Bucket: info.Bucket, ObjectKey: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

func (r *minioRepository) Download(ctx context.Context, bucket, objectKey string) (*DownloadResult, error) {
	obj, err := r.client.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternalService, "download failed").WithDetail("key=" + objectKey)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.CodeExternalService, "stat object failed").WithDetail("key=" + objectKey)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternalService, "read object failed").WithDetail("key=" + objectKey)
	}

	return &DownloadResult{Data: data, ContentType: stat.ContentType, Size: stat.Size, ETag: stat.ETag}, nil
}
