// Package docstore mirrors the acquired document corpus (raw fetched bytes
// and rendered text) to MinIO, built on the object-storage client and
// repository in internal/infrastructure/storage/minio. It is an
// optional companion to the local res_pi/ filesystem layout:
// when configured, every document the Expansion Controller fetches is also
// durably mirrored under "<material>/<substance>/<docID>" so a subsequent
// run (or a different worker process) can recover the corpus without
// re-fetching.
package docstore

import (
	"context"
	"fmt"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/config"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/expansion"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/storage/minio"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// Corpus is a MinIO-backed mirror of fetched documents and rendered text.
type Corpus struct {
	client *minio.MinIOClient
	repo   minio.ObjectRepository
	bucket string
}

// Open connects to MinIO per cfg and ensures the configured bucket exists.
func Open(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Corpus, error) {
	if log == nil {
		log = logging.Default()
	}
	mc, err := minio.NewMinIOClient(&minio.MinIOConfig{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		UseSSL:          cfg.UseSSL,
		Bucket:          cfg.Bucket,
		PresignExpiry:   cfg.PresignExpiry,
	}, log)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "open document corpus store")
	}
	if err := mc.EnsureBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "ensure corpus bucket")
	}
	return &Corpus{
		client: mc,
		repo:   minio.NewMinIORepository(mc, log),
		bucket: cfg.Bucket,
	}, nil
}

// Close releases the underlying MinIO client.
func (c *Corpus) Close() error { return c.client.Close() }

func objectKey(material, substance, docID string) string {
	return fmt.Sprintf("%s/%s/%s", material, substance, docID)
}

// PutRaw mirrors one fetched document's raw bytes.
func (c *Corpus) PutRaw(ctx context.Context, material, substance string, doc expansion.FetchedDoc) error {
	_, err := c.repo.Upload(ctx, &minio.UploadRequest{
		Bucket:      c.bucket,
		ObjectKey:   objectKey(material, substance, doc.ID) + ".raw",
		Data:        doc.Data,
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "mirror raw document").WithDetail("id=" + doc.ID)
	}
	return nil
}

// PutText mirrors one document's rendered text.
func (c *Corpus) PutText(ctx context.Context, material, substance, docID, text string) error {
	_, err := c.repo.Upload(ctx, &minio.UploadRequest{
		Bucket:      c.bucket,
		ObjectKey:   objectKey(material, substance, docID) + ".txt",
		Data:        []byte(text),
		ContentType: "text/plain",
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "mirror rendered text").WithDetail("id=" + docID)
	}
	return nil
}

// GetText recovers previously-mirrored rendered text for a document.
func (c *Corpus) GetText(ctx context.Context, material, substance, docID string) (string, error) {
	res, err := c.repo.Download(ctx, c.bucket, objectKey(material, substance, docID)+".txt")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeNotFound, "recover rendered text").WithDetail("id=" + docID)
	}
	return string(res.Data), nil
}
