// Package archive stores raw detail-page snapshots alongside a markdown
// rendition, so extraction regressions can be debugged against the page as
// it looked at crawl time.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/civiclens/permit-crawler/common/config"
)

// StorageService is the blob-store surface the snapshot archiver writes
// through.
type StorageService interface {
	// Upload stores content under objectName and returns the object name.
	Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error)

	// Download retrieves a stored object.
	Download(ctx context.Context, bucket, objectName string) ([]byte, error)

	// Delete removes a stored object.
	Delete(ctx context.Context, bucket, objectName string) error
}

// GCSStorage implements StorageService on Google Cloud Storage.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage creates a GCS-backed storage service. With an empty
// credentials file path, ambient application-default credentials are used.
func NewGCSStorage(ctx context.Context, cfg config.GCSConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

func (g *GCSStorage) Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error) {
	wc := g.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, bytes.NewReader(content)); err != nil {
		return "", fmt.Errorf("upload object %s: %w", objectName, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close writer for %s: %w", objectName, err)
	}
	return objectName, nil
}

func (g *GCSStorage) Download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	rc, err := g.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", objectName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", objectName, err)
	}
	return data, nil
}

func (g *GCSStorage) Delete(ctx context.Context, bucket, objectName string) error {
	if err := g.client.Bucket(bucket).Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", objectName, err)
	}
	return nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}
