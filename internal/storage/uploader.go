// Package storage uploads media blobs and hands back public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Uploader stores raw bytes under a folder and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, folder, name string, r io.Reader) (string, error)
}

// ObjectName builds a collision-free object name for an owner's upload.
func ObjectName(ownerUID string, index int) string {
	return fmt.Sprintf("%s_%d_%s_%d", ownerUID, index, uuid.New(), time.Now().Unix())
}

// GCSUploader writes objects into a Cloud Storage bucket.
type GCSUploader struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewGCSUploader opens the configured bucket.
func NewGCSUploader(ctx context.Context, bucketName string) (*GCSUploader, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage client: %w", err)
	}
	return &GCSUploader{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
	}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, folder, name string, r io.Reader) (string, error) {
	object := folder + "/" + name
	w := u.bucket.Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("error writing object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error closing object %s: %w", object, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, object), nil
}
