// Package gcs keeps copies of rendered reports in a Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const uploadTimeout = 2 * time.Minute

// Archive writes report files under an optional prefix in one bucket.
type Archive struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewArchive creates an archive with a shared storage client.
func NewArchive(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Archive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewArchive: bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewArchive: create storage client: %w", err)
	}
	return &Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Archive uploads data as name and returns its gs:// URI.
func (a *Archive) Archive(ctx context.Context, name string, data []byte) (string, error) {
	object := path.Join(a.prefix, name)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: write %q: %w", object, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalize %q: %w", object, err)
	}
	return URI(a.bucket, object), nil
}

// Fetch downloads an archived object by its gs:// URI.
func (a *Archive) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	r, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: open reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read object: %w", err)
	}
	return data, nil
}

// Close closes the storage client.
func (a *Archive) Close() error {
	return a.client.Close()
}

// URI formats a gs:// URI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseURI splits gs://bucket/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
