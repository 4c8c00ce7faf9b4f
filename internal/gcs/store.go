package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Store is the Cloud Storage implementation of ObjectStore. It holds one
// client for the lifetime of the function instance.
type Store struct {
	client *storage.Client
}

// NewStore creates a Store using Application Default Credentials.
func NewStore(ctx context.Context) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating storage client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close closes the storage client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Upload writes data to bucket/object and returns the gs:// URI.
func (s *Store) Upload(ctx context.Context, bucket, object string, data []byte, attrs ObjectAttrs) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = attrs.ContentType
	w.ContentEncoding = attrs.ContentEncoding

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: writing gs://%s/%s: %w", bucket, object, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalizing gs://%s/%s: %w", bucket, object, err)
	}

	return URI(bucket, object), nil
}

// Fetch downloads the bytes behind a gs:// URI.
func (s *Store) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// URI builds a gs:// URI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseURI(gcsURI string) (string, string, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the last path element of a GCS URI.
// e.g., "gs://bucket/folder/file.json" → "file.json"
func Filename(gcsURI string) string {
	trimmed := strings.TrimPrefix(gcsURI, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

var _ ObjectStore = (*Store)(nil)
