package gcs

import (
	"context"
)

// ObjectAttrs are the attributes set on uploaded objects.
type ObjectAttrs struct {
	ContentType     string
	ContentEncoding string
}

// ObjectStore provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// Upload writes data to bucket/object and returns its gs:// URI.
	Upload(ctx context.Context, bucket, object string, data []byte, attrs ObjectAttrs) (string, error)

	// Fetch downloads the bytes behind a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
}
