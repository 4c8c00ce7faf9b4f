package gcs

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// ArchivePrefix is the object prefix for archived raw reports.
const ArchivePrefix = "network_report"

// Archiver keeps a copy of every raw report response so a run can be
// replayed without calling the reporting API again.
type Archiver struct {
	store  ObjectStore
	bucket string
}

// NewArchiver creates an Archiver writing to bucket.
func NewArchiver(store ObjectStore, bucket string) *Archiver {
	return &Archiver{store: store, bucket: bucket}
}

// ArchiveReport stores raw under network_report/<publisher>/<date>/<uuid>.json.
func (a *Archiver) ArchiveReport(ctx context.Context, publisherID string, date civil.Date, raw []byte) (string, error) {
	object := ArchiveObjectName(publisherID, date, uuid.NewString())
	uri, err := a.store.Upload(ctx, a.bucket, object, raw, ObjectAttrs{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("ArchiveReport: %w", err)
	}
	return uri, nil
}

// ArchiveObjectName builds the object name of an archived report.
func ArchiveObjectName(publisherID string, date civil.Date, id string) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", ArchivePrefix, publisherID, date.String(), id)
}

// ParseArchiveObject reads the publisher id and report date back out of an
// archived report's object name or URI.
func ParseArchiveObject(name string) (string, civil.Date, error) {
	if strings.HasPrefix(name, "gs://") {
		_, object, err := ParseURI(name)
		if err != nil {
			return "", civil.Date{}, err
		}
		name = object
	}

	parts := strings.Split(name, "/")
	if len(parts) != 4 || parts[0] != ArchivePrefix {
		return "", civil.Date{}, fmt.Errorf("not an archived report: %s", name)
	}
	date, err := civil.ParseDate(parts[2])
	if err != nil {
		return "", civil.Date{}, fmt.Errorf("not an archived report: %s: %w", name, err)
	}
	return parts[1], date, nil
}
