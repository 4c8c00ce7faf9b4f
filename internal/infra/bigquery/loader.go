package bigquery

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/gcs"
	"github.com/dvloznov/admob-reporting/internal/transform"
)

// JobIDPrefix names load jobs; BigQuery appends a random suffix.
const JobIDPrefix = "admob_network_report"

// StagingPrefix is the object prefix for staged load files.
const StagingPrefix = "bq-load"

// Stager uploads load files to Cloud Storage.
type Stager interface {
	Upload(ctx context.Context, bucket, object string, data []byte, attrs gcs.ObjectAttrs) (string, error)
}

// Loader submits load jobs into BigQuery tables. Tables are created on first
// load with an auto-detected schema and appended to afterwards.
type Loader struct {
	client *bigquery.Client

	stager        Stager
	stagingBucket string
}

// NewLoader creates a Loader with a shared BigQuery client.
func NewLoader(ctx context.Context, projectID string) (*Loader, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewLoader: creating client: %w", err)
	}
	return &Loader{client: client}, nil
}

// WithStaging makes the loader write records to bucket as gzip NDJSON and
// load them from there instead of streaming them in the request.
func (l *Loader) WithStaging(stager Stager, bucket string) *Loader {
	l.stager = stager
	l.stagingBucket = bucket
	return l
}

// Close closes the BigQuery client connection.
func (l *Loader) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

// Load submits one load job appending records to table. The job is returned
// as soon as it is accepted; callers Wait on it.
func (l *Loader) Load(ctx context.Context, table config.TableRef, records []transform.FlatRecord) (*LoadJob, error) {
	data, err := EncodeNDJSON(records)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	src, err := l.source(ctx, table, data)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	loader := l.client.DatasetInProject(table.ProjectID, table.DatasetID).Table(table.TableID).LoaderFrom(src)
	configureLoader(loader)

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load: submitting load job into %s: %w", table, err)
	}

	return NewLoadJob(bqJob{job: job}), nil
}

func configureLoader(loader *bigquery.Loader) {
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteAppend
	loader.JobIDConfig = bigquery.JobIDConfig{
		JobID:          JobIDPrefix,
		AddJobIDSuffix: true,
	}
}

// source returns the load source for data: a staged GCS object when staging
// is configured, the bytes themselves otherwise.
func (l *Loader) source(ctx context.Context, table config.TableRef, data []byte) (bigquery.LoadSource, error) {
	if l.stager == nil || l.stagingBucket == "" {
		src := bigquery.NewReaderSource(bytes.NewReader(data))
		src.SourceFormat = bigquery.JSON
		src.AutoDetect = true
		return src, nil
	}

	compressed, err := gzipBytes(data)
	if err != nil {
		return nil, err
	}

	uri, err := l.stager.Upload(ctx, l.stagingBucket, StagingObjectName(table, uuid.NewString()), compressed, gcs.ObjectAttrs{
		ContentType:     "application/json",
		ContentEncoding: "gzip",
	})
	if err != nil {
		return nil, fmt.Errorf("staging records: %w", err)
	}

	ref := bigquery.NewGCSReference(uri)
	ref.SourceFormat = bigquery.JSON
	ref.AutoDetect = true
	ref.Compression = bigquery.Gzip
	return ref, nil
}

// StagingObjectName builds the object name of a staged load file.
func StagingObjectName(table config.TableRef, id string) string {
	return fmt.Sprintf("%s/%s.%s/%s.json.gz", StagingPrefix, table.DatasetID, table.TableID, id)
}

// EncodeNDJSON writes one JSON object per line.
func EncodeNDJSON(records []transform.FlatRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compressing records: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing records: %w", err)
	}
	return buf.Bytes(), nil
}
