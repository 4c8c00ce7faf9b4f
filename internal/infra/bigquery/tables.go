package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/admob-reporting/internal/config"
)

// TableStats describes a destination table after a load.
type TableStats struct {
	Rows    uint64
	Columns int
}

// TableStats reads the row count and schema width of table.
func (l *Loader) TableStats(ctx context.Context, table config.TableRef) (TableStats, error) {
	md, err := l.client.DatasetInProject(table.ProjectID, table.DatasetID).Table(table.TableID).Metadata(ctx)
	if err != nil {
		return TableStats{}, fmt.Errorf("TableStats: reading metadata of %s: %w", table, err)
	}
	return statsOf(md), nil
}

func statsOf(md *bigquery.TableMetadata) TableStats {
	return TableStats{Rows: md.NumRows, Columns: len(md.Schema)}
}

// EnsureDataset creates the dataset of table when it does not exist.
func (l *Loader) EnsureDataset(ctx context.Context, table config.TableRef, location string) (bool, error) {
	ds := l.client.DatasetInProject(table.ProjectID, table.DatasetID)

	_, err := ds.Metadata(ctx)
	if err == nil {
		return false, nil
	}
	if !IsNotFound(err) {
		return false, fmt.Errorf("EnsureDataset: reading dataset %s.%s: %w", table.ProjectID, table.DatasetID, err)
	}

	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
		return false, fmt.Errorf("EnsureDataset: creating dataset %s.%s: %w", table.ProjectID, table.DatasetID, err)
	}
	return true, nil
}

// Client exposes the underlying client for query-driven tooling.
func (l *Loader) Client() *bigquery.Client {
	return l.client
}

// IsNotFound reports whether err is a 404 from the BigQuery API.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
