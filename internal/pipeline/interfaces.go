package pipeline

import (
	"context"

	"cloud.google.com/go/civil"
	admobapi "google.golang.org/api/admob/v1"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/gcs"
	infra "github.com/dvloznov/admob-reporting/internal/infra/bigquery"
	"github.com/dvloznov/admob-reporting/internal/transform"
)

// ReportGenerator provides an interface for the reporting API.
// This interface enables mocking and testing of report fetching.
type ReportGenerator interface {
	// GenerateNetworkReport runs the query for one publisher account.
	GenerateNetworkReport(ctx context.Context, publisherID string, req *admobapi.GenerateNetworkReportRequest) (admob.Response, error)
}

// Warehouse provides an interface for loading records into the warehouse.
type Warehouse interface {
	// Load submits one load job appending records to table.
	Load(ctx context.Context, table config.TableRef, records []transform.FlatRecord) (*infra.LoadJob, error)

	// TableStats reads row and column counts of table.
	TableStats(ctx context.Context, table config.TableRef) (infra.TableStats, error)
}

// ReportArchiver keeps raw report responses.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, publisherID string, date civil.Date, raw []byte) (string, error)
}

var (
	_ ReportGenerator = (*admob.Client)(nil)
	_ Warehouse       = (*infra.Loader)(nil)
	_ ReportArchiver  = (*gcs.Archiver)(nil)
)
