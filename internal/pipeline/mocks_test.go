package pipeline_test

import (
	"context"

	"cloud.google.com/go/civil"
	admobapi "google.golang.org/api/admob/v1"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/config"
	infra "github.com/dvloznov/admob-reporting/internal/infra/bigquery"
	"github.com/dvloznov/admob-reporting/internal/transform"
)

// MockReportGenerator is a mock implementation of ReportGenerator for testing.
type MockReportGenerator struct {
	GenerateNetworkReportFunc func(ctx context.Context, publisherID string, req *admobapi.GenerateNetworkReportRequest) (admob.Response, error)
	Calls                     int
}

func (m *MockReportGenerator) GenerateNetworkReport(ctx context.Context, publisherID string, req *admobapi.GenerateNetworkReportRequest) (admob.Response, error) {
	m.Calls++
	return m.GenerateNetworkReportFunc(ctx, publisherID, req)
}

// MockWarehouse is a mock implementation of Warehouse for testing.
type MockWarehouse struct {
	LoadFunc       func(ctx context.Context, table config.TableRef, records []transform.FlatRecord) (*infra.LoadJob, error)
	TableStatsFunc func(ctx context.Context, table config.TableRef) (infra.TableStats, error)

	Loaded     []transform.FlatRecord
	LoadCalls  int
	StatsCalls int
}

func (m *MockWarehouse) Load(ctx context.Context, table config.TableRef, records []transform.FlatRecord) (*infra.LoadJob, error) {
	m.LoadCalls++
	m.Loaded = records
	return m.LoadFunc(ctx, table, records)
}

func (m *MockWarehouse) TableStats(ctx context.Context, table config.TableRef) (infra.TableStats, error) {
	m.StatsCalls++
	return m.TableStatsFunc(ctx, table)
}

// MockArchiver is a mock implementation of ReportArchiver for testing.
type MockArchiver struct {
	ArchiveReportFunc func(ctx context.Context, publisherID string, date civil.Date, raw []byte) (string, error)
	Raw               []byte
	Date              civil.Date
}

func (m *MockArchiver) ArchiveReport(ctx context.Context, publisherID string, date civil.Date, raw []byte) (string, error) {
	m.Raw = raw
	m.Date = date
	return m.ArchiveReportFunc(ctx, publisherID, date, raw)
}

// mockJob is a load job that finishes immediately with result.
type mockJob struct {
	result infra.JobResult
}

func (j *mockJob) ID() string { return "admob_network_report-test" }

func (j *mockJob) Status(ctx context.Context) (infra.JobResult, error) { return j.result, nil }

func (j *mockJob) Wait(ctx context.Context) (infra.JobResult, error) { return j.result, nil }

func succeededJob() *infra.LoadJob {
	return infra.NewLoadJob(&mockJob{result: infra.JobResult{State: infra.JobSucceeded}})
}

func failedJob(err error) *infra.LoadJob {
	return infra.NewLoadJob(&mockJob{result: infra.JobResult{State: infra.JobFailed, Err: err}})
}
