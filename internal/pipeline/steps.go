package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	admobapi "google.golang.org/api/admob/v1"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/config"
	infra "github.com/dvloznov/admob-reporting/internal/infra/bigquery"
	"github.com/dvloznov/admob-reporting/internal/logger"
	"github.com/dvloznov/admob-reporting/internal/transform"
)

// PipelineStep represents a single step in the report pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID       string
	PublisherID string
	Now         time.Time

	Request    *admobapi.GenerateNetworkReportRequest
	ReportDate civil.Date
	Response   admob.Response
	ArchiveURI string
	Records    []transform.FlatRecord
	Job        *infra.LoadJob
	Stats      *infra.TableStats
}

// Step 1: BuildRequestStep builds the query for the day before state.Now.
type BuildRequestStep struct {
	Config admob.RequestConfig
}

func (s *BuildRequestStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := admob.ValidatePublisherID(state.PublisherID); err != nil {
		return fmt.Errorf("BuildRequestStep: %w", err)
	}

	req := admob.BuildRequest(s.Config, state.Now)
	date, err := admob.ReportDate(req)
	if err != nil {
		return fmt.Errorf("BuildRequestStep: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("start_date", date.String()).
		Str("end_date", date.String()).
		Msg("Report date range")

	state.Request = req
	state.ReportDate = date
	return nil
}

// Step 2: FetchReportStep calls the reporting API once.
type FetchReportStep struct {
	Generator ReportGenerator
}

func (s *FetchReportStep) Execute(ctx context.Context, state *PipelineState) error {
	resp, err := s.Generator.GenerateNetworkReport(ctx, state.PublisherID, state.Request)
	if err != nil {
		return fmt.Errorf("FetchReportStep: %w", err)
	}

	logHeader(ctx, resp)
	state.Response = resp
	return nil
}

func logHeader(ctx context.Context, resp admob.Response) {
	log := logger.FromContext(ctx)
	header, err := resp.Header()
	if err != nil {
		log.Info().Int("elements", len(resp)).Msg("Report response has no header")
		return
	}
	log.Info().Interface("header", header).Msg("Report response header")
}

// Step 3: ArchiveReportStep keeps the raw response. It does nothing when no
// archiver is configured.
type ArchiveReportStep struct {
	Archiver ReportArchiver
}

func (s *ArchiveReportStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}

	raw, err := json.Marshal(state.Response)
	if err != nil {
		return fmt.Errorf("ArchiveReportStep: encoding response: %w", err)
	}

	uri, err := s.Archiver.ArchiveReport(ctx, state.PublisherID, state.ReportDate, raw)
	if err != nil {
		return fmt.Errorf("ArchiveReportStep: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("uri", uri).Msg("Archived raw report")

	state.ArchiveURI = uri
	return nil
}

// Step 4: TransformRowsStep flattens the data rows and drops COUNTRY rows.
type TransformRowsStep struct{}

func (s *TransformRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	records, err := transform.Rows(state.Response)
	if err != nil {
		return fmt.Errorf("TransformRowsStep: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Int("records", len(records)).Msg("Transformed report rows")

	state.Records = records
	return nil
}

// Step 5: LoadRecordsStep submits the load job and waits for it to finish.
// An empty record set is not loaded and leaves state.Job nil.
type LoadRecordsStep struct {
	Warehouse Warehouse
	Table     config.TableRef
}

func (s *LoadRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	if len(state.Records) == 0 {
		log.Info().Str(logger.FieldTable, s.Table.String()).Msg("No rows to load")
		return nil
	}

	job, err := s.Warehouse.Load(ctx, s.Table, state.Records)
	if err != nil {
		return fmt.Errorf("LoadRecordsStep: %w", err)
	}
	state.Job = job

	log.Info().
		Str(logger.FieldJobID, job.ID()).
		Int("records", len(state.Records)).
		Msg("Submitted load job")

	if err := job.Wait(ctx); err != nil {
		return fmt.Errorf("LoadRecordsStep: %w", err)
	}
	return nil
}

// Step 6: TableStatsStep reports the size of the destination table. When
// nothing was loaded the table may not exist yet, which is logged, not fatal.
type TableStatsStep struct {
	Warehouse Warehouse
	Table     config.TableRef
}

func (s *TableStatsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	stats, err := s.Warehouse.TableStats(ctx, s.Table)
	if err != nil {
		if state.Job == nil && infra.IsNotFound(err) {
			log.Info().Str(logger.FieldTable, s.Table.String()).Msg("Table does not exist yet")
			return nil
		}
		return fmt.Errorf("TableStatsStep: %w", err)
	}

	log.Info().
		Str(logger.FieldTable, s.Table.String()).
		Uint64("rows", stats.Rows).
		Int("columns", stats.Columns).
		Msg("Loaded rows into table")

	state.Stats = &stats
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
