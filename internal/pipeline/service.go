package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/config"
	infra "github.com/dvloznov/admob-reporting/internal/infra/bigquery"
	"github.com/dvloznov/admob-reporting/internal/logger"
)

// Service runs the network report pipeline for one publisher at a time.
// It holds no per-run state and is safe for concurrent use.
type Service struct {
	generator ReportGenerator
	warehouse Warehouse
	archiver  ReportArchiver

	request admob.RequestConfig
	table   config.TableRef
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithArchiver keeps every raw response through a.
func WithArchiver(a ReportArchiver) Option {
	return func(s *Service) {
		s.archiver = a
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Result summarises a finished run.
type Result struct {
	RunID       string
	PublisherID string
	ReportDate  civil.Date
	ArchiveURI  string
	Records     int
	JobID       string
	Stats       *infra.TableStats
}

// NewService validates cfg and wires the pipeline dependencies.
func NewService(cfg *config.Config, generator ReportGenerator, warehouse Warehouse, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewService: %w", err)
	}

	request, err := RequestConfigFrom(cfg)
	if err != nil {
		return nil, fmt.Errorf("NewService: %w", err)
	}
	table, err := cfg.Table()
	if err != nil {
		return nil, fmt.Errorf("NewService: %w", err)
	}

	s := &Service{
		generator: generator,
		warehouse: warehouse,
		request:   request,
		table:     table,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestConfigFrom extracts the report query settings from cfg.
func RequestConfigFrom(cfg *config.Config) (admob.RequestConfig, error) {
	loc, err := cfg.Location()
	if err != nil {
		return admob.RequestConfig{}, err
	}
	return admob.RequestConfig{
		Location:      loc,
		Dimensions:    cfg.Dimensions,
		Metrics:       cfg.Metrics,
		SortDimension: cfg.SortDimension,
		SortOrder:     cfg.SortOrder,
		CurrencyCode:  cfg.CurrencyCode,
	}, nil
}

// Table returns the destination table.
func (s *Service) Table() config.TableRef {
	return s.table
}

// Run fetches yesterday's report for publisherID and loads it.
func (s *Service) Run(ctx context.Context, publisherID string) (*Result, error) {
	return s.RunWithID(ctx, uuid.NewString(), publisherID)
}

// RunWithID is Run with a caller-chosen run id, used when the run is tracked
// outside the pipeline.
func (s *Service) RunWithID(ctx context.Context, runID, publisherID string) (*Result, error) {
	state := &PipelineState{
		RunID:       runID,
		PublisherID: publisherID,
		Now:         s.now(),
	}
	ctx = s.runContext(ctx, state)

	p := NewPipeline(
		&BuildRequestStep{Config: s.request},
		&FetchReportStep{Generator: s.generator},
		&ArchiveReportStep{Archiver: s.archiver},
		&TransformRowsStep{},
		&LoadRecordsStep{Warehouse: s.warehouse, Table: s.table},
		&TableStatsStep{Warehouse: s.warehouse, Table: s.table},
	)
	if err := p.Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}
	return resultOf(state), nil
}

// Replay loads a previously archived raw response without calling the
// reporting API.
func (s *Service) Replay(ctx context.Context, raw []byte, publisherID string) (*Result, error) {
	if err := admob.ValidatePublisherID(publisherID); err != nil {
		return nil, fmt.Errorf("Replay: %w", err)
	}

	resp, err := admob.ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("Replay: %w", err)
	}

	state := &PipelineState{
		RunID:       uuid.NewString(),
		PublisherID: publisherID,
		Now:         s.now(),
		Response:    resp,
	}
	ctx = s.runContext(ctx, state)
	logHeader(ctx, resp)

	p := NewPipeline(
		&TransformRowsStep{},
		&LoadRecordsStep{Warehouse: s.warehouse, Table: s.table},
		&TableStatsStep{Warehouse: s.warehouse, Table: s.table},
	)
	if err := p.Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Replay: %w", err)
	}
	return resultOf(state), nil
}

func (s *Service) runContext(ctx context.Context, state *PipelineState) context.Context {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		logger.FieldRunID:       state.RunID,
		logger.FieldPublisherID: state.PublisherID,
	})
	return logger.WithContext(ctx, log)
}

func resultOf(state *PipelineState) *Result {
	r := &Result{
		RunID:       state.RunID,
		PublisherID: state.PublisherID,
		ReportDate:  state.ReportDate,
		ArchiveURI:  state.ArchiveURI,
		Records:     len(state.Records),
		Stats:       state.Stats,
	}
	if state.Job != nil {
		r.JobID = state.Job.ID()
	}
	return r
}
