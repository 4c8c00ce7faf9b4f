package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/gcs"
	infra "github.com/dvloznov/admob-reporting/internal/infra/bigquery"
)

// Deps are the cloud clients behind a Service built from configuration.
type Deps struct {
	Loader *infra.Loader
	Store  *gcs.Store
}

// Close closes every client.
func (d *Deps) Close() error {
	var errs []error
	if d.Loader != nil {
		errs = append(errs, d.Loader.Close())
	}
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	return errors.Join(errs...)
}

// NewServiceFromConfig creates the AdMob, BigQuery and, when a bucket is
// configured, Cloud Storage clients and wires them into a Service.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config) (*Service, *Deps, error) {
	table, err := cfg.Table()
	if err != nil {
		return nil, nil, fmt.Errorf("NewServiceFromConfig: %w", err)
	}

	httpClient, err := admob.NewHTTPClient(ctx, admob.CredentialSource{
		File:   cfg.CredentialsFile,
		Secret: cfg.CredentialsSecret,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("NewServiceFromConfig: %w", err)
	}
	generator := admob.NewClient(httpClient, cfg.APIEndpoint)

	// Load jobs run in the function's project; the table may live elsewhere.
	jobProject := cfg.ProjectID
	if jobProject == "" {
		jobProject = table.ProjectID
	}

	deps := &Deps{}
	deps.Loader, err = infra.NewLoader(ctx, jobProject)
	if err != nil {
		return nil, nil, fmt.Errorf("NewServiceFromConfig: %w", err)
	}

	var opts []Option
	if cfg.ArchiveBucket != "" || cfg.StagingBucket != "" {
		deps.Store, err = gcs.NewStore(ctx)
		if err != nil {
			_ = deps.Close()
			return nil, nil, fmt.Errorf("NewServiceFromConfig: %w", err)
		}
		if cfg.StagingBucket != "" {
			deps.Loader.WithStaging(deps.Store, cfg.StagingBucket)
		}
		if cfg.ArchiveBucket != "" {
			opts = append(opts, WithArchiver(gcs.NewArchiver(deps.Store, cfg.ArchiveBucket)))
		}
	}

	svc, err := NewService(cfg, generator, deps.Loader, opts...)
	if err != nil {
		_ = deps.Close()
		return nil, nil, fmt.Errorf("NewServiceFromConfig: %w", err)
	}
	return svc, deps, nil
}
