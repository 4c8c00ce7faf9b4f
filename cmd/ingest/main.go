package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/logger"
	"github.com/dvloznov/admob-reporting/internal/pipeline"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	publisherID := flag.String("publisher-id", "", "AdMob publisher id (e.g. pub-1234567890123456)")
	flag.Parse()

	if *publisherID == "" {
		log.Fatal().Msg("Error: --publisher-id is required")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if err := ingest(cfg, log, *publisherID); err != nil {
		log.Error().Err(err).Msg("Network report load failed")
		os.Exit(1)
	}
}

func ingest(cfg *config.Config, log zerolog.Logger, publisherID string) error {
	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 9*time.Minute)
	defer cancel()

	svc, deps, err := pipeline.NewServiceFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str(logger.FieldPublisherID, publisherID).
		Str(logger.FieldTable, svc.Table().String()).
		Msg("Starting network report load")

	res, err := svc.Run(ctx, publisherID)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d rows for %s (%s) into %s, job %s\n",
		res.Records, res.PublisherID, res.ReportDate, svc.Table(), res.JobID)
	return nil
}
