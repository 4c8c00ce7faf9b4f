package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/gcs"
	"github.com/dvloznov/admob-reporting/internal/logger"
	"github.com/dvloznov/admob-reporting/internal/pipeline"
)

func main() {
	log := logger.New()

	source := flag.String("source", "", "Archived report: gs://bucket/network_report/... or a local file")
	publisherID := flag.String("publisher-id", "", "Publisher id (defaults to the one in the archive path)")
	flag.Parse()

	if *source == "" {
		log.Fatal().Msg("Usage: replay -source gs://BUCKET/OBJECT|FILE [-publisher-id pub-...]")
	}

	if *publisherID == "" {
		pub, date, err := gcs.ParseArchiveObject(*source)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: --publisher-id is required for this source")
		}
		*publisherID = pub
		log.Info().Str("report_date", date.String()).Msg("Using publisher id from archive path")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if err := replay(cfg, log, *source, *publisherID); err != nil {
		log.Error().Err(err).Msg("Replay failed")
		os.Exit(1)
	}
}

func replay(cfg *config.Config, log zerolog.Logger, source, publisherID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 9*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	raw, err := read(ctx, source)
	if err != nil {
		return err
	}

	svc, deps, err := pipeline.NewServiceFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	log.Info().
		Str("source", source).
		Str(logger.FieldPublisherID, publisherID).
		Int("bytes", len(raw)).
		Msg("Replaying archived report")

	res, err := svc.Replay(ctx, raw, publisherID)
	if err != nil {
		return err
	}

	fmt.Printf("Replayed %d rows for %s into %s, job %s\n", res.Records, res.PublisherID, svc.Table(), res.JobID)
	return nil
}

func read(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "gs://") {
		return os.ReadFile(source)
	}

	store, err := gcs.NewStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Fetch(ctx, source)
}
