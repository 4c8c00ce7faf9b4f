package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/logger"
	"github.com/dvloznov/admob-reporting/internal/pipeline"
)

// runner is the part of pipeline.Service the worker needs.
type runner interface {
	Run(ctx context.Context, publisherID string) (*pipeline.Result, error)
}

func main() {
	log := logger.New()

	var (
		subscription = flag.String("subscription", os.Getenv("PUBSUB_SUBSCRIPTION"), "Pub/Sub subscription id (or set PUBSUB_SUBSCRIPTION env)")
		concurrency  = flag.Int("concurrency", 4, "Maximum reports processed at once")
	)
	flag.Parse()

	if *subscription == "" {
		log.Fatal().Msg("Error: --subscription is required")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := work(ctx, cfg, log, *subscription, *concurrency); err != nil {
		log.Error().Err(err).Msg("Worker stopped with error")
		cancel()
		os.Exit(1)
	}

	log.Info().Msg("Worker service exited")
}

func work(ctx context.Context, cfg *config.Config, log zerolog.Logger, subscription string, concurrency int) error {
	svc, deps, err := pipeline.NewServiceFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	// The subscription lives in the function's project, falling back to the table's.
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = svc.Table().ProjectID
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("creating Pub/Sub client: %w", err)
	}
	defer client.Close()

	sub := client.Subscription(subscription)
	sub.ReceiveSettings.MaxOutstandingMessages = concurrency
	sub.ReceiveSettings.NumGoroutines = 1

	log.Info().
		Str("subscription", subscription).
		Str(logger.FieldTable, svc.Table().String()).
		Msg("Worker service started, waiting for messages...")

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if process(logger.WithContext(ctx, log), svc, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil {
		return fmt.Errorf("receiving from %s: %w", subscription, err)
	}
	return nil
}

// process runs one message and reports whether it should be acked. Messages
// without a valid publisher id are acked so they are not redelivered.
func process(ctx context.Context, r runner, messageID string, data []byte) bool {
	log := logger.FromContext(ctx).With().Str("message_id", messageID).Logger()

	publisherID, err := admob.ParsePublisherID(data)
	if err != nil {
		log.Error().Err(err).Msg("Dropping message with invalid payload")
		return true
	}

	res, err := r.Run(logger.WithContext(ctx, log), publisherID)
	if err != nil {
		log.Error().Err(err).Str(logger.FieldPublisherID, publisherID).Msg("Network report failed")
		return false
	}

	logResult(log, res)
	return true
}

func logResult(log zerolog.Logger, res *pipeline.Result) {
	log.Info().
		Str(logger.FieldRunID, res.RunID).
		Str(logger.FieldPublisherID, res.PublisherID).
		Str(logger.FieldJobID, res.JobID).
		Int("records", res.Records).
		Msg("Network report loaded")
}
