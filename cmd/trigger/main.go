package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/logger"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	var (
		projectID    string
		topicID      string
		publisherIDs string
	)

	flag.StringVar(&projectID, "project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "Project of the topic (or set GOOGLE_CLOUD_PROJECT env)")
	flag.StringVar(&topicID, "topic", os.Getenv("PUBSUB_TOPIC"), "Pub/Sub topic id (or set PUBSUB_TOPIC env)")
	flag.StringVar(&publisherIDs, "publisher-id", "", "Comma-separated publisher ids (required)")
	flag.Parse()

	if projectID == "" || topicID == "" || publisherIDs == "" {
		log.Fatal().Msg("Usage: trigger -project PROJECT -topic TOPIC -publisher-id pub-...[,pub-...]")
	}

	ids, err := parsePublisherIDs(publisherIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid publisher id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Pub/Sub client")
	}
	defer client.Close()

	topic := client.Topic(topicID)
	defer topic.Stop()

	results := make([]*pubsub.PublishResult, len(ids))
	for i, id := range ids {
		results[i] = topic.Publish(ctx, &pubsub.Message{Data: []byte(id)})
	}

	failed := 0
	for i, res := range results {
		msgID, err := res.Get(ctx)
		if err != nil {
			failed++
			log.Error().Err(err).Str(logger.FieldPublisherID, ids[i]).Msg("Publish failed")
			continue
		}
		fmt.Printf("Published %s to %s as message %s\n", ids[i], topicID, msgID)
	}
	if failed > 0 {
		topic.Stop()
		client.Close()
		os.Exit(1)
	}
}

// parsePublisherIDs splits and validates a comma separated id list.
func parsePublisherIDs(s string) ([]string, error) {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty list", admob.ErrInvalidPublisherID)
	}
	for _, id := range ids {
		if err := admob.ValidatePublisherID(id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
