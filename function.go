// Package admobreport loads the previous day's AdMob network report into
// BigQuery. NetworkReport is deployed as a Pub/Sub triggered Cloud Function;
// each message carries one publisher id.
package admobreport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/logger"
	"github.com/dvloznov/admob-reporting/internal/pipeline"
)

// PubSubMessage is the payload of a Pub/Sub event. The base64 data field is
// decoded by the JSON unmarshalling of []byte.
type PubSubMessage struct {
	Data []byte `json:"data"`
}

// ErrInvalidPayload is returned when the message does not carry a publisher id.
var ErrInvalidPayload = errors.New("invalid trigger payload")

// instance holds the clients shared by every invocation on one function
// instance. A failed initialisation is retried on the next invocation.
var instance struct {
	mu      sync.Mutex
	service *pipeline.Service
	log     zerolog.Logger
}

// NetworkReport is the Cloud Function entry point.
func NetworkReport(ctx context.Context, m PubSubMessage) error {
	publisherID, err := DecodePublisherID(m.Data)
	if err != nil {
		return err
	}

	svc, log, err := service()
	if err != nil {
		return err
	}

	ctx = logger.WithContext(ctx, log)
	if _, err := svc.Run(ctx, publisherID); err != nil {
		log.Error().Err(err).Str(logger.FieldPublisherID, publisherID).Msg("Network report failed")
		return err
	}
	return nil
}

// DecodePublisherID reads the publisher id carried by a message.
func DecodePublisherID(data []byte) (string, error) {
	id, err := admob.ParsePublisherID(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return id, nil
}

func service() (*pipeline.Service, zerolog.Logger, error) {
	instance.mu.Lock()
	defer instance.mu.Unlock()

	if instance.service != nil {
		return instance.service, instance.log, nil
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, logger.New(), fmt.Errorf("NetworkReport: loading config: %w", err)
	}
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	// Clients outlive the invocation that creates them.
	svc, _, err := pipeline.NewServiceFromConfig(context.Background(), cfg)
	if err != nil {
		return nil, log, fmt.Errorf("NetworkReport: %w", err)
	}

	instance.service = svc
	instance.log = log
	return svc, log, nil
}
