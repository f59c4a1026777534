package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/getzep/cioexport/pkg/models"
)

// SourceMetadataKey names where a batch entered the exporter, e.g. "http" or "kafka".
const SourceMetadataKey = "source"

var _ models.BatchPublisher = &BatchPublisher{}

type BatchPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewBatchPublisher(publisher message.Publisher, topic string) *BatchPublisher {
	return &BatchPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// Publish enqueues events as a single message. A correlation id is assigned
// unless metadata already carries one.
func (p *BatchPublisher) Publish(
	ctx context.Context,
	events []models.Event,
	metadata map[string]string,
) error {
	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	m := message.NewMessage(watermill.NewUUID(), payload)
	for k, v := range metadata {
		m.Metadata.Set(k, v)
	}
	if middleware.MessageCorrelationID(m) == "" {
		middleware.SetCorrelationID(watermill.NewShortUUID(), m)
	}
	m.SetContext(ctx)

	log.Debugf("publishing batch %s with %d events to %s", m.UUID, len(events), p.topic)

	if err := p.publisher.Publish(p.topic, m); err != nil {
		return fmt.Errorf("failed to publish batch message: %w", err)
	}

	return nil
}

func (p *BatchPublisher) Close() error {
	err := p.publisher.Close()
	if err != nil {
		return fmt.Errorf("failed to close batch publisher: %w", err)
	}

	return nil
}
