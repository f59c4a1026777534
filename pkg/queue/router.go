package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	wla "github.com/ma-hartma/watermill-logrus-adapter"
	wotel "github.com/voi-oss/watermill-opentelemetry/pkg/opentelemetry"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/internal"
	"github.com/getzep/cioexport/pkg/models"
)

var log = internal.GetLogger()
var wlogger = wla.NewLogrusLogger(log)

const PoisonTopicSuffix = "_poison"

const (
	exportHandlerName = "customerio_export"
	poisonHandlerName = "customerio_export_poison"
)

// BatchRouter is a wrapper around watermill's Router that exports queued
// batches to Customer.io. Batches travel over an in-process GoChannel.
// A batch whose export fails is moved to the poison topic and never
// redelivered.
type BatchRouter struct {
	*message.Router
	pubSub *gochannel.GoChannel
	topic  string
}

// NewBatchRouter creates a BatchRouter that hands every batch published to
// cfg.Topic to processor.
func NewBatchRouter(cfg config.QueueConfig, processor models.BatchProcessor) (*BatchRouter, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			// Publish returns once the batch has been exported or poisoned
			BlockPublishUntilSubscriberAck: true,
		},
		wlogger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, wlogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	poisonTopic := cfg.Topic + PoisonTopicSuffix
	poisonQueue, err := middleware.PoisonQueue(pubSub, poisonTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create poison queue: %w", err)
	}

	router.AddMiddleware(
		// CorrelationID will copy the correlation id from the incoming message's metadata to the produced messages
		middleware.CorrelationID,
		// Trace starts a span per handled batch.
		wotel.Trace(),
		// PoisonQueue acks failed batches after publishing them to the poison topic.
		poisonQueue,
		// Recoverer turns handler panics into errors so they are poisoned too.
		middleware.Recoverer,
	)

	router.AddNoPublisherHandler(
		exportHandlerName,
		cfg.Topic,
		pubSub,
		ExportHandler(processor),
	)
	router.AddNoPublisherHandler(
		poisonHandlerName,
		poisonTopic,
		pubSub,
		PoisonHandler(),
	)

	return &BatchRouter{
		Router: router,
		pubSub: pubSub,
		topic:  cfg.Topic,
	}, nil
}

// Publisher returns a traced BatchPublisher for the router's topic.
func (br *BatchRouter) Publisher() *BatchPublisher {
	return NewBatchPublisher(wotel.NewPublisherDecorator(br.pubSub), br.topic)
}

// WaitRunning blocks until the router's handlers are subscribed or ctx is done.
// Batches published before that are dropped by the GoChannel.
func (br *BatchRouter) WaitRunning(ctx context.Context) error {
	select {
	case <-br.Running():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (br *BatchRouter) Close() (err error) {
	routerErr := br.Router.Close()
	defer func() {
		pubSubErr := br.pubSub.Close()
		if err == nil {
			err = pubSubErr
		}
	}()
	if routerErr != nil {
		err = routerErr
	}
	return err
}

// ExportHandler returns a message handler that exports the batch carried by
// the message. Handlers are NoPublishHandlerFuncs i.e. do not publish messages.
func ExportHandler(processor models.BatchProcessor) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var events []models.Event
		if err := json.Unmarshal(msg.Payload, &events); err != nil {
			return fmt.Errorf("failed to unmarshal batch %s: %w", msg.UUID, err)
		}

		log.Debugf("exporting queued batch %s with %d events", msg.UUID, len(events))

		if _, err := processor.ProcessBatch(msg.Context(), events); err != nil {
			return fmt.Errorf("failed to export batch %s: %w", msg.UUID, err)
		}
		return nil
	}
}

// PoisonHandler logs batches that could not be exported.
func PoisonHandler() message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		log.WithFields(map[string]interface{}{
			"message_uuid":   msg.UUID,
			"correlation_id": middleware.MessageCorrelationID(msg),
			"reason":         msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			"source":         msg.Metadata.Get(SourceMetadataKey),
		}).Error("batch poisoned")
		return nil
	}
}
