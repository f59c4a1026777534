package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/segmentio/kafka-go"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/internal"
	"github.com/getzep/cioexport/pkg/models"
	"github.com/getzep/cioexport/pkg/queue"
)

var log = internal.GetLogger()

const (
	kafkaMinBytes = 1
	kafkaMaxBytes = 10_000_000 // 10MB
	kafkaMaxWait  = 500 * time.Millisecond

	FetchMaxRetries     = 10
	FetchInitialBackoff = 500 * time.Millisecond
	FetchMaxBackoff     = 30 * time.Second
)

// messageReader is the subset of *kafka.Reader used by KafkaSource.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes event batches from a Kafka topic and publishes them to
// the batch queue. Offsets are committed once a batch has been handed off.
// Messages that do not decode are logged and committed so they are not
// fetched again.
type KafkaSource struct {
	reader      messageReader
	publisher   models.BatchPublisher
	fetchPolicy retrypolicy.RetryPolicy[kafka.Message]
}

func NewKafkaSource(cfg config.KafkaConfig, publisher models.BatchPublisher) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: kafkaMinBytes,
		MaxBytes: kafkaMaxBytes,
		MaxWait:  kafkaMaxWait,
	})

	return newKafkaSource(
		reader,
		publisher,
		newFetchRetryPolicy(FetchInitialBackoff, FetchMaxBackoff, FetchMaxRetries),
	)
}

func newKafkaSource(
	reader messageReader,
	publisher models.BatchPublisher,
	fetchPolicy retrypolicy.RetryPolicy[kafka.Message],
) *KafkaSource {
	return &KafkaSource{
		reader:      reader,
		publisher:   publisher,
		fetchPolicy: fetchPolicy,
	}
}

// newFetchRetryPolicy retries broker fetch errors with exponential backoff.
// Cancellation and a closed reader end the fetch loop instead.
func newFetchRetryPolicy(
	delay, maxDelay time.Duration,
	maxRetries int,
) retrypolicy.RetryPolicy[kafka.Message] {
	return retrypolicy.Builder[kafka.Message]().
		HandleIf(func(_ kafka.Message, err error) bool {
			return err != nil && !isTerminalFetchError(err)
		}).
		WithBackoff(delay, maxDelay).
		WithMaxRetries(maxRetries).
		Build()
}

func isTerminalFetchError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF)
}

// Run fetches messages until ctx is cancelled. It returns nil on cancellation
// and an error when fetching keeps failing or a batch cannot be handed off.
func (s *KafkaSource) Run(ctx context.Context) error {
	log.Info("kafka source started")
	for {
		msg, err := s.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				log.Info("kafka source stopped")
				return nil
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		if err := s.handle(ctx, msg); err != nil {
			return err
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit kafka offset %d: %w", msg.Offset, err)
		}
	}
}

func (s *KafkaSource) fetch(ctx context.Context) (kafka.Message, error) {
	return failsafe.Get(func() (kafka.Message, error) {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil && !isTerminalFetchError(err) {
			log.Warnf("kafka fetch failed: %v", err)
		}
		return msg, err
	}, s.fetchPolicy)
}

func (s *KafkaSource) handle(ctx context.Context, msg kafka.Message) error {
	events, err := DecodeBatch(msg.Value)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Errorf("skipping undecodable kafka message: %v", err)
		return nil
	}

	metadata := map[string]string{
		queue.SourceMetadataKey: "kafka",
		"kafka_topic":           msg.Topic,
		"kafka_partition":       strconv.Itoa(msg.Partition),
		"kafka_offset":          strconv.FormatInt(msg.Offset, 10),
	}
	if err := s.publisher.Publish(ctx, events, metadata); err != nil {
		return fmt.Errorf("failed to publish batch from kafka offset %d: %w", msg.Offset, err)
	}

	return nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
