package customerio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/getzep/cioexport/pkg/models"
)

const tracerName = "github.com/getzep/cioexport/pkg/customerio"

type customerResolver interface {
	Resolve(ctx context.Context, distinctID string, cred Credential) error
}

type eventSubmitter interface {
	Submit(ctx context.Context, event models.Event, cred Credential) (models.ExportOutcome, error)
}

// BatchExporter exports events one at a time, in order: resolve the customer,
// then submit the event.
type BatchExporter struct {
	resolver  customerResolver
	submitter eventSubmitter
}

func NewBatchExporter(sender Sender, endpoints Endpoints) *BatchExporter {
	return &BatchExporter{
		resolver:  NewCustomerResolver(sender, endpoints),
		submitter: NewEventSubmitter(sender, endpoints),
	}
}

// ExportBatch exports events sequentially and returns them unchanged. The
// first customer resolution or transport failure stops the batch and is
// returned; events exported before it are not rolled back. Rejected event
// submissions are logged and skipped.
func (b *BatchExporter) ExportBatch(
	ctx context.Context,
	events []models.Event,
	cred Credential,
) ([]models.Event, error) {
	batchID := uuid.New().String()
	ctx, span := otel.Tracer(tracerName).Start(
		ctx,
		"customerio.ExportBatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
			attribute.Int("batch.size", len(events)),
		),
	)
	defer span.End()

	logger := log.WithField("batch_id", batchID)
	start := time.Now()
	outcomes := make(map[models.ExportOutcome]int)

	for i := range events {
		// work on a copy so the caller's events are never touched
		var event models.Event
		if err := copier.CopyWithOption(&event, &events[i], copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("error copying event %d: %w", i, err)
		}

		outcome, err := b.exportEvent(ctx, event, cred)
		outcomes[outcome]++
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.WithFields(logrus.Fields{
				"event":       event.Event,
				"distinct_id": event.DistinctID,
				"index":       i,
				"outcome":     outcome,
			}).Errorf("batch export aborted: %v", err)
			return nil, fmt.Errorf("export of event %d (%s) failed: %w", i, event.Event, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"events":            len(events),
		"succeeded":         outcomes[models.OutcomeSuccess],
		"submission_failed": outcomes[models.OutcomeEventSubmitFailed],
		"duration":          time.Since(start),
	}).Info("exported batch to Customer.io")

	return events, nil
}

func (b *BatchExporter) exportEvent(
	ctx context.Context,
	event models.Event,
	cred Credential,
) (models.ExportOutcome, error) {
	if err := b.resolver.Resolve(ctx, event.DistinctID, cred); err != nil {
		return models.OutcomeCustomerCreateFailed, err
	}

	return b.submitter.Submit(ctx, event, cred)
}
