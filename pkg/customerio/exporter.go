package customerio

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/pkg/models"
)

var ErrNotSetUp = errors.New("customer.io exporter is not set up")

var _ models.BatchProcessor = &Exporter{}

// Exporter ties the export pipeline to the host lifecycle: Setup once at
// startup, ProcessBatch for each incoming batch, Teardown on shutdown.
type Exporter struct {
	cfg        config.CustomerIOConfig
	sender     Sender
	endpoints  Endpoints
	batch      *BatchExporter
	credential atomic.Pointer[Credential]
}

// NewExporter returns an Exporter for cfg. When sender is nil a
// RetryableTransport with cfg.RequestTimeout is used.
func NewExporter(cfg config.CustomerIOConfig, sender Sender) *Exporter {
	if sender == nil {
		sender = NewRetryableTransport(cfg.RequestTimeout, nil)
	}
	endpoints := NewEndpoints(cfg)

	return &Exporter{
		cfg:       cfg,
		sender:    sender,
		endpoints: endpoints,
		batch:     NewBatchExporter(sender, endpoints),
	}
}

// Setup builds the credential and verifies connectivity. It must succeed
// before any batch is processed.
func (e *Exporter) Setup(ctx context.Context) error {
	cred, err := Bootstrap(ctx, e.sender, e.endpoints, e.cfg.SiteID, e.cfg.Token)
	if err != nil {
		return err
	}

	e.credential.Store(&cred)

	return nil
}

// ProcessBatch exports events with the credential established by Setup.
func (e *Exporter) ProcessBatch(ctx context.Context, events []models.Event) ([]models.Event, error) {
	cred := e.credential.Load()
	if cred == nil {
		return nil, ErrNotSetUp
	}

	return e.batch.ExportBatch(ctx, events, *cred)
}

// Teardown discards the credential. Later batches fail with ErrNotSetUp.
func (e *Exporter) Teardown() {
	e.credential.Store(nil)
}
