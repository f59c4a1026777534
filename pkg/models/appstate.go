package models

import (
	"context"

	"github.com/getzep/cioexport/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	Exporter       BatchProcessor
	BatchPublisher BatchPublisher
	Config         *config.Config
}

// BatchProcessor exports a batch of events and hands the same events back so
// the caller can keep them flowing down its pipeline.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, events []Event) ([]Event, error)
}

// BatchPublisher enqueues a batch for asynchronous export.
type BatchPublisher interface {
	Publish(ctx context.Context, events []Event, metadata map[string]string) error
	Close() error
}
