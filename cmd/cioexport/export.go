package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/pkg/models"
	"github.com/getzep/cioexport/pkg/source"
	"github.com/getzep/cioexport/pkg/testutils"
)

// exportFromFile exports the events in path ("-" for stdin) as one batch.
func exportFromFile(ctx context.Context, path string, out io.Writer) error {
	// stdout carries the exported events
	log.SetOutput(os.Stderr)

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("error configuring cioexport: %w", err)
	}
	config.SetLogLevel(cfg)

	events, err := readEvents(path)
	if err != nil {
		return err
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return err
	}
	defer exporter.Teardown()

	return exportEvents(ctx, exporter, events, out)
}

func exportEvents(
	ctx context.Context,
	processor models.BatchProcessor,
	events []models.Event,
	out io.Writer,
) error {
	exported, err := processor.ProcessBatch(ctx, events)
	if err != nil {
		return err
	}
	log.Infof("Exported %d events", len(exported))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(exported)
}

func readEvents(path string) ([]models.Event, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return source.DecodeBatch(data)
}

// writeFixtures writes count fake events to path as a JSON array.
func writeFixtures(path string, count int, seed int64) error {
	events := testutils.NewEventFaker(seed).Batch(count)

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal fixtures: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create fixture directory: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
