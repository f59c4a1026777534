package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/pkg/auth"
	"github.com/getzep/cioexport/pkg/customerio"
	"github.com/getzep/cioexport/pkg/models"
	"github.com/getzep/cioexport/pkg/queue"
	"github.com/getzep/cioexport/pkg/server"
	"github.com/getzep/cioexport/pkg/source"
	"github.com/getzep/cioexport/pkg/telemetry"
)

const (
	ShutdownTimeout   = 30 * time.Second
	RouterStartupWait = 10 * time.Second
)

// run is the entrypoint for the cioexport server
func run() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring cioexport: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting cioexport server version %s", config.VersionString)

	config.SetLogLevel(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Error setting up telemetry: %s", err)
	}

	appState, closeAppState, err := NewAppState(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Kafka.Enabled {
		kafkaSource := source.NewKafkaSource(cfg.Kafka, appState.BatchPublisher)
		defer func() {
			if err := kafkaSource.Close(); err != nil {
				log.Errorf("Error closing kafka reader: %v", err)
			}
		}()
		go func() {
			if err := kafkaSource.Run(ctx); err != nil {
				log.Errorf("Kafka source stopped: %v", err)
				stop()
			}
		}()
	}

	srv, err := server.Create(appState)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		log.Infof("Listening on: %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error shutting down server: %v", err)
	}
	closeAppState()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Errorf("Error flushing traces: %v", err)
	}
}

// NewAppState creates an AppState from the config file / ENV. The exporter is
// set up against Customer.io and, when enabled, the batch queue router is
// started. The returned func tears both down.
func NewAppState(ctx context.Context, cfg *config.Config) (*models.AppState, func(), error) {
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	appState := &models.AppState{
		Exporter: exporter,
		Config:   cfg,
	}

	if !cfg.Queue.Enabled {
		return appState, exporter.Teardown, nil
	}

	router, err := queue.NewBatchRouter(cfg.Queue, exporter)
	if err != nil {
		exporter.Teardown()
		return nil, nil, fmt.Errorf("failed to create batch router: %w", err)
	}

	// The router outlives ctx so queued batches drain during shutdown.
	go func() {
		log.Info("running batch router")
		if err := router.Run(context.Background()); err != nil {
			log.Errorf("batch router stopped: %v", err)
		}
	}()

	waitCtx, cancel := context.WithTimeout(ctx, RouterStartupWait)
	defer cancel()
	if err := router.WaitRunning(waitCtx); err != nil {
		_ = router.Close()
		exporter.Teardown()
		return nil, nil, fmt.Errorf("batch router did not start: %w", err)
	}

	appState.BatchPublisher = router.Publisher()

	closeFn := func() {
		if err := router.Close(); err != nil {
			log.Errorf("Error closing batch router: %v", err)
		}
		exporter.Teardown()
	}

	return appState, closeFn, nil
}

// newExporter creates an Exporter and checks connectivity. Nothing is exported
// if the check fails.
func newExporter(ctx context.Context, cfg *config.Config) (*customerio.Exporter, error) {
	exporter := customerio.NewExporter(cfg.CustomerIO, nil)
	if err := exporter.Setup(ctx); err != nil {
		return nil, fmt.Errorf("failed to set up Customer.io exporter: %w", err)
	}
	log.Info("Customer.io connectivity check passed")
	return exporter, nil
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			log.Fatalf("Error dumping config: %s", err)
		}
		fmt.Print(string(out))
		os.Exit(0)
	}
	if generateToken {
		token, err := auth.GenerateJWT(cfg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		os.Exit(0)
	}
}
