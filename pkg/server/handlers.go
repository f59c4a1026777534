package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/getzep/cioexport/pkg/models"
	"github.com/getzep/cioexport/pkg/queue"
)

var ErrQueueDisabled = errors.New("batch queue is not enabled")

// PostBatchHandler exports a JSON array of events and returns them unchanged.
// The export is not cancelled when the client goes away.
func PostBatchHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var events []models.Event
		if err := decodeJSON(r, &events); err != nil {
			renderError(w, fmt.Errorf("unable to decode batch: %w", err), http.StatusBadRequest)
			return
		}

		exportEvents(w, r, appState, events)
	}
}

// PostEventHandler exports a single event as a batch of one.
func PostEventHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event models.Event
		if err := decodeJSON(r, &event); err != nil {
			renderError(w, fmt.Errorf("unable to decode event: %w", err), http.StatusBadRequest)
			return
		}

		exportEvents(w, r, appState, []models.Event{event})
	}
}

// PostBatchAsyncHandler validates a batch, hands it to the queue and returns
// 202 without waiting for the export.
func PostBatchAsyncHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if appState.BatchPublisher == nil {
			renderError(w, ErrQueueDisabled, http.StatusServiceUnavailable)
			return
		}

		var events []models.Event
		if err := decodeJSON(r, &events); err != nil {
			renderError(w, fmt.Errorf("unable to decode batch: %w", err), http.StatusBadRequest)
			return
		}
		if err := validateEvents(events); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		metadata := map[string]string{
			queue.SourceMetadataKey: "http",
			"request_id":            middleware.GetReqID(r.Context()),
		}
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := appState.BatchPublisher.Publish(ctx, events, metadata); err != nil {
				log.Errorf("unable to enqueue batch: %v", err)
			}
		}()

		w.WriteHeader(http.StatusAccepted)
	}
}

func exportEvents(
	w http.ResponseWriter,
	r *http.Request,
	appState *models.AppState,
	events []models.Event,
) {
	if err := validateEvents(events); err != nil {
		renderError(w, err, http.StatusBadRequest)
		return
	}

	exported, err := appState.Exporter.ProcessBatch(context.WithoutCancel(r.Context()), events)
	if err != nil {
		renderError(w, err, exportErrorStatus(err))
		return
	}

	if exported == nil {
		exported = []models.Event{}
	}
	if err := encodeJSON(w, exported); err != nil {
		log.Errorf("unable to encode response: %v", err)
	}
}
