package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/pkg/customerio"
	"github.com/getzep/cioexport/pkg/models"
	"github.com/getzep/cioexport/pkg/queue"
	"github.com/getzep/cioexport/pkg/testutils"
)

type stubProcessor struct {
	mu      sync.Mutex
	batches [][]models.Event
	ctxErr  error
	err     error
}

func (s *stubProcessor) ProcessBatch(ctx context.Context, events []models.Event) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, events)
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return nil, s.err
	}
	return events, nil
}

type publishedBatch struct {
	events   []models.Event
	metadata map[string]string
}

type stubPublisher struct {
	published chan publishedBatch
}

func (p *stubPublisher) Publish(_ context.Context, events []models.Event, metadata map[string]string) error {
	p.published <- publishedBatch{events: events, metadata: metadata}
	return nil
}

func (p *stubPublisher) Close() error {
	return nil
}

func newTestRouter(t *testing.T, processor models.BatchProcessor, publisher models.BatchPublisher) http.Handler {
	t.Helper()
	appState := &models.AppState{
		Exporter:       processor,
		BatchPublisher: publisher,
		Config:         &config.Config{},
	}
	router, err := setupRouter(appState)
	require.NoError(t, err)
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestPostBatchHandler(t *testing.T) {
	processor := &stubProcessor{}
	router := newTestRouter(t, processor, nil)

	res := postJSON(t, router, "/api/v1/batch", testutils.TestEvents)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/json", res.Header().Get("Content-Type"))

	var returned []models.Event
	require.NoError(t, json.NewDecoder(res.Body).Decode(&returned))
	assert.Len(t, returned, len(testutils.TestEvents))
	assert.Equal(t, testutils.TestEvents[1].DistinctID, returned[1].DistinctID)

	require.Len(t, processor.batches, 1)
	assert.Len(t, processor.batches[0], len(testutils.TestEvents))
	assert.NoError(t, processor.ctxErr)
}

func TestPostBatchHandlerEmptyBatch(t *testing.T) {
	processor := &stubProcessor{}
	router := newTestRouter(t, processor, nil)

	res := postJSON(t, router, "/api/v1/batch", []models.Event{})

	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, "[]", res.Body.String())
}

func TestPostBatchHandlerInvalidPayload(t *testing.T) {
	processor := &stubProcessor{}
	router := newTestRouter(t, processor, nil)

	t.Run("not json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch", bytes.NewBufferString("{"))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("missing event name", func(t *testing.T) {
		res := postJSON(t, router, "/api/v1/batch", []models.Event{{DistinctID: "user-1"}})

		assert.Equal(t, http.StatusBadRequest, res.Code)
		var apiErr APIError
		require.NoError(t, json.NewDecoder(res.Body).Decode(&apiErr))
		assert.Contains(t, apiErr.Message, "event 0 is invalid")
	})

	assert.Empty(t, processor.batches)
}

func TestPostEventHandler(t *testing.T) {
	processor := &stubProcessor{}
	router := newTestRouter(t, processor, nil)

	event := testutils.NewEventFaker(1).EmailEvent()
	res := postJSON(t, router, "/api/v1/events", event)

	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, processor.batches, 1)
	require.Len(t, processor.batches[0], 1)
	assert.Equal(t, event.DistinctID, processor.batches[0][0].DistinctID)
}

func TestExportErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not set up", customerio.ErrNotSetUp, http.StatusServiceUnavailable},
		{
			"resolution failure",
			models.NewCustomerResolutionError("user-1", models.StageActivityCheck, 500),
			http.StatusBadGateway,
		},
		{
			"transport failure",
			models.NewTransportError(http.MethodGet, "http://localhost", errors.New("refused")),
			http.StatusBadGateway,
		},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubProcessor{err: tt.err}, nil)

			res := postJSON(t, router, "/api/v1/batch", testutils.TestEvents)

			assert.Equal(t, tt.status, res.Code)
		})
	}
}

func TestPostBatchAsyncHandler(t *testing.T) {
	t.Run("queue disabled", func(t *testing.T) {
		router := newTestRouter(t, &stubProcessor{}, nil)

		res := postJSON(t, router, "/api/v1/batch/async", testutils.TestEvents)

		assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	})

	t.Run("enqueued", func(t *testing.T) {
		processor := &stubProcessor{}
		publisher := &stubPublisher{published: make(chan publishedBatch, 1)}
		router := newTestRouter(t, processor, publisher)

		res := postJSON(t, router, "/api/v1/batch/async", testutils.TestEvents)
		require.Equal(t, http.StatusAccepted, res.Code)

		select {
		case batch := <-publisher.published:
			assert.Len(t, batch.events, len(testutils.TestEvents))
			assert.Equal(t, "http", batch.metadata[queue.SourceMetadataKey])
			assert.NotEmpty(t, batch.metadata["request_id"])
		case <-time.After(5 * time.Second):
			t.Fatal("batch was not published")
		}
		assert.Empty(t, processor.batches)
	})

	t.Run("invalid batch is not enqueued", func(t *testing.T) {
		publisher := &stubPublisher{published: make(chan publishedBatch, 1)}
		router := newTestRouter(t, &stubProcessor{}, publisher)

		res := postJSON(t, router, "/api/v1/batch/async", []models.Event{{Event: "signed_up"}})

		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Empty(t, publisher.published)
	})
}
