package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/getzep/cioexport/pkg/models"
)

var validate = validator.New()

var ErrEmptyBatch = errors.New("message carries no events")

// DecodeBatch decodes a message value holding either a single event object
// or an array of events. Every event must carry a distinct id and a name.
func DecodeBatch(payload []byte) ([]models.Event, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ErrEmptyBatch
	}

	var events []models.Event
	if payload[0] == '[' {
		if err := json.Unmarshal(payload, &events); err != nil {
			return nil, fmt.Errorf("failed to decode event batch: %w", err)
		}
	} else {
		var event models.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = []models.Event{event}
	}

	if len(events) == 0 {
		return nil, ErrEmptyBatch
	}

	for i := range events {
		if err := validate.Struct(&events[i]); err != nil {
			return nil, fmt.Errorf("event %d is invalid: %w", i, err)
		}
	}

	return events, nil
}
