package customerio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/getzep/cioexport/pkg/models"
)

// EventSubmitter posts events for customers that have already been resolved.
type EventSubmitter struct {
	sender    Sender
	endpoints Endpoints
}

func NewEventSubmitter(sender Sender, endpoints Endpoints) *EventSubmitter {
	return &EventSubmitter{sender: sender, endpoints: endpoints}
}

// Submit sends event to Customer.io. A non-2xx response, or properties that
// cannot be encoded, is logged and reported as OutcomeEventSubmitFailed with a
// nil error so the batch keeps going; only transport failures are returned.
func (s *EventSubmitter) Submit(
	ctx context.Context,
	event models.Event,
	cred Credential,
) (models.ExportOutcome, error) {
	body, err := eventForm(event)
	if err != nil {
		log.Warnf("unable to send event %s to Customer.io for %q: %v", event.Event, event.DistinctID, err)
		return models.OutcomeEventSubmitFailed, nil
	}

	header := cred.headers()
	header.Set("Content-Type", formContentType)

	resp, err := s.sender.Send(
		ctx,
		http.MethodPost,
		s.endpoints.CustomerEvents(event.DistinctID),
		header,
		body,
	)
	if err != nil {
		return models.OutcomeEventSubmitFailed, err
	}

	if !resp.OK() {
		failure := &models.EventSubmissionFailure{
			DistinctID: event.DistinctID,
			EventName:  event.Event,
			StatusCode: resp.StatusCode,
		}
		log.Warn(failure.Error())
		return models.OutcomeEventSubmitFailed, nil
	}

	return models.OutcomeSuccess, nil
}

// eventForm encodes name=<event>&data=<json properties>. Missing properties
// are sent as an empty object.
func eventForm(event models.Event) ([]byte, error) {
	properties := event.Properties
	if properties == nil {
		properties = map[string]interface{}{}
	}

	data, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("error encoding properties of event %s: %w", event.Event, err)
	}

	form := url.Values{
		"name": {event.Event},
		"data": {string(data)},
	}
	return []byte(form.Encode()), nil
}
