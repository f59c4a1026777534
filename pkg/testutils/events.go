package testutils

import (
	"github.com/brianvoe/gofakeit/v6"

	"github.com/getzep/cioexport/pkg/models"
)

var eventNames = []string{
	"$pageview",
	"signed_up",
	"checkout_started",
	"plan_upgraded",
	"invite_sent",
}

// EventFaker builds realistic fake events. A fixed seed yields the same
// sequence on every run.
type EventFaker struct {
	faker *gofakeit.Faker
}

func NewEventFaker(seed int64) *EventFaker {
	return &EventFaker{faker: gofakeit.New(seed)}
}

// EmailEvent returns an event whose distinct id is an email address.
func (f *EventFaker) EmailEvent() models.Event {
	return models.Event{
		DistinctID: f.faker.Email(),
		Event:      f.faker.RandomString(eventNames),
		Properties: f.properties(),
	}
}

// OpaqueEvent returns an event whose distinct id is an opaque identifier.
func (f *EventFaker) OpaqueEvent() models.Event {
	return models.Event{
		DistinctID: f.faker.UUID(),
		Event:      f.faker.RandomString(eventNames),
		Properties: f.properties(),
	}
}

// Batch returns n events alternating between email and opaque identities.
func (f *EventFaker) Batch(n int) []models.Event {
	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			events = append(events, f.EmailEvent())
		} else {
			events = append(events, f.OpaqueEvent())
		}
	}
	return events
}

func (f *EventFaker) properties() map[string]interface{} {
	return map[string]interface{}{
		"$current_url": f.faker.URL(),
		"$browser":     f.faker.RandomString([]string{"Chrome", "Firefox", "Safari"}),
		"plan":         f.faker.RandomString([]string{"free", "team", "enterprise"}),
		"seats":        f.faker.Number(1, 50),
	}
}
