package testutils

import "github.com/getzep/cioexport/pkg/models"

var TestEvents = []models.Event{
	{
		DistinctID: "jane@example.com",
		Event:      "$pageview",
		Properties: map[string]interface{}{
			"$current_url": "https://example.com/pricing",
		},
	},
	{
		DistinctID: "user-42",
		Event:      "signed_up",
		Properties: map[string]interface{}{
			"plan": "team",
		},
	},
	{
		DistinctID: "jane@example.com",
		Event:      "checkout_started",
	},
}
