package models

// Event is one analytics occurrence handed to the exporter by the host
// pipeline. The exporter never mutates an Event.
type Event struct {
	DistinctID string                 `json:"distinct_id" validate:"required"`
	Event      string                 `json:"event"       validate:"required"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// CustomerIdentity classifies an Event's DistinctID.
type CustomerIdentity int

const (
	IdentityOpaque CustomerIdentity = iota
	IdentityEmail
)

func (c CustomerIdentity) String() string {
	if c == IdentityEmail {
		return "email"
	}
	return "opaque"
}

// ExportOutcome is the per-event result of an export. It is reported, never
// stored.
type ExportOutcome int

const (
	OutcomeSuccess ExportOutcome = iota
	OutcomeCustomerCreateFailed
	OutcomeEventSubmitFailed
)

func (o ExportOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCustomerCreateFailed:
		return "customer_create_failed"
	case OutcomeEventSubmitFailed:
		return "event_submit_failed"
	default:
		return "unknown"
	}
}
