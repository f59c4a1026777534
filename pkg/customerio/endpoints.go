package customerio

import (
	"net/url"
	"strings"

	"github.com/getzep/cioexport/config"
)

// Endpoints holds the two Customer.io API hosts. Customer lookups and the
// connectivity check go to the info API; customer writes and events go to the
// tracking API.
type Endpoints struct {
	InfoAPI  string
	TrackAPI string
}

// DefaultEndpoints are Customer.io's public hosts.
var DefaultEndpoints = Endpoints{
	InfoAPI:  config.DefaultInfoAPIURL,
	TrackAPI: config.DefaultTrackAPIURL,
}

// NewEndpoints builds Endpoints from config, falling back to the defaults for
// empty values.
func NewEndpoints(cfg config.CustomerIOConfig) Endpoints {
	e := Endpoints{
		InfoAPI:  strings.TrimRight(cfg.InfoAPIURL, "/"),
		TrackAPI: strings.TrimRight(cfg.TrackAPIURL, "/"),
	}
	if e.InfoAPI == "" {
		e.InfoAPI = DefaultEndpoints.InfoAPI
	}
	if e.TrackAPI == "" {
		e.TrackAPI = DefaultEndpoints.TrackAPI
	}
	return e
}

func (e Endpoints) IPAddresses() string {
	return e.InfoAPI + "/v1/api/info/ip_addresses"
}

func (e Endpoints) Activities(distinctID string) string {
	return e.InfoAPI + "/v1/api/activities?customer_id=" + url.QueryEscape(distinctID)
}

func (e Endpoints) Customer(distinctID string) string {
	return e.TrackAPI + "/api/v1/customers/" + url.PathEscape(distinctID)
}

func (e Endpoints) CustomerEvents(distinctID string) string {
	return e.Customer(distinctID) + "/events"
}
