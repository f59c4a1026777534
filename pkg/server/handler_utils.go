package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/getzep/cioexport/pkg/customerio"
	"github.com/getzep/cioexport/pkg/models"
)

var validate = validator.New()

// APIError represents an error response.
type APIError struct {
	Message string `json:"message"`
}

// encodeJSON encodes data into JSON and writes it to the response writer.
func encodeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes a JSON request body into the provided data struct.
func decodeJSON(r *http.Request, data interface{}) error {
	return json.NewDecoder(r.Body).Decode(&data)
}

// validateEvents checks every event carries a distinct id and a name.
func validateEvents(events []models.Event) error {
	for i := range events {
		if err := validate.Struct(&events[i]); err != nil {
			return fmt.Errorf("event %d is invalid: %w", i, err)
		}
	}
	return nil
}

// exportErrorStatus maps an export failure to an HTTP status.
func exportErrorStatus(err error) int {
	switch {
	case errors.Is(err, customerio.ErrNotSetUp):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrCustomerResolution),
		errors.Is(err, models.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// renderError renders an error response.
func renderError(w http.ResponseWriter, err error, status int) {
	if status >= http.StatusInternalServerError {
		log.Error(err)
	} else {
		log.Debug(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{Message: err.Error()})
}
