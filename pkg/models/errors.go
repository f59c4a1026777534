package models

import (
	"errors"
	"fmt"
)

var (
	ErrConnectivity       = errors.New("unable to connect to Customer.io")
	ErrTransport          = errors.New("transport failure")
	ErrCustomerResolution = errors.New("customer resolution failed")
	ErrEventSubmission    = errors.New("event submission failed")
)

// ConnectivityError is returned when the startup connectivity check gets a
// non-2xx response. Nothing may be exported after it.
type ConnectivityError struct {
	StatusCode int
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: connectivity check returned status %d", ErrConnectivity, e.StatusCode)
}

func (e *ConnectivityError) Unwrap() error {
	return ErrConnectivity
}

func NewConnectivityError(statusCode int) error {
	return &ConnectivityError{StatusCode: statusCode}
}

// TransportError is returned once a request and its single retry both failed
// before any response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request to %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func NewTransportError(method, url string, err error) error {
	return &TransportError{Method: method, URL: url, Err: err}
}

// ResolutionStage names the request whose status decided a
// CustomerResolutionError.
type ResolutionStage string

const (
	StageActivityCheck  ResolutionStage = "activity_check"
	StageCustomerCreate ResolutionStage = "customer_create"
)

// CustomerResolutionError is returned when the customer activity check or the
// customer create/update call ends in a non-2xx status. It aborts the batch.
type CustomerResolutionError struct {
	DistinctID string
	Stage      ResolutionStage
	StatusCode int
}

func (e *CustomerResolutionError) Error() string {
	return fmt.Sprintf(
		"%s for %q: %s returned status %d",
		ErrCustomerResolution,
		e.DistinctID,
		e.Stage,
		e.StatusCode,
	)
}

func (e *CustomerResolutionError) Unwrap() error {
	return ErrCustomerResolution
}

func NewCustomerResolutionError(distinctID string, stage ResolutionStage, statusCode int) error {
	return &CustomerResolutionError{DistinctID: distinctID, Stage: stage, StatusCode: statusCode}
}

// EventSubmissionFailure describes a rejected event POST. It is logged and
// the batch moves on; it is never returned from a batch export.
type EventSubmissionFailure struct {
	DistinctID string
	EventName  string
	StatusCode int
}

func (e *EventSubmissionFailure) Error() string {
	return fmt.Sprintf(
		"unable to send event %s to Customer.io for %q: status %d",
		e.EventName,
		e.DistinctID,
		e.StatusCode,
	)
}

func (e *EventSubmissionFailure) Unwrap() error {
	return ErrEventSubmission
}
