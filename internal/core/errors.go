// Package core provides the domain types, errors and interfaces of the shipping service.
package core

import (
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeUpstreamUnavailable indicates the quote service could not be reached (503)
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	// ErrorTypeMalformedResponse indicates the quote service returned an unparseable body (502)
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	// ErrorTypeInvalidOrderPayload indicates a malformed inbound order (400)
	ErrorTypeInvalidOrderPayload ErrorType = "invalid_order_payload"
	// ErrorTypeInvalidRequest indicates any other client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAuthentication indicates an authentication error (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
)

// ShippingError is the base error type for all errors surfaced by the service
type ShippingError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *ShippingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ShippingError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *ShippingError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeMalformedResponse:
		return http.StatusBadGateway
	case ErrorTypeInvalidOrderPayload, ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *ShippingError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewUpstreamUnavailableError creates an error for a quote service that could not be reached
// or answered with a non-success status.
func NewUpstreamUnavailableError(message string, err error) *ShippingError {
	return &ShippingError{
		Type:       ErrorTypeUpstreamUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewMalformedResponseError creates an error for a quote body that is not a price
func NewMalformedResponseError(message string, err error) *ShippingError {
	return &ShippingError{
		Type:       ErrorTypeMalformedResponse,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// NewInvalidOrderPayloadError creates an error for an order that fails to decode or validate (400)
func NewInvalidOrderPayloadError(message string, err error) *ShippingError {
	return &ShippingError{
		Type:       ErrorTypeInvalidOrderPayload,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *ShippingError {
	return &ShippingError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(message string) *ShippingError {
	return &ShippingError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}
