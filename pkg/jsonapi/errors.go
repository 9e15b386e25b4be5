package jsonapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorObject represents a single entry of a JSON:API "errors" array.
type ErrorObject struct {
	Title  string         `json:"title"  yaml:"title"`
	Status string         `json:"status" yaml:"status"`
	Detail string         `json:"detail" yaml:"detail"`
	Links  map[string]any `json:"links"  yaml:"links"`
}

// Error implements the error interface.
func (e *ErrorObject) Error() string {
	parts := make([]string, 0, 3)

	if e.Title != "" {
		parts = append(parts, e.Title)
	}

	if e.Status != "" {
		parts = append(parts, "status "+e.Status)
	}

	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}

	if len(parts) == 0 {
		return "unknown error"
	}

	return strings.Join(parts, ": ")
}

// Static errors for err113 compliance.
var (
	ErrInvalidResponse  = errors.New("invalid response")
	ErrValueRequired    = errors.New("a value is required for this operator")
	ErrValueArity       = errors.New("operator requires exactly two values")
	ErrUnexpectedValue  = errors.New("operator does not accept a value")
	ErrUnknownOperator  = errors.New("unknown filter operator")
	ErrUnknownMacro     = errors.New("unknown macro")
	ErrInvalidPath      = errors.New("invalid field path")
	ErrNoResults        = errors.New("no results")
	ErrExcludedByGate   = errors.New("entry excluded by gate")
	ErrNoHTTPClient     = errors.New("no HTTP client configured")
	ErrInvalidBatchSize = errors.New("batch size must be greater than zero")
	ErrConfigRequired   = errors.New("config is required")
	ErrBaseURLRequired  = errors.New("base URL is required")
	ErrFalsyConfigValue = errors.New("falsy config value")
	ErrUnknownConfigKey = errors.New("unknown or undefined config value")
	ErrConfigNotLoaded  = errors.New("config values are not set")
	ErrHTTPStatus       = errors.New("unexpected HTTP status")
)

// InvalidResponseError is returned when a response carries a JSON:API error
// payload or does not have the shape of a JSON:API document.
type InvalidResponseError struct {
	// URL is the request URL that produced the response.
	URL string
	// Reason describes a structural failure when no error object is available.
	Reason string
	// First is the first error object of an error payload, if any.
	First *ErrorObject
	// Errors holds every error object of an error payload.
	Errors []ErrorObject
}

// Error implements the error interface.
func (e *InvalidResponseError) Error() string {
	msg := ErrInvalidResponse.Error()

	switch {
	case e.First != nil:
		msg += ": " + e.First.Error()
	case e.Reason != "":
		msg += ": " + e.Reason
	}

	if e.URL != "" {
		msg += fmt.Sprintf(" (url: %s)", e.URL)
	}

	return msg
}

// Is reports whether target is ErrInvalidResponse.
func (e *InvalidResponseError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// UnknownMacroError is returned when a macro name is not registered.
type UnknownMacroError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownMacroError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownMacro, e.Name)
}

// Is reports whether target is ErrUnknownMacro.
func (e *UnknownMacroError) Is(target error) bool {
	return target == ErrUnknownMacro
}

// HTTPError is returned by the transport for responses with a 4xx or 5xx status.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	// Errors holds the JSON:API error objects of the body, if it had any.
	Errors []ErrorObject
	Body   []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %d for %s %s", ErrHTTPStatus, e.StatusCode, e.Method, e.URL)
	if len(e.Errors) > 0 {
		msg += ": " + e.Errors[0].Error()
	}

	return msg
}

// Is reports whether target is ErrHTTPStatus.
func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// IsInvalidResponse checks if the error is an invalid response error.
func IsInvalidResponse(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}

// IsNotFound checks if the error is a 404 HTTP error or an invalid response
// carrying a 404 error object.
func IsNotFound(err error) bool {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound
	}

	respErr := &InvalidResponseError{}
	if errors.As(err, &respErr) && respErr.First != nil {
		return respErr.First.Status == "404"
	}

	return false
}

// ParseErrors parses the "errors" member of a JSON:API error document.
func ParseErrors(data []byte) ([]ErrorObject, error) {
	var doc struct {
		Errors []ErrorObject `json:"errors"`
	}

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response errors: %w", err)
	}

	return doc.Errors, nil
}
