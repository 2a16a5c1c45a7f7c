package jira

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// APIError is a non-2xx answer from the tracker. FieldErrors merges the
// per-field messages of single-issue and bulk error bodies.
type APIError struct {
	StatusCode  int
	Messages    []string
	FieldErrors map[string]string
	Body        []byte
}

func (e *APIError) Error() string {
	parts := append([]string(nil), e.Messages...)
	for k, v := range e.FieldErrors {
		parts = append(parts, k+": "+v)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("jira http %d", e.StatusCode)
	}
	return fmt.Sprintf("jira http %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// ReporterRejected reports whether the tracker refused the reporter field.
func (e *APIError) ReporterRejected() bool {
	_, ok := e.FieldErrors["reporter"]
	return ok
}

// IsReporterRejected unwraps err looking for a reporter validation failure.
func IsReporterRejected(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ReporterRejected()
	}
	return false
}

type errorCollection struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: body, FieldErrors: map[string]string{}}

	// Single issue: {"errorMessages": [...], "errors": {"field": "msg"}}
	var single errorCollection
	if json.Unmarshal(body, &single) == nil {
		e.Messages = append(e.Messages, single.ErrorMessages...)
		for k, v := range single.Errors {
			e.FieldErrors[k] = v
		}
		return e
	}

	// Bulk: {"issues": [], "errors": [{"elementErrors": {...}, "failedElementNumber": 0}]}
	var bulk struct {
		Errors []struct {
			ElementErrors errorCollection `json:"elementErrors"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &bulk) == nil {
		for _, el := range bulk.Errors {
			e.Messages = append(e.Messages, el.ElementErrors.ErrorMessages...)
			for k, v := range el.ElementErrors.Errors {
				e.FieldErrors[k] = v
			}
		}
	}
	return e
}
