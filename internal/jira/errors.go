package jira

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the tracker has no issue for a requested key.
var ErrNotFound = errors.New("issue not found")

// APIError is a structured error returned by the tracker's REST API.
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Messages) > 0 {
		return fmt.Sprintf("tracker error (status %d): %s", e.Status, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("tracker error (status %d)", e.Status)
}
