package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinels for the error classes callers branch on. They are attached to
// the wrapped *APIError, so errors.Is works on anything the client returns.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrServer             = errors.New("server error")
)

// APIError is the decoded `{error:{code,message,details}}` body of a non-2xx
// response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		if e.Code == "invalid_credentials" {
			return ErrInvalidCredentials
		}
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}

	if e.Status >= 500 {
		return ErrServer
	}

	return nil
}

// FieldIssue is one field-level problem found before anything hit the wire.
type FieldIssue struct {
	Field   string
	Message string
}

// ValidationError is raised locally; a request that fails validation never
// reaches the network.
type ValidationError struct {
	Fields []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(e.Fields))

	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}

	return "validation failed: " + strings.Join(parts, "; ")
}
