package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidStructure marks an automaton or grammar that violates its own declarations.
	ErrInvalidStructure = errors.New("invalid structure")
	// ErrMissingField is a structural error raised before any consistency check runs.
	ErrMissingField = fmt.Errorf("%w: missing required field", ErrInvalidStructure)

	ErrUpstreamOverloaded = errors.New("upstream overloaded")
	ErrUpstreamError      = errors.New("upstream error")
	ErrConfiguration      = errors.New("configuration error")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (user, conversation)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// UpstreamError carries the status and message returned by the LLM provider.
// It matches ErrUpstreamOverloaded when Overloaded is set, ErrUpstreamError otherwise.
type UpstreamError struct {
	StatusCode int // 0 when the request never produced a response
	Message    string
	Overloaded bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream: %s", e.Message)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is() to match against the upstream sentinels
func (e *UpstreamError) Is(target error) bool {
	if e.Overloaded {
		return target == ErrUpstreamOverloaded
	}
	return target == ErrUpstreamError
}
