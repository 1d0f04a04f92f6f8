// Package errors defines custom error types and error handling utilities for the Astra-Grid service.
// This package provides structured error kinds that drive the pipeline's retry policy and map to HTTP status codes.
package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error for retry and reporting decisions
type Kind string

const (
	KindLowConfidenceExtraction Kind = "low_confidence_extraction"
	KindStageTimeout            Kind = "stage_timeout"
	KindMalformedInput          Kind = "malformed_input"
	KindDependencyUnavailable   Kind = "dependency_unavailable"
	KindNotFound                Kind = "not_found"
	KindConflict                Kind = "conflict"
	KindCancelled               Kind = "cancelled"
	KindInternal                Kind = "internal"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// GridError represents a structured error with additional metadata
type GridError interface {
	error

	// Kind returns the error classification
	Kind() Kind

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) GridError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) GridError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	kind        Kind
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface
func (e *baseError) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.description
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *baseError) Kind() Kind {
	return e.kind
}

func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

func (e *baseError) Description() string {
	return e.description
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) WithCause(cause error) GridError {
	e.cause = cause
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) GridError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// NewError creates a new GridError with the specified parameters
func NewError(kind Kind, httpStatus int, description string, message string) GridError {
	return &baseError{
		kind:        kind,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Pipeline Error Constructors
// ================================================================================

// ErrLowConfidence reports an extraction whose confidence stayed below the threshold
func ErrLowConfidence(componentID string, confidence, threshold float64) GridError {
	return NewError(
		KindLowConfidenceExtraction,
		http.StatusUnprocessableEntity,
		"Extraction confidence below acceptance threshold; a rescan is required.",
		fmt.Sprintf("extraction confidence %.3f below %.2f for component %s", confidence, threshold, componentID),
	).WithMetadata("component_id", componentID).
		WithMetadata("confidence", confidence)
}

// ErrStageTimeout reports a stage call that exceeded its upper bound
func ErrStageTimeout(stage string, timeout time.Duration) GridError {
	return NewError(
		KindStageTimeout,
		http.StatusGatewayTimeout,
		"A pipeline stage did not complete within its time bound.",
		fmt.Sprintf("stage %s timed out after %s", stage, timeout),
	).WithMetadata("stage", stage)
}

// ErrMalformedInput reports non-retryable invalid input
func ErrMalformedInput(message string) GridError {
	return NewError(
		KindMalformedInput,
		http.StatusBadRequest,
		"The request is missing a required parameter or is otherwise malformed.",
		message,
	)
}

// ErrDependencyUnavailable reports an unreachable external dependency
func ErrDependencyUnavailable(dependency string, cause error) GridError {
	return NewError(
		KindDependencyUnavailable,
		http.StatusServiceUnavailable,
		"An external dependency is currently unreachable.",
		fmt.Sprintf("%s unavailable", dependency),
	).WithCause(cause).
		WithMetadata("dependency", dependency)
}

// ErrScanNotFound reports an unknown scan id
func ErrScanNotFound(scanID string) GridError {
	return NewError(
		KindNotFound,
		http.StatusNotFound,
		"Scan not found",
		fmt.Sprintf("scan not found: %s", scanID),
	).WithMetadata("scan_id", scanID)
}

// ErrComponentNotFound reports an unknown digital twin component
func ErrComponentNotFound(componentID string) GridError {
	return NewError(
		KindNotFound,
		http.StatusNotFound,
		"Component not found",
		fmt.Sprintf("component not found: %s", componentID),
	).WithMetadata("component_id", componentID)
}

// ErrInvalidSector reports a sector id that does not match the sector format
func ErrInvalidSector(sector string) GridError {
	return ErrMalformedInput(fmt.Sprintf("invalid sector id %q", sector)).
		WithMetadata("sector", sector)
}

// ErrWorkflowTerminal reports an operation on a workflow that already finished
func ErrWorkflowTerminal(scanID string, stage string) GridError {
	return NewError(
		KindConflict,
		http.StatusConflict,
		"The workflow already reached a terminal stage.",
		fmt.Sprintf("scan %s is already %s", scanID, stage),
	).WithMetadata("scan_id", scanID)
}

// ErrCancelled reports a workflow stopped by an operator
func ErrCancelled(scanID string) GridError {
	return NewError(
		KindCancelled,
		http.StatusConflict,
		"The workflow was cancelled.",
		fmt.Sprintf("scan %s cancelled", scanID),
	).WithMetadata("scan_id", scanID)
}

// ErrQueueFull reports that the orchestrator cannot accept more workflows
func ErrQueueFull(capacity int) GridError {
	return NewError(
		KindDependencyUnavailable,
		http.StatusServiceUnavailable,
		"The orchestrator queue is full. Please try again later.",
		fmt.Sprintf("workflow queue full (capacity %d)", capacity),
	).WithMetadata("capacity", capacity)
}

// ErrShuttingDown reports a request that arrived after shutdown began
func ErrShuttingDown() GridError {
	return NewError(
		KindDependencyUnavailable,
		http.StatusServiceUnavailable,
		"The orchestrator is shutting down.",
		"orchestrator is shutting down",
	)
}

// ErrInternal wraps an unexpected failure
func ErrInternal(message string, cause error) GridError {
	return NewError(
		KindInternal,
		http.StatusInternalServerError,
		"The server encountered an unexpected condition.",
		message,
	).WithCause(cause)
}

// ================================================================================
// Error Inspection
// ================================================================================

// KindOf returns the kind of the first GridError in err's chain, or KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ge GridError
	if goerrors.As(err, &ge) {
		return ge.Kind()
	}
	return KindInternal
}

// Retryable reports whether the pipeline may retry the failed call
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStageTimeout, KindDependencyUnavailable, KindLowConfidenceExtraction:
		return true
	default:
		return false
	}
}

// HTTPStatusOf maps err to an HTTP status, defaulting to 500
func HTTPStatusOf(err error) int {
	var ge GridError
	if goerrors.As(err, &ge) && ge.HTTPStatus() != 0 {
		return ge.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

//Personal.AI order the ending
