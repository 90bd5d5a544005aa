package domain

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

var (
	// ErrNodeNotFound is returned when a node id does not exist in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrGraphNotFound is returned when a graph id cannot be found in the store.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrRecordNotFound is returned by record stores for unknown ids.
	ErrRecordNotFound = errors.New("record not found")

	// ErrNoWorkerNode is returned when a run is triggered on a graph without a worker.
	ErrNoWorkerNode = errors.New("no worker node in graph")

	// ErrNoToolSelected is returned when the worker node has no configured tool.
	ErrNoToolSelected = errors.New("worker node has no tool selected")

	// ErrUnknownField is returned when a field is not declared by the node type schema.
	ErrUnknownField = errors.New("field not declared by node type")

	// ErrNodeRunning is returned when a run is started on a node that is already running.
	ErrNodeRunning = errors.New("node is already running")
)

// ErrorKind classifies failures crossing the external interface.
type ErrorKind string

const (
	KindValidation     ErrorKind = "ValidationError"
	KindNotFound       ErrorKind = "NotFoundError"
	KindUpstreamStream ErrorKind = "UpstreamStreamError"
	KindInitialization ErrorKind = "InitializationError"
)

// Error is a typed error carrying its kind and HTTP-style status.
// It can be unwrapped with errors.As.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
	Stack   string
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the operation as is.
// None of the current kinds are retried automatically.
func (e *Error) Retryable() bool {
	return false
}

// WithStack captures the current goroutine stack.
func (e *Error) WithStack() *Error {
	e.Stack = string(debug.Stack())
	return e
}

// Classify converts any error into an *Error. Sentinel errors map to their
// natural kind; anything unknown becomes fallback.
func Classify(err error, fallback ErrorKind) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	switch {
	case errors.Is(err, ErrNodeNotFound),
		errors.Is(err, ErrGraphNotFound),
		errors.Is(err, ErrRecordNotFound):
		return NewError(KindNotFound, err.Error(), err)
	case errors.Is(err, ErrNoWorkerNode),
		errors.Is(err, ErrNoToolSelected),
		errors.Is(err, ErrUnknownField),
		errors.Is(err, ErrNodeRunning):
		return NewError(KindValidation, err.Error(), err)
	}
	return NewError(fallback, err.Error(), err)
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind ErrorKind) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind == kind
	}
	return false
}
