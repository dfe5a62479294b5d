package apperror

import (
	"fmt"
	"net/http"
)

// Error is an application error that knows its HTTP status and machine-readable code.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	c := *e
	c.Internal = err
	return &c
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	c := *e
	c.Details = details
	return &c
}

// Body renders the error in the response envelope shared by every endpoint.
func (e *Error) Body() map[string]any {
	errBody := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		errBody["details"] = e.Details
	}
	return map[string]any{"error": errBody}
}

// New creates a new application error
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	// Generic
	ErrNotFound   = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrInternal   = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")

	// Graph mutations. Every "not created" outcome is a 400.
	ErrActorExists        = New(http.StatusBadRequest, "actor_exists", "Actor already exists")
	ErrMovieExists        = New(http.StatusBadRequest, "movie_exists", "Movie already exists")
	ErrRelationshipExists = New(http.StatusBadRequest, "relationship_exists", "Relationship already exists")
	ErrMissingEndpoint    = New(http.StatusBadRequest, "missing_endpoint", "Actor or movie does not exist")

	// Lookups and traversal
	ErrActorNotFound = New(http.StatusNotFound, "actor_not_found", "Actor not found")
	ErrMovieNotFound = New(http.StatusNotFound, "movie_not_found", "Movie not found")
	ErrNoPath        = New(http.StatusNotFound, "no_path", "No path to the reference actor")

	// Infrastructure
	ErrStore = New(http.StatusInternalServerError, "store_error", "Graph store operation failed")
)

// ToHTTPError converts an error to a status code and response body
func ToHTTPError(err error) (int, map[string]any) {
	if appErr, ok := err.(*Error); ok {
		return appErr.HTTPStatus, appErr.Body()
	}
	return ErrInternal.HTTPStatus, ErrInternal.Body()
}

// NewBadRequest creates a bad request error with a custom message
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound creates a not found error for a resource type and ID
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, id))
}

// NewInternal creates an internal error with a message and optional wrapped error
func NewInternal(message string, err error) *Error {
	return ErrInternal.WithMessage(message).WithInternal(err)
}
