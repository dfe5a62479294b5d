package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without internal error",
			err:      ErrActorNotFound,
			expected: "actor_not_found: Actor not found",
		},
		{
			name:     "with internal error",
			err:      ErrStore.WithInternal(errors.New("connection refused")),
			expected: "store_error: Graph store operation failed (connection refused)",
		},
		{
			name:     "empty message",
			err:      &Error{HTTPStatus: http.StatusBadRequest, Code: "bad_request"},
			expected: "bad_request: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := ErrStore.WithInternal(inner)

	assert.ErrorIs(t, err, inner)
	assert.Nil(t, ErrNoPath.Unwrap())
}

func TestWithCopiesDoNotMutateCatalog(t *testing.T) {
	custom := ErrMovieNotFound.
		WithMessage("movie 'tt0000001' not found").
		WithDetails(map[string]any{"movieId": "tt0000001"}).
		WithInternal(errors.New("lookup"))

	assert.Equal(t, "Movie not found", ErrMovieNotFound.Message)
	assert.Nil(t, ErrMovieNotFound.Details)
	assert.Nil(t, ErrMovieNotFound.Internal)

	assert.Equal(t, http.StatusNotFound, custom.HTTPStatus)
	assert.Equal(t, "movie_not_found", custom.Code)
	assert.Equal(t, "tt0000001", custom.Details["movieId"])
}

func TestCatalogStatuses(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{ErrActorExists, http.StatusBadRequest},
		{ErrMovieExists, http.StatusBadRequest},
		{ErrRelationshipExists, http.StatusBadRequest},
		{ErrMissingEndpoint, http.StatusBadRequest},
		{ErrActorNotFound, http.StatusNotFound},
		{ErrMovieNotFound, http.StatusNotFound},
		{ErrNoPath, http.StatusNotFound},
		{ErrStore, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestToHTTPError(t *testing.T) {
	status, body := ToHTTPError(ErrNoPath)
	assert.Equal(t, http.StatusNotFound, status)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "no_path", errBody["code"])
	assert.NotContains(t, errBody, "details")

	status, body = ToHTTPError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", body["error"].(map[string]any)["code"])
}

func TestConstructors(t *testing.T) {
	br := NewBadRequest("actorId is required")
	assert.Equal(t, http.StatusBadRequest, br.HTTPStatus)
	assert.Equal(t, "actorId is required", br.Message)

	nf := NewNotFound("actor", "nm0000001")
	assert.Equal(t, http.StatusNotFound, nf.HTTPStatus)
	assert.Equal(t, "actor 'nm0000001' not found", nf.Message)

	cause := errors.New("timeout")
	in := NewInternal("search failed", cause)
	assert.Equal(t, "search failed", in.Message)
	assert.ErrorIs(t, in, cause)
}
