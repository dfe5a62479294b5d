package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/pkg/apperror"
)

func newTestEcho() *echo.Echo {
	return NewEcho(EchoParams{Config: &config.Config{}, Log: slog.Default()})
}

type actorQuery struct {
	ActorID string `json:"actorId" query:"actorId"`
}

func TestBinder_BodyWithoutContentType(t *testing.T) {
	e := newTestEcho()
	e.GET("/lookup", func(c echo.Context) error {
		var p actorQuery
		if err := c.Bind(&p); err != nil {
			return err
		}
		return c.String(http.StatusOK, p.ActorID)
	})

	req := httptest.NewRequest(http.MethodGet, "/lookup", strings.NewReader(`{"actorId":"nm0000102"}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "nm0000102", rec.Body.String())
}

func TestBinder_QueryOnly(t *testing.T) {
	e := newTestEcho()
	e.GET("/lookup", func(c echo.Context) error {
		var p actorQuery
		if err := c.Bind(&p); err != nil {
			return err
		}
		return c.String(http.StatusOK, p.ActorID)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lookup?actorId=nm1", nil))
	assert.Equal(t, "nm1", rec.Body.String())
}

func TestEcho_RequestIDAndErrors(t *testing.T) {
	e := newTestEcho()
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"internal_error"`)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestEcho_TrailingSlash(t *testing.T) {
	e := newTestEcho()
	e.GET("/api/v1/getActor", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/getActor/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// accessLines decodes the JSON log lines the access logger wrote.
func accessLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line), string(raw))
		if line["msg"] == "request" || line["msg"] == "request failed" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestEcho_AccessLogStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	e := NewEcho(EchoParams{Config: &config.Config{}, Log: log})
	e.GET("/api/v1/getActor", func(c echo.Context) error {
		return apperror.ErrStore.WithInternal(errors.New("connection reset"))
	})
	e.GET("/api/v1/getMovie", func(c echo.Context) error {
		return apperror.ErrMovieNotFound
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/getActor", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"store_error"`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/getMovie", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	lines := accessLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "request failed", lines[0]["msg"])
	assert.EqualValues(t, 500, lines[0]["status"])

	assert.Equal(t, "INFO", lines[1]["level"])
	assert.EqualValues(t, 404, lines[1]["status"])
}
