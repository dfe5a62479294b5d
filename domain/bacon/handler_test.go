package bacon_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/kevinbacon/domain/bacon"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/pkg/apperror"
)

type testServer struct {
	e   *echo.Echo
	reg *prometheus.Registry
}

func newTestServer(t *testing.T, store graphstore.Store) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := bacon.NewMetrics(reg)
	f := bacon.NewFinder(store, kevin, bacon.WithMetrics(m))

	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(slog.Default())
	bacon.RegisterRoutes(e, bacon.NewHandler(f, m, slog.Default()))
	return &testServer{e: e, reg: reg}
}

func (s *testServer) get(path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodGet, path, nil)
	} else {
		req = httptest.NewRequest(http.MethodGet, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func chain(t *testing.T) graphstore.Store {
	return graph(t, map[string][]string{
		kevin:   {"ttM1"},
		"nmB":   {"ttM1", "ttM2"},
		"nmC":   {"ttM2"},
		"nmIso": nil,
	})
}

func TestComputeBaconNumber_JSONBody(t *testing.T) {
	srv := newTestServer(t, chain(t))

	rec := srv.get("/api/v1/computeBaconNumber", `{"actorId":"nmC"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp bacon.NumberResponse
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.BaconNumber)
}

func TestComputeBaconNumber_QueryParam(t *testing.T) {
	srv := newTestServer(t, chain(t))

	rec := srv.get("/api/v1/computeBaconNumber?actorId=nmB", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp bacon.NumberResponse
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.BaconNumber)
}

func TestComputeBaconNumber_Reference(t *testing.T) {
	srv := newTestServer(t, chain(t))

	rec := srv.get("/api/v1/computeBaconNumber?actorId="+kevin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"baconNumber":0}`, rec.Body.String())
}

func TestComputeBaconPath(t *testing.T) {
	srv := newTestServer(t, chain(t))

	rec := srv.get("/api/v1/computeBaconPath", `{"actorId":"nmC"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp bacon.PathResponse
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.BaconNumber)
	assert.Equal(t, []string{kevin, "nmB", "nmC"}, resp.BaconPath)
	assert.Equal(t, []string{"ttM1", "ttM2"}, resp.Movies)
	require.Len(t, resp.Steps, 5)
	assert.Equal(t, bacon.StepMovie, resp.Steps[1].Kind)
}

func TestComputeBacon_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing actor id", "/api/v1/computeBaconNumber", `{}`, http.StatusBadRequest, "bad_request"},
		{"malformed body", "/api/v1/computeBaconPath", `{"actorId":`, http.StatusBadRequest, "bad_request"},
		{"unknown actor", "/api/v1/computeBaconNumber", `{"actorId":"nm404"}`, http.StatusNotFound, "actor_not_found"},
		{"unknown actor path", "/api/v1/computeBaconPath", `{"actorId":"nm404"}`, http.StatusNotFound, "actor_not_found"},
		{"disconnected", "/api/v1/computeBaconNumber", `{"actorId":"nmIso"}`, http.StatusNotFound, "no_path"},
		{"disconnected path", "/api/v1/computeBaconPath", `{"actorId":"nmIso"}`, http.StatusNotFound, "no_path"},
	}

	srv := newTestServer(t, chain(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.get(tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			decode(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestComputeBacon_StoreFailure(t *testing.T) {
	boom := graphstore.Fail("fake", "actors_in", assert.AnError)
	srv := newTestServer(t, &failingStore{Store: chain(t), err: boom})

	rec := srv.get("/api/v1/computeBaconNumber?actorId=nmB", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "store_error")
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.queryCounter(t, "number", "error")))
}

func TestComputeBacon_CountsOutcomes(t *testing.T) {
	srv := newTestServer(t, chain(t))

	srv.get("/api/v1/computeBaconNumber?actorId=nmB", "")
	srv.get("/api/v1/computeBaconPath?actorId=nmB", "")
	srv.get("/api/v1/computeBaconPath?actorId=nmIso", "")
	srv.get("/api/v1/computeBaconPath?actorId=nm404", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.queryCounter(t, "number", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.queryCounter(t, "path", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.queryCounter(t, "path", "no_path")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.queryCounter(t, "path", "actor_not_found")))
}

// queryCounter rebuilds the labelled counter from the registry by registering
// an identical vec and reading back the existing one.
func (s *testServer) queryCounter(t *testing.T, kind, outcome string) prometheus.Counter {
	t.Helper()
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bacon_queries_total",
		Help: "Bacon number and path queries by kind and outcome.",
	}, []string{"kind", "outcome"})
	err := s.reg.Register(vec)
	var are prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &are)
	return are.ExistingCollector.(*prometheus.CounterVec).WithLabelValues(kind, outcome)
}
