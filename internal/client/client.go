// Package client is the HTTP client for the Bacon number API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool
}

// Client calls the /api/v1 endpoints. It is safe for concurrent use.
type Client struct {
	r *resty.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := resty.New().
		SetBaseURL(cfg.ServerURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetDebug(cfg.Debug)
	return &Client{r: r}
}

// APIError is a non-2xx answer carrying the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// HasCode reports whether err is an APIError with one of the given codes.
func HasCode(err error, codes ...string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.Code == c {
			return true
		}
	}
	return false
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type Actor struct {
	ActorID string   `json:"actorId" yaml:"actorId"`
	Name    string   `json:"name" yaml:"name"`
	Movies  []string `json:"movies" yaml:"movies"`
}

type Movie struct {
	MovieID string   `json:"movieId" yaml:"movieId"`
	Name    string   `json:"name" yaml:"name"`
	Actors  []string `json:"actors" yaml:"actors"`
}

type Relationship struct {
	ActorID         string `json:"actorId" yaml:"actorId"`
	MovieID         string `json:"movieId" yaml:"movieId"`
	HasRelationship bool   `json:"hasRelationship" yaml:"hasRelationship"`
}

type Step struct {
	Kind string `json:"kind" yaml:"kind"`
	ID   string `json:"id" yaml:"id"`
}

type BaconPath struct {
	BaconNumber int      `json:"baconNumber" yaml:"baconNumber"`
	BaconPath   []string `json:"baconPath" yaml:"baconPath"`
	Movies      []string `json:"movies" yaml:"movies"`
	Steps       []Step   `json:"steps" yaml:"steps"`
}

type Health struct {
	Status  string         `json:"status" yaml:"status"`
	Uptime  string         `json:"uptime" yaml:"uptime"`
	Version map[string]any `json:"version" yaml:"version"`
	Checks  map[string]any `json:"checks" yaml:"checks"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, query map[string]string, out any) error {
	req := c.r.R().
		SetContext(ctx).
		SetError(&errorEnvelope{})
	if body != nil {
		req.SetBody(body)
	}
	if query != nil {
		req.SetQueryParams(query)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode()}
		if env, ok := resp.Error().(*errorEnvelope); ok {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	return nil
}

func (c *Client) AddActor(ctx context.Context, actorID, name string) (*Actor, error) {
	var out Actor
	body := map[string]string{"actorId": actorID, "name": name}
	if err := c.do(ctx, http.MethodPut, "/api/v1/addActor", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddMovie(ctx context.Context, movieID, name string) (*Movie, error) {
	var out Movie
	body := map[string]string{"movieId": movieID, "name": name}
	if err := c.do(ctx, http.MethodPut, "/api/v1/addMovie", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddRelationship(ctx context.Context, actorID, movieID string) (*Relationship, error) {
	var out Relationship
	body := map[string]string{"actorId": actorID, "movieId": movieID}
	if err := c.do(ctx, http.MethodPut, "/api/v1/addRelationship", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// The GET endpoints also accept a JSON body; the client sends query
// parameters so proxies never drop the payload.

func (c *Client) GetActor(ctx context.Context, actorID string) (*Actor, error) {
	var out Actor
	if err := c.do(ctx, http.MethodGet, "/api/v1/getActor", nil, map[string]string{"actorId": actorID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetMovie(ctx context.Context, movieID string) (*Movie, error) {
	var out Movie
	if err := c.do(ctx, http.MethodGet, "/api/v1/getMovie", nil, map[string]string{"movieId": movieID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) HasRelationship(ctx context.Context, actorID, movieID string) (*Relationship, error) {
	var out Relationship
	q := map[string]string{"actorId": actorID, "movieId": movieID}
	if err := c.do(ctx, http.MethodGet, "/api/v1/hasRelationship", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BaconNumber(ctx context.Context, actorID string) (int, error) {
	var out struct {
		BaconNumber int `json:"baconNumber"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/computeBaconNumber", nil, map[string]string{"actorId": actorID}, &out); err != nil {
		return 0, err
	}
	return out.BaconNumber, nil
}

func (c *Client) BaconPath(ctx context.Context, actorID string) (*BaconPath, error) {
	var out BaconPath
	if err := c.do(ctx, http.MethodGet, "/api/v1/computeBaconPath", nil, map[string]string{"actorId": actorID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset wipes the graph. The server must run with ADMIN_RESET_ENABLED.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/admin/reset", nil, nil, nil)
}

// Health returns the server's health document. An unhealthy server answers
// 503 with the same document, which is not an error here.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	resp, err := c.r.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Get("/health")
	if err != nil {
		return nil, fmt.Errorf("GET /health: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusServiceUnavailable {
		return nil, &APIError{Status: resp.StatusCode()}
	}
	return &out, nil
}
