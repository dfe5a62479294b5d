package bacon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/kevinbacon/pkg/apperror"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

type Handler struct {
	finder  *Finder
	metrics *Metrics
	log     *slog.Logger
}

func NewHandler(finder *Finder, metrics *Metrics, log *slog.Logger) *Handler {
	return &Handler{finder: finder, metrics: metrics, log: log.With(logger.Scope("bacon.handler"))}
}

// ComputeBaconNumber returns the Bacon number of an actor.
// @Router /api/v1/computeBaconNumber [get]
func (h *Handler) ComputeBaconNumber(c echo.Context) error {
	res, err := h.find(c, KindNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NumberResponse{BaconNumber: res.Number})
}

// ComputeBaconPath returns a shortest path from the reference actor to an actor.
// @Router /api/v1/computeBaconPath [get]
func (h *Handler) ComputeBaconPath(c echo.Context) error {
	res, err := h.find(c, KindPath)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PathResponse{
		BaconNumber: res.Number,
		BaconPath:   res.Path.Actors(),
		Movies:      res.Path.Movies(),
		Steps:       res.Path.Nodes,
	})
}

func (h *Handler) find(c echo.Context, kind string) (*Result, error) {
	var req ActorRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.ActorID == "" {
		return nil, apperror.ErrBadRequest.WithMessage("actorId is required")
	}

	start := time.Now()
	res, err := h.finder.Find(c.Request().Context(), req.ActorID)
	if err != nil {
		h.metrics.observe(kind, "error", time.Since(start))
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		h.log.Error("bacon query failed",
			slog.String("actor_id", req.ActorID),
			logger.Error(err),
		)
		return nil, apperror.ErrStore.WithInternal(err)
	}
	h.metrics.observe(kind, res.Outcome.String(), time.Since(start))

	switch res.Outcome {
	case ActorNotFound:
		return nil, apperror.ErrActorNotFound.WithDetails(map[string]any{"actorId": req.ActorID})
	case NoPath:
		return nil, apperror.ErrNoPath.WithDetails(map[string]any{"actorId": req.ActorID})
	}
	return res, nil
}
