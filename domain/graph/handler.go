package graph

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/kevinbacon/pkg/apperror"
)

// Handler serves the actor, movie and relationship endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	return nil
}

// required returns a bad request naming the first empty field.
func required(fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return apperror.ErrBadRequest.WithMessage(f[0] + " is required")
		}
	}
	return nil
}

// AddActor creates an actor.
// @Router /api/v1/addActor [put]
func (h *Handler) AddActor(c echo.Context) error {
	var req AddActorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := required([2]string{"name", req.Name}, [2]string{"actorId", req.ActorID}); err != nil {
		return err
	}

	resp, err := h.svc.AddActor(c.Request().Context(), req.Name, req.ActorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// AddMovie creates a movie.
// @Router /api/v1/addMovie [put]
func (h *Handler) AddMovie(c echo.Context) error {
	var req AddMovieRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := required([2]string{"name", req.Name}, [2]string{"movieId", req.MovieID}); err != nil {
		return err
	}

	resp, err := h.svc.AddMovie(c.Request().Context(), req.Name, req.MovieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// AddRelationship links an existing actor to an existing movie.
// @Router /api/v1/addRelationship [put]
func (h *Handler) AddRelationship(c echo.Context) error {
	var req RelationshipRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := required([2]string{"actorId", req.ActorID}, [2]string{"movieId", req.MovieID}); err != nil {
		return err
	}

	resp, err := h.svc.AddRelationship(c.Request().Context(), req.ActorID, req.MovieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GetActor returns an actor and their movies.
// @Router /api/v1/getActor [get]
func (h *Handler) GetActor(c echo.Context) error {
	var req ActorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := required([2]string{"actorId", req.ActorID}); err != nil {
		return err
	}

	resp, err := h.svc.GetActor(c.Request().Context(), req.ActorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GetMovie returns a movie and its cast.
// @Router /api/v1/getMovie [get]
func (h *Handler) GetMovie(c echo.Context) error {
	var req MovieRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := required([2]string{"movieId", req.MovieID}); err != nil {
		return err
	}

	resp, err := h.svc.GetMovie(c.Request().Context(), req.MovieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HasRelationship reports whether an actor acted in a movie.
// @Router /api/v1/hasRelationship [get]
func (h *Handler) HasRelationship(c echo.Context) error {
	var req RelationshipRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := required([2]string{"actorId", req.ActorID}, [2]string{"movieId", req.MovieID}); err != nil {
		return err
	}

	resp, err := h.svc.HasRelationship(c.Request().Context(), req.ActorID, req.MovieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Reset deletes the whole graph. Only mounted when ADMIN_RESET_ENABLED is set.
// @Router /api/v1/admin/reset [post]
func (h *Handler) Reset(c echo.Context) error {
	if err := h.svc.Reset(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}
