package graph

import (
	"github.com/labstack/echo/v4"

	"github.com/emergent-company/kevinbacon/internal/config"
)

// RegisterRoutes registers the graph routes under /api/v1.
func RegisterRoutes(e *echo.Echo, h *Handler, cfg *config.Config) {
	g := e.Group("/api/v1")

	g.PUT("/addActor", h.AddActor)
	g.PUT("/addMovie", h.AddMovie)
	g.PUT("/addRelationship", h.AddRelationship)

	g.GET("/getActor", h.GetActor)
	g.GET("/getMovie", h.GetMovie)
	g.GET("/hasRelationship", h.HasRelationship)

	if cfg.AdminResetEnabled {
		g.POST("/admin/reset", h.Reset)
	}
}
