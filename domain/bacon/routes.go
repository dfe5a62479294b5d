package bacon

import "github.com/labstack/echo/v4"

// RegisterRoutes registers the Bacon query routes under /api/v1.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/v1")
	g.GET("/computeBaconNumber", h.ComputeBaconNumber)
	g.GET("/computeBaconPath", h.ComputeBaconPath)
}
