package health

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/internal/version"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Handler handles health check requests
type Handler struct {
	store   graphstore.Store
	cfg     *config.Config
	log     *slog.Logger
	startAt time.Time
}

// NewHandler creates a new health handler
func NewHandler(store graphstore.Store, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		cfg:     cfg,
		log:     log.With(logger.Scope("health")),
		startAt: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   version.BuildInfo `json:"version"`
	Checks    map[string]Check  `json:"checks"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}

// Health returns the overall service health
// @Router       /health [get]
func (h *Handler) Health(c echo.Context) error {
	storeCheck := Check{Status: "healthy", Backend: h.cfg.Store.Backend}
	if err := h.ping(c.Request().Context()); err != nil {
		storeCheck.Status = "unhealthy"
		storeCheck.Message = err.Error()
		h.log.Warn("store ping failed", logger.Error(err))
	}

	response := HealthResponse{
		Status:    storeCheck.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Info(),
		Checks:    map[string]Check{"store": storeCheck},
	}

	statusCode := http.StatusOK
	if storeCheck.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, response)
}

// Healthz is the liveness check.
// @Router       /healthz [get]
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready is the readiness check; it fails while the store is unreachable.
// @Router       /ready [get]
func (h *Handler) Ready(c echo.Context) error {
	if err := h.ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "Graph store unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// Debug returns runtime information outside production.
// @Router       /debug [get]
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.IsProduction() {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(http.StatusOK, map[string]any{
		"environment": h.cfg.Environment,
		"debug":       h.cfg.Debug,
		"go_version":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb":       mem.Alloc / 1024 / 1024,
			"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
			"sys_mb":         mem.Sys / 1024 / 1024,
			"num_gc":         mem.NumGC,
		},
		"store": map[string]any{
			"backend":         h.cfg.Store.Backend,
			"reference_actor": h.cfg.Bacon.ReferenceActorID,
		},
		"system": systemInfo(c.Request().Context()),
	})
}

// systemInfo reports host load and memory. Fields the platform cannot
// provide are left out.
func systemInfo(ctx context.Context) map[string]any {
	info := map[string]any{"num_cpu": runtime.NumCPU()}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		info["load_1"] = avg.Load1
		info["load_5"] = avg.Load5
		info["load_15"] = avg.Load15
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info["mem_total_mb"] = vm.Total / 1024 / 1024
		info["mem_used_percent"] = vm.UsedPercent
	}
	return info
}
