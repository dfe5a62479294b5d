// Package server owns the echo instance and its listener lifecycle.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/pkg/apperror"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

var Module = fx.Module("server",
	fx.Provide(NewEcho),
	fx.Invoke(StartServer),
)

type EchoParams struct {
	fx.In

	Config *config.Config
	Log    *slog.Logger
}

// quiet routes are polled by orchestrators and scrapers and are not request-logged.
var quiet = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/ready":   true,
	"/metrics": true,
}

// NewEcho returns an echo instance with the API error format, the lenient
// JSON binder and the request middleware chain installed. Routes are added
// by the domain modules.
func NewEcho(p EchoParams) *echo.Echo {
	log := p.Log.With(logger.Scope("http"))

	e := echo.New()
	e.Debug = p.Config.Debug
	e.HideBanner = true
	e.HidePort = !p.Config.Debug
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(log)
	e.Binder = &jsonDefaultBinder{}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		accessLog(log),
		recoverPanics(log),
	)
	return e
}

func accessLog(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		// Render handler errors first so Status is what the client receives.
		HandleError:  true,
		Skipper:      func(c echo.Context) bool { return quiet[c.Request().URL.Path] },
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			// 4xx are client mistakes and already carry their code in the body.
			if v.Error == nil || v.Status < http.StatusInternalServerError {
				log.Info("request", attrs...)
				return nil
			}
			log.Error("request failed", append(attrs, logger.Error(v.Error))...)
			return nil
		},
	})
}

// recoverPanics logs the stack and lets the error handler answer 500.
func recoverPanics(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered",
				slog.String("path", c.Request().URL.Path),
				logger.Error(err),
				slog.String("stack", string(stack)),
			)
			return nil
		},
	})
}

// StartServer listens on SERVER_ADDRESS:SERVER_PORT once the app starts and
// drains in-flight requests, bounded by SHUTDOWN_TIMEOUT, when it stops.
func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, log *slog.Logger) {
	log = log.With(logger.Scope("server"))

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.ServerAddress, strconv.Itoa(cfg.ServerPort)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("listening",
				slog.String("addr", srv.Addr),
				slog.String("environment", cfg.Environment),
				slog.String("store", cfg.Store.Backend),
			)
			go func() {
				if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("listener stopped", logger.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()
			log.Info("draining connections")
			return e.Shutdown(ctx)
		},
	})
}
