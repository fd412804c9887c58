package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/tracing"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	if s.deps.TracerProvider != nil {
		e.Use(otelecho.Middleware(tracing.DefaultServiceName,
			otelecho.WithTracerProvider(s.deps.TracerProvider)))
	}

	e.GET("/api/health", s.health)

	kitties := e.Group("/api/v1/kitties")
	kitties.GET("", s.ListKitties)
	kitties.GET("/:id", s.GetKitty)
	kitties.POST("", s.CreateKitty, requireCaller)
	kitties.POST("/breed", s.BreedKitty, requireCaller)
	kitties.POST("/:id/transfer", s.TransferKitty, requireCaller)

	events := e.Group("/api/v1/events")
	events.GET("", s.ListEvents)
	events.GET("/ws", s.StreamEvents)

	return e
}

func (s *Server) health(ctx echo.Context) error {
	n, err := s.deps.Query.Count(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, Res{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, Res{
		Data: map[string]any{
			"kitties":   n,
			"processed": s.deps.Commands.ProcessedCount(),
			"failed":    s.deps.Commands.ErrorCount(),
			"queued":    s.deps.Commands.QueueLength(),
		},
		Message: "ok",
	})
}

// requireCaller rejects mutating requests that carry no caller identity.
func requireCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if ctx.Request().Header.Get(HeaderCallerID) == "" {
			return ctx.JSON(http.StatusUnauthorized, Res{Error: "missing " + HeaderCallerID + " header"})
		}
		return next(ctx)
	}
}

// requestLogger writes one HTTP category line per request.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}
			req, res := ctx.Request(), ctx.Response()
			fields := []any{
				"method", req.Method,
				"path", ctx.Path(),
				"status", res.Status,
				"duration", time.Since(start),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
			}
			switch {
			case res.Status >= http.StatusInternalServerError:
				log.Error(log.CatHTTP, "request failed", fields...)
			case res.Status >= http.StatusBadRequest:
				log.Warn(log.CatHTTP, "request rejected", fields...)
			default:
				log.Debug(log.CatHTTP, "request", fields...)
			}
			return nil
		}
	}
}
