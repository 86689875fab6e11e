package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-scheduler/internal/logger"
)

// RequestLogger tags every request with an id, stores a request-scoped
// logger on the request context and logs the outcome once the handler
// returns.  An incoming X-Request-ID header is reused.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			log := base.With(
				slog.String("request_id", id),
				slog.String("method", req.Method),
				slog.String("route", c.Path()),
			)
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), log)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			}
			log.Log(c.Request().Context(), level, "request",
				slog.Int("status", status),
				slog.String("parent_id", ParentID(c)),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()))
			return nil
		}
	}
}
