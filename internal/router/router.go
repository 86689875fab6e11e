// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tutoring-scheduler/internal/config"
	"github.com/iliyamo/tutoring-scheduler/internal/handler"
	"github.com/iliyamo/tutoring-scheduler/internal/middleware"
)

// Deps are the collaborators the routes need.  Redis may be nil; caching
// is then off and rate limiting falls back to the in-process limiter.
type Deps struct {
	Availability *handler.AvailabilityHandler
	Bookings     *handler.BookingHandler
	JWTSecret    string
	Redis        *redis.Client
	Cache        config.CacheConfig
	RateLimit    config.RateLimitConfig
	Log          *slog.Logger
	Ping         func(context.Context) error
}

// Register installs every route on e.
//
// Public:
//
//	GET /healthz, GET /readyz
//	GET /v1/memberships
//	GET /v1/locations/:id/slots?date=
//	GET /v1/locations/:id/bookable-dates?days=
//	GET /v1/locations/:id/sessions?date=
//
// Parent (JWT, role parent):
//
//	GET    /v1/locations/:id/credits?child=&date=
//	POST   /v1/assessments
//	POST   /v1/sessions/:id/bookings
//	DELETE /v1/bookings/:id
//	GET    /v1/my-bookings
func Register(e *echo.Echo, d Deps) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	e.Use(middleware.RequestLogger(log))

	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.Ping))

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	cache := middleware.NewRedisCache(d.Cache, d.Redis)

	pub := e.Group("/v1", limit)
	pub.GET("/memberships", d.Availability.GetMemberships)
	pub.GET("/locations/:id/slots", d.Availability.GetSlots, cache)
	pub.GET("/locations/:id/bookable-dates", d.Availability.GetBookableDates, cache)
	pub.GET("/locations/:id/sessions", d.Availability.GetSessions, cache)

	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleParent),
		limit,
	)
	g.GET("/locations/:id/credits", d.Bookings.GetCredits)
	g.POST("/assessments", d.Bookings.PostAssessment)
	g.POST("/sessions/:id/bookings", d.Bookings.PostSessionBooking)
	g.DELETE("/bookings/:id", d.Bookings.DeleteBooking)
	g.GET("/my-bookings", d.Bookings.GetMyBookings)
}
