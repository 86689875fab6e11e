package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-scheduler/internal/booking"
	"github.com/iliyamo/tutoring-scheduler/internal/middleware"
	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// HeaderIdempotencyKey carries the client key that makes a booking
// request safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// BookingHandler serves the parent-scoped booking endpoints.  Every route
// is behind JWTAuth; the parent is the token subject.
type BookingHandler struct {
	Coord *booking.Coordinator
}

// GetCredits reports a child's credit position at a centre.
// Query: child (required), date (optional, defaults to today).
func (h *BookingHandler) GetCredits(c echo.Context) error {
	st, err := h.Coord.EvaluateChildCredits(c.Request().Context(),
		middleware.ParentID(c), c.Param("id"), c.QueryParam("child"), c.QueryParam("date"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// PostAssessment books a free assessment.
func (h *BookingHandler) PostAssessment(c echo.Context) error {
	var req booking.AssessmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: string(booking.KindValidation), Message: "invalid JSON body"})
	}
	req.ParentID = middleware.ParentID(c)
	req.RequestKey = c.Request().Header.Get(HeaderIdempotencyKey)

	conf, err := h.Coord.BookAssessment(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(created(conf.Replayed), conf)
}

type sessionBody struct {
	Child model.Child `json:"child"`
}

// PostSessionBooking enrols one child into session :id.
func (h *BookingHandler) PostSessionBooking(c echo.Context) error {
	var body sessionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: string(booking.KindValidation), Message: "invalid JSON body"})
	}
	conf, err := h.Coord.BookSession(c.Request().Context(), booking.SessionRequest{
		ParentID:   middleware.ParentID(c),
		SessionID:  c.Param("id"),
		Child:      body.Child,
		RequestKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(created(conf.Replayed), conf)
}

// DeleteBooking cancels booking :id.  Cancelling twice returns the
// cancelled booking again.
func (h *BookingHandler) DeleteBooking(c echo.Context) error {
	b, err := h.Coord.CancelBooking(c.Request().Context(), middleware.ParentID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// GetMyBookings returns the parent's bookings split into upcoming and past.
func (h *BookingHandler) GetMyBookings(c echo.Context) error {
	g, err := h.Coord.ListBookings(c.Request().Context(), middleware.ParentID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func created(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
