package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-scheduler/internal/booking"
	"github.com/iliyamo/tutoring-scheduler/internal/credit"
)

// AvailabilityHandler serves the public, read-only calendar endpoints.
// Responses carry no personal data and may be cached.
type AvailabilityHandler struct {
	Coord   *booking.Coordinator
	Catalog credit.Catalog
}

// GetSlots lists assessment start times of a centre on ?date=YYYY-MM-DD.
func (h *AvailabilityHandler) GetSlots(c echo.Context) error {
	date := c.QueryParam("date")
	slots, err := h.Coord.ListAssessmentSlots(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locationId": c.Param("id"), "date": date, "slots": slots})
}

// GetBookableDates lists the upcoming days with assessment availability.
// ?days= overrides the default horizon.
func (h *AvailabilityHandler) GetBookableDates(c echo.Context) error {
	days := 0
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, errorBody{Error: string(booking.KindValidation), Message: "days must be a positive integer"})
		}
		days = n
	}
	dates, err := h.Coord.ListBookableDates(c.Request().Context(), c.Param("id"), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locationId": c.Param("id"), "dates": dates})
}

// GetSessions lists the sessions of a centre on ?date= with spots left.
func (h *AvailabilityHandler) GetSessions(c echo.Context) error {
	date := c.QueryParam("date")
	views, err := h.Coord.ListSessions(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locationId": c.Param("id"), "date": date, "items": views})
}

// GetMemberships lists the membership plans on sale.
func (h *AvailabilityHandler) GetMemberships(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Catalog.Plans()})
}
