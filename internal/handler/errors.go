package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tutoring-scheduler/internal/booking"
	"github.com/iliyamo/tutoring-scheduler/internal/logger"
)

// errorBody is the JSON shape of every failed booking call.  Action tells
// the client what to offer the parent next.
type errorBody struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	Action       string `json:"action,omitempty"`
	Phone        string `json:"phone,omitempty"`
	SaleID       string `json:"saleId,omitempty"`
	MembershipID string `json:"membershipId,omitempty"`
	Retryable    bool   `json:"retryable,omitempty"`
}

// Client actions.
const (
	ActionPurchaseMembership = "purchase_membership"
	ActionCallCentre         = "call_centre"
	ActionCheckStatus        = "check_status"
	ActionRetry              = "retry"
)

var statusByKind = map[booking.Kind]int{
	booking.KindValidation:                http.StatusBadRequest,
	booking.KindForbidden:                 http.StatusForbidden,
	booking.KindNotFound:                  http.StatusNotFound,
	booking.KindCapacityExceeded:          http.StatusConflict,
	booking.KindDuplicateBooking:          http.StatusConflict,
	booking.KindCancellationWindowExpired: http.StatusConflict,
	booking.KindMembershipRequired:        http.StatusPaymentRequired,
	booking.KindInsufficientCredit:        http.StatusUnprocessableEntity,
	booking.KindMembershipMismatch:        http.StatusUnprocessableEntity,
	booking.KindTransientStorage:          http.StatusServiceUnavailable,
	booking.KindOutcomeUnknown:            http.StatusGatewayTimeout,
	booking.KindPartialCommit:             http.StatusInternalServerError,
}

// writeError renders err.  Errors that are not *booking.Error are logged
// and reported as 500 without detail.
func writeError(c echo.Context, err error) error {
	var be *booking.Error
	if !errors.As(err, &be) {
		logger.FromContext(c.Request().Context()).Error("unhandled error", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
	}
	status, ok := statusByKind[be.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := errorBody{
		Error:        string(be.Kind),
		Message:      be.Reason,
		Phone:        be.Phone,
		SaleID:       be.SaleID,
		MembershipID: be.MembershipID,
		Retryable:    be.Retryable(),
	}
	switch be.Kind {
	case booking.KindMembershipRequired:
		body.Action = ActionPurchaseMembership
	case booking.KindCancellationWindowExpired:
		body.Action = ActionCallCentre
	case booking.KindOutcomeUnknown:
		body.Action = ActionCheckStatus
	case booking.KindTransientStorage:
		body.Action = ActionRetry
		c.Response().Header().Set("Retry-After", "1")
	case booking.KindPartialCommit:
		body.Message = "booking needs staff attention"
	}
	return c.JSON(status, body)
}
