package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-scheduler/internal/booking"
)

func render(t *testing.T, err error) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, err))
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestWriteErrorStatusByKind(t *testing.T) {
	t.Parallel()
	cases := []struct {
		kind   booking.Kind
		status int
		action string
	}{
		{booking.KindValidation, http.StatusBadRequest, ""},
		{booking.KindForbidden, http.StatusForbidden, ""},
		{booking.KindNotFound, http.StatusNotFound, ""},
		{booking.KindCapacityExceeded, http.StatusConflict, ""},
		{booking.KindDuplicateBooking, http.StatusConflict, ""},
		{booking.KindCancellationWindowExpired, http.StatusConflict, ActionCallCentre},
		{booking.KindMembershipRequired, http.StatusPaymentRequired, ActionPurchaseMembership},
		{booking.KindInsufficientCredit, http.StatusUnprocessableEntity, ""},
		{booking.KindMembershipMismatch, http.StatusUnprocessableEntity, ""},
		{booking.KindTransientStorage, http.StatusServiceUnavailable, ActionRetry},
		{booking.KindOutcomeUnknown, http.StatusGatewayTimeout, ActionCheckStatus},
		{booking.KindPartialCommit, http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rec, body := render(t, &booking.Error{Kind: tc.kind, Reason: "r"})
		assert.Equal(t, tc.status, rec.Code, tc.kind)
		assert.Equal(t, string(tc.kind), body.Error, tc.kind)
		assert.Equal(t, tc.action, body.Action, tc.kind)
	}
}

func TestWriteErrorDetails(t *testing.T) {
	t.Parallel()
	rec, body := render(t, &booking.Error{Kind: booking.KindCancellationWindowExpired, Reason: "too late", Phone: "02 9000 0000"})
	assert.Equal(t, "02 9000 0000", body.Phone)
	assert.Empty(t, rec.Header().Get("Retry-After"))

	rec, body = render(t, &booking.Error{Kind: booking.KindTransientStorage, Reason: "timeout"})
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.True(t, body.Retryable)

	rec, body = render(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", body.Error)
}
