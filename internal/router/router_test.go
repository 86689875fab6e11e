package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-scheduler/internal/booking"
	"github.com/iliyamo/tutoring-scheduler/internal/config"
	"github.com/iliyamo/tutoring-scheduler/internal/credit"
	"github.com/iliyamo/tutoring-scheduler/internal/handler"
	"github.com/iliyamo/tutoring-scheduler/internal/middleware"
	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository/memory"
	"github.com/iliyamo/tutoring-scheduler/internal/utils"
)

const secret = "router-test-secret-0123"

// now is Monday 2026-03-02 08:00 UTC.
var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type app struct {
	e     *echo.Echo
	store *memory.Store
}

func newApp(t *testing.T) *app {
	t.Helper()
	st := memory.New()
	st.SetClock(func() time.Time { return now })
	st.PutLocation(model.Location{
		ID: "loc", Name: "Parramatta", Phone: "02 9000 0000",
		Schedule: model.WeekSchedule{
			"Monday":  {Enabled: true, Periods: []model.Period{{Start: "09:00", End: "12:00"}}},
			"Tuesday": {Enabled: true, Periods: []model.Period{{Start: "15:00", End: "17:00"}}},
		},
		BufferMinutes: 10,
	})
	st.PutService(model.Service{ID: "svc", LocationID: "loc", Name: "Maths", MaxStudents: 6})
	st.PutSession(model.Session{ID: "s1", LocationID: "loc", ServiceID: "svc", Date: "2026-03-03", Time: "15:00", TutorName: "Ms Lee"})
	st.PutSale(model.Sale{ID: "sale", LocationID: "loc", ParentID: "p1", MembershipID: "membership_1_session",
		Status: model.SaleActive, ActivationDate: "2026-01-05", Children: []model.Child{{Name: "Ava"}}})

	coord := booking.New(st, booking.WithClock(func() time.Time { return now }))
	e := echo.New()
	Register(e, Deps{
		Availability: &handler.AvailabilityHandler{Coord: coord, Catalog: credit.DefaultCatalog()},
		Bookings:     &handler.BookingHandler{Coord: coord},
		JWTSecret:    secret,
		RateLimit:    config.RateLimitConfig{Enabled: false},
	})
	return &app{e: e, store: st}
}

func (a *app) do(t *testing.T, method, path, parent, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if parent != "" {
		tok, err := utils.NewAccessToken(secret, parent, middleware.RoleParent, time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPublicCalendar(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/v1/locations/loc/slots?date=2026-03-02", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"09:00", "09:50", "10:40"}, decode(t, rec)["slots"])

	rec = a.do(t, http.MethodGet, "/v1/locations/loc/bookable-dates?days=7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"2026-03-03", "2026-03-09"}, decode(t, rec)["dates"])

	rec = a.do(t, http.MethodGet, "/v1/locations/loc/sessions?date=2026-03-03", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(6), items[0].(map[string]any)["spotsLeft"])

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/locations/loc/slots?date=monday", "", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/locations/nope/slots?date=2026-03-02", "", "").Code)

	rec = a.do(t, http.MethodGet, "/v1/memberships", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 13)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/readyz", "", "").Code)
}

func TestParentRoutesNeedToken(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/my-bookings", "", "").Code)
}

func TestSessionBookingFlow(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	body := `{"child":{"name":"Ava","grade":"Year 4"}}`

	rec := a.do(t, http.MethodPost, "/v1/sessions/s1/bookings", "p1", body, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	bookingID := out["booking"].(map[string]any)["id"].(string)
	assert.Equal(t, float64(0), out["credit"].(map[string]any)["remaining"])

	rec = a.do(t, http.MethodPost, "/v1/sessions/s1/bookings", "p1", body, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["replayed"])

	rec = a.do(t, http.MethodPost, "/v1/sessions/s1/bookings", "p1", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_booking", decode(t, rec)["error"])

	rec = a.do(t, http.MethodGet, "/v1/locations/loc/credits?child=Ava", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["allowed"])

	rec = a.do(t, http.MethodGet, "/v1/my-bookings", "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := decode(t, rec)["upcoming"].([]any)
	require.Len(t, upcoming, 1)
	assert.Equal(t, true, upcoming[0].(map[string]any)["canCancel"])

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodDelete, "/v1/bookings/"+bookingID, "p2", "").Code)
	rec = a.do(t, http.MethodDelete, "/v1/bookings/"+bookingID, "p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["booking"].(map[string]any)["status"])
}

func TestSessionBookingRejections(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/v1/sessions/s1/bookings", "p2", `{"child":{"name":"Zoe"}}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "purchase_membership", decode(t, rec)["action"])

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/sessions/s1/bookings", "p1", `{"child":`).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/v1/sessions/none/bookings", "p1", `{"child":{"name":"Ava"}}`).Code)
}

func TestAssessmentAndLateCancel(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/v1/assessments", "p1",
		`{"locationId":"loc","date":"2026-03-02","time":"09:50","children":[{"name":"Ava","grade":"Year 4"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["booking"].(map[string]any)["id"].(string)

	rec = a.do(t, http.MethodDelete, "/v1/bookings/"+id, "p1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "cancellation_window_expired", out["error"])
	assert.Equal(t, "call_centre", out["action"])
	assert.Equal(t, "02 9000 0000", out["phone"])

	rec = a.do(t, http.MethodPost, "/v1/assessments", "p1",
		`{"locationId":"loc","date":"2026-03-02","time":"09:30","children":[{"name":"Ava"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
