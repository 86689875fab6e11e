package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-scheduler/internal/config"
	"github.com/iliyamo/tutoring-scheduler/internal/logger"
	"github.com/iliyamo/tutoring-scheduler/internal/utils"
)

const secret = "0123456789abcdef0123"

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	return c.String(http.StatusOK, ParentID(c))
}

func TestJWTAuth(t *testing.T) {
	t.Parallel()
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret), RequireRole(RoleParent))

	tok, err := utils.NewAccessToken(secret, "parent-1", RoleParent, time.Hour)
	require.NoError(t, err)
	rec := serve(e, http.MethodGet, "/me", tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "parent-1", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)

	other, err := utils.NewAccessToken("another-secret-value", "parent-1", RoleParent, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", other.Token).Code)

	expired, err := utils.NewAccessToken(secret, "parent-1", RoleParent, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", expired.Token).Code)

	staff, err := utils.NewAccessToken(secret, "staff-1", RoleStaff, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/me", staff.Token).Code)
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	t.Parallel()
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1,
		RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl",
	}
	e := echo.New()
	e.GET("/slots", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/slots", "").Code)
	rec := serve(e, http.MethodGet, "/slots", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodGet, "/slots", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLocalLimiterSweepsIdleBuckets(t *testing.T) {
	t.Parallel()
	l := newLocalLimiters(config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	now := time.Now()
	ok, _, _ := l.take("a", now)
	assert.True(t, ok)
	ok, _, wait := l.take("a", now)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	l.take("b", now.Add(2*time.Minute))
	assert.NotContains(t, l.buckets, "a")
}

func TestCachePayloadKeepsHeaders(t *testing.T) {
	t.Parallel()
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"slots":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"slots":[]}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestCacheKeyIncludesParamsAndQuery(t *testing.T) {
	t.Parallel()
	e := echo.New()
	keyFor := func(target, id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/locations/:id/slots")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKey("cache", c)
	}
	a := keyFor("/locations/l1/slots?date=2026-03-02", "l1")
	assert.Equal(t, a, keyFor("/locations/l1/slots?date=2026-03-02", "l1"))
	assert.NotEqual(t, a, keyFor("/locations/l2/slots?date=2026-03-02", "l2"))
	assert.NotEqual(t, a, keyFor("/locations/l1/slots?date=2026-03-03", "l1"))
}

func TestRequestLoggerStoresLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		logger.FromContext(c.Request().Context()).Info("inside")
		return c.NoContent(http.StatusNoContent)
	}, RequestLogger(base))

	rec := serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	id := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, id)
	assert.Contains(t, buf.String(), `"msg":"inside"`)
	assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)
	assert.Contains(t, buf.String(), `"status":204`)
}
