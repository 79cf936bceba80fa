package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/app"
	"tasktracker/internal/pkg/jwtutil"
	"tasktracker/internal/transport/http/response"
)

type stubAuthenticator struct {
	claims *jwtutil.Claims
	err    error
	seen   string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*jwtutil.Claims, error) {
	s.seen = token
	return s.claims, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newGatedRouter(auth Authenticator) *gin.Engine {
	r := gin.New()
	r.GET("/public", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"public": true}) })
	r.Use(AuthGate(auth))
	r.GET("/private", func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": claims.Username})
	})
	return r
}

func doRequest(r http.Handler, path, authorization string) (*httptest.ResponseRecorder, response.APIResponse) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body response.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestAuthGateLeavesEarlierRoutesPublic(t *testing.T) {
	r := newGatedRouter(&stubAuthenticator{err: errors.New("must not be called")})

	rec, _ := doRequest(r, "/public", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGateRejections(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		err     error
		status  int
		code    int
		message string
	}{
		{"missing header", "", nil, http.StatusUnauthorized, response.CodeTokenMissing, MessageInsertToken},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized, response.CodeTokenMissing, MessageInsertToken},
		{"empty bearer", "Bearer   ", nil, http.StatusUnauthorized, response.CodeTokenMissing, MessageInsertToken},
		{"malformed", "Bearer x", jwtutil.ErrTokenMalformed, http.StatusUnauthorized, response.CodeTokenInvalid, MessageTokenUnmatched},
		{"bad signature", "Bearer x", jwtutil.ErrTokenInvalid, http.StatusUnauthorized, response.CodeTokenInvalid, MessageTokenUnmatched},
		{"expired", "Bearer x", jwtutil.ErrTokenExpired, http.StatusUnauthorized, response.CodeTokenExpired, MessageTokenExpired},
		{"stale", "Bearer x", app.ErrTokenStale, http.StatusUnauthorized, response.CodeTokenUnavailable, MessageTokenUnavailable},
		{"revoked", "Bearer x", app.ErrTokenRevoked, http.StatusUnauthorized, response.CodeTokenUnavailable, MessageTokenUnavailable},
		{"store failure", "Bearer x", errors.New("db down"), http.StatusInternalServerError, response.CodeInternalServer, "authentication failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newGatedRouter(&stubAuthenticator{err: tc.err})

			rec, body := doRequest(r, "/private", tc.header)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestAuthGateAttachesClaims(t *testing.T) {
	stub := &stubAuthenticator{claims: &jwtutil.Claims{Username: "alice"}}
	r := newGatedRouter(stub)

	rec, _ := doRequest(r, "/private", "bearer tok-123")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rec.Body.String())
	assert.Equal(t, "tok-123", stub.seen)
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(60, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.1.1.1"), "one token refills per second at 60/min")

	now = now.Add(2 * limiterIdleTTL)
	l.Allow("3.3.3.3")
	assert.Len(t, l.clients, 1, "idle clients are swept")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(NewIPRateLimiter(1, 1)), func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMetricsMiddlewareCountsRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := counterValue(t, "GET", "/ping", "204")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, before+1, counterValue(t, "GET", "/ping", "204"))
}
