package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(requestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(requestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestRecoveryReturnsJSON(t *testing.T) {
	r := gin.New()
	r.Use(recovery(testLogger))
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2"))
}

func TestRateLimiterForwardedFor(t *testing.T) {
	setup := func(t *testing.T, trusted []string) func(forwardedFor string) int {
		r, err := newEngine(trusted)
		require.NoError(t, err)
		rl := NewRateLimiter(1, 1)
		r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return func(forwardedFor string) int {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			req.Header.Set("X-Forwarded-For", forwardedFor)
			return serve(r, req).Code
		}
	}

	t.Run("untrusted peer", func(t *testing.T) {
		send := setup(t, nil)
		assert.Equal(t, http.StatusNoContent, send("198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"))
	})
	t.Run("trusted proxy", func(t *testing.T) {
		send := setup(t, []string{"10.0.0.0/8"})
		assert.Equal(t, http.StatusNoContent, send("198.51.100.1"))
		assert.Equal(t, http.StatusNoContent, send("198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"))
	})
	t.Run("invalid entry", func(t *testing.T) {
		_, err := newEngine([]string{"not-an-ip"})
		assert.Error(t, err)
	})
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")

	rl.mu.Lock()
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.Cleanup(time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestLimitBody(t *testing.T) {
	r := gin.New()
	r.Use(limitBody(16))
	api := &API{log: testLogger}
	r.POST("/", func(c *gin.Context) {
		var body map[string]any
		if api.bindJSON(c, &body) {
			c.Status(http.StatusNoContent)
		}
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func adminRouter(tokens *TokenIssuer, enforce bool) *gin.Engine {
	r := gin.New()
	r.Use(authenticate(tokens))
	r.DELETE("/thing", requireAdmin(enforce), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireAdmin(t *testing.T) {
	tokens := NewTokenIssuer("s3cret", time.Hour)
	adminToken, err := tokens.Issue(UserProfile{ID: "1", Role: RoleAdmin})
	require.NoError(t, err)
	customerToken, err := tokens.Issue(UserProfile{ID: "2", Role: RoleCustomer})
	require.NoError(t, err)

	r := adminRouter(tokens, true)

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/thing", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, bearer(httptest.NewRequest(http.MethodDelete, "/thing", nil), "garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, bearer(httptest.NewRequest(http.MethodDelete, "/thing", nil), customerToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, bearer(httptest.NewRequest(http.MethodDelete, "/thing", nil), adminToken))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAdminOpenWhenNotEnforced(t *testing.T) {
	r := adminRouter(NewTokenIssuer("s3cret", time.Hour), false)

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/thing", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORSConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.Empty(t, all.AllowOrigins)
	assert.NoError(t, all.Validate())

	some := corsConfig([]string{"https://shop.example.com"})
	assert.False(t, some.AllowAllOrigins)
	assert.True(t, some.AllowCredentials)
	assert.NoError(t, some.Validate())
}
