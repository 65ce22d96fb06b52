package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidaplan/vidaplan/internal/ctxkeys"
	"github.com/vidaplan/vidaplan/internal/model"
)

func okHandler() (http.HandlerFunc, *bool) {
	called := false
	return func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}, &called
}

func TestRequireAuth_NoUser(t *testing.T) {
	next, called := okHandler()
	handler := RequireAuth(next)

	r := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	w := httptest.NewRecorder()
	handler(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error": "authentication required"}`, w.Body.String())
	assert.False(t, *called)
}

func TestRequireAuth_WithUser(t *testing.T) {
	next, called := okHandler()
	handler := RequireAuth(next)

	r := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	r = r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: "user-1"}))
	w := httptest.NewRecorder()
	handler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *called)
}

func TestCSRFProtection(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CSRFProtection(next)

	// A GET issues a token cookie.
	r := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == "csrf_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	// A POST without the header is rejected.
	r = httptest.NewRequest(http.MethodPost, "/api/goals", nil)
	r.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Echoing the cookie value in the header passes.
	r = httptest.NewRequest(http.MethodPost, "/api/goals", nil)
	r.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	r.Header.Set("X-CSRF-Token", token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	// A mismatched header fails.
	r = httptest.NewRequest(http.MethodPost, "/api/goals", nil)
	r.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	r.Header.Set("X-CSRF-Token", "forged")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// Another IP has its own budget.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:1234"
	assert.Equal(t, "192.0.2.10", getClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.7")
	assert.Equal(t, "203.0.113.5", getClientIP(r))
}
