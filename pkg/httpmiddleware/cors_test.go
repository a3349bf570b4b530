package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRequest(h http.Handler, method, origin string, preflight string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight != "" {
		req.Header.Set("Access-Control-Request-Method", preflight)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_WildcardByDefault(t *testing.T) {
	h := Wrap(okHandler(), CORS(CORSConfig{}))

	rec := corsRequest(h, "GET", "https://shop.example.com", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_NoOriginHeaderPassesThrough(t *testing.T) {
	h := Wrap(okHandler(), CORS(CORSConfig{}))

	rec := corsRequest(h, "GET", "", "")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_AllowlistedOrigin(t *testing.T) {
	h := Wrap(okHandler(), CORS(CORSConfig{
		AllowOrigins: []string{"https://shop.example.com"},
	}))

	rec := corsRequest(h, "GET", "https://shop.example.com", "")
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = corsRequest(h, "GET", "https://evil.example.com", "")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	// The request itself still proceeds; the browser enforces the policy.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	h := Wrap(okHandler(), CORS(CORSConfig{AllowCredentials: true}))

	rec := corsRequest(h, "GET", "https://shop.example.com", "")
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight(t *testing.T) {
	h := Wrap(okHandler(), CORS(CORSConfig{
		AllowOrigins: []string{"https://shop.example.com"},
		MaxAge:       600,
	}))

	rec := corsRequest(h, "OPTIONS", "https://shop.example.com", "PATCH")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}
