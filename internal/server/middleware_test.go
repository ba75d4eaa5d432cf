package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	s := newTestServer(t, testConfig(t, "http://unused.invalid", ""), WithVerifier(&stubVerifier{}))

	t.Run("generates request ID when not present", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/health", "", nil)
		assert.Len(t, rec.Header().Get(requestIDHeader), 36)
	})

	t.Run("preserves existing request ID from header", func(t *testing.T) {
		rec := doRequest(s, http.MethodOptions, "/perplexity", "", map[string]string{requestIDHeader: "req-12345"})
		assert.Equal(t, "req-12345", rec.Header().Get(requestIDHeader))
	})
}

func TestCORSHeadersFollowConfig(t *testing.T) {
	cfg := testConfig(t, "http://unused.invalid", "")
	cfg.CORS.AllowOrigin = "https://staging.yfetch.com"
	cfg.CORS.AllowCredentials = false
	cfg.CORS.MaxAge = 600
	s := newTestServer(t, cfg, WithVerifier(&stubVerifier{}))

	rec := doRequest(s, http.MethodPost, "/perplexity", validBody, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "https://staging.yfetch.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "false", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCustomRoute(t *testing.T) {
	cfg := testConfig(t, "http://unused.invalid", "")
	cfg.Server.Route = "/functions/v1/perplexity"
	s := newTestServer(t, cfg, WithVerifier(&stubVerifier{}))

	rec := doRequest(s, http.MethodOptions, "/functions/v1/perplexity", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(s, http.MethodOptions, "/perplexity", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "***", maskAPIKey("short"))
	assert.Equal(t, "eyJh...sig1", maskAPIKey("eyJhbGciOi.payload.sig1"))
}
