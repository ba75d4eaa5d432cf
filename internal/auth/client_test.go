package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yfetch/perplexity-proxy/internal/config"
	"go.uber.org/zap"
)

const testAnonKey = "anon-key"

// newGoTrue fakes the Supabase /auth/v1/user endpoint for one valid token.
func newGoTrue(t *testing.T, validToken, userJSON string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != userPath || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("apikey") != testAnonKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url, anonKey string) *Client {
	return NewClient(config.AuthConfig{URL: url, AnonKey: anonKey, Timeout: 5 * time.Second}, zap.NewNop())
}

func TestGetUser_Valid(t *testing.T) {
	srv := newGoTrue(t, "jwt-1", `{"id":"4f1c","email":"a@yfetch.com","role":"authenticated","aud":"authenticated"}`)
	client := newTestClient(srv.URL+"/", testAnonKey)

	user, err := client.GetUser(context.Background(), "jwt-1")
	require.NoError(t, err)
	assert.Equal(t, "4f1c", user.ID)
	assert.Equal(t, "a@yfetch.com", user.Email)
	assert.Equal(t, "authenticated", user.Role)
}

func TestGetUser_Rejected(t *testing.T) {
	srv := newGoTrue(t, "jwt-1", `{"id":"4f1c"}`)

	t.Run("wrong token", func(t *testing.T) {
		user, err := newTestClient(srv.URL, testAnonKey).GetUser(context.Background(), "jwt-2")
		assert.Error(t, err)
		assert.Nil(t, user)
	})

	t.Run("wrong anon key", func(t *testing.T) {
		user, err := newTestClient(srv.URL, "other").GetUser(context.Background(), "jwt-1")
		assert.Error(t, err)
		assert.Nil(t, user)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := newTestClient(srv.URL, testAnonKey).GetUser(context.Background(), "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestGetUser_NoUser(t *testing.T) {
	srv := newGoTrue(t, "jwt-1", `{}`)

	user, err := newTestClient(srv.URL, testAnonKey).GetUser(context.Background(), "jwt-1")
	assert.ErrorIs(t, err, ErrNoUser)
	assert.Nil(t, user)
}

func TestGetUser_MalformedResponse(t *testing.T) {
	srv := newGoTrue(t, "jwt-1", `<html>`)

	_, err := newTestClient(srv.URL, testAnonKey).GetUser(context.Background(), "jwt-1")
	assert.Error(t, err)
}

func TestGetUser_Unconfigured(t *testing.T) {
	// an empty project URL is not validated up front; the call just fails
	user, err := newTestClient("", "").GetUser(context.Background(), "jwt-1")
	assert.Error(t, err)
	assert.Nil(t, user)
}

func TestGetUser_Unreachable(t *testing.T) {
	srv := newGoTrue(t, "jwt-1", `{"id":"4f1c"}`)
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, testAnonKey).GetUser(context.Background(), "jwt-1")
	assert.Error(t, err)
}
