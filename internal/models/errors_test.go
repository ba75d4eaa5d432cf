package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyErrors(t *testing.T) {
	cases := []struct {
		err    *ProxyError
		kind   Kind
		status int
		body   string
	}{
		{MissingAuth(), KindMissingAuth, 401, `{"error":"Missing authorization header"}`},
		{InvalidAuth(errors.New("expired")), KindInvalidAuth, 401, `{"error":"Invalid authorization token"}`},
		{InvalidMessages(), KindInvalidMessages, 400, `{"error":"Invalid messages format"}`},
		{MissingModel(), KindMissingModel, 400, `{"error":"Model parameter is required"}`},
		{ServerMisconfigured(), KindServerMisconfigured, 500, `{"error":"Server configuration error"}`},
		{UpstreamFailure(429, "slow down"), KindUpstream, 429, `{"error":"Perplexity API error","details":"slow down","status":429}`},
		{UpstreamFailure(503, ""), KindUpstream, 503, `{"error":"Perplexity API error","details":"","status":503}`},
	}

	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind)
			assert.Equal(t, tc.status, tc.err.StatusCode)

			body, err := json.Marshal(tc.err.Envelope)
			require.NoError(t, err)
			assert.JSONEq(t, tc.body, string(body))
		})
	}
}

func TestInvalidAuth_UnwrapsCause(t *testing.T) {
	cause := errors.New("token expired")
	err := InvalidAuth(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "token expired")
}

func TestStatusForMessage(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusForMessage("missing authorization"))
	assert.Equal(t, http.StatusUnauthorized, StatusForMessage("bad authorization header value"))
	// the match is case-sensitive
	assert.Equal(t, http.StatusInternalServerError, StatusForMessage("Authorization failed"))
	assert.Equal(t, http.StatusInternalServerError, StatusForMessage("connection refused"))
	assert.Equal(t, http.StatusInternalServerError, StatusForMessage(""))
}

func TestFromFailure(t *testing.T) {
	t.Run("classified errors pass through", func(t *testing.T) {
		original := MissingModel()
		wrapped := fmt.Errorf("relay: %w", original)

		assert.Same(t, original, FromFailure(wrapped))
	})

	t.Run("syntax error", func(t *testing.T) {
		_, parseErr := ParseCompletionRequest([]byte(`{`))
		pe := FromFailure(parseErr)

		assert.Equal(t, KindGeneric, pe.Kind)
		assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
		assert.Equal(t, TypeSyntaxError, pe.Envelope.Type)
		assert.Equal(t, parseErr.Error(), pe.Envelope.Error)
		assert.Nil(t, pe.Envelope.Details)
		assert.Nil(t, pe.Envelope.Status)
	})

	t.Run("null body", func(t *testing.T) {
		pe := FromFailure(ErrNullBody)
		assert.Equal(t, TypeTypeError, pe.Envelope.Type)
		assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
	})

	t.Run("transport error", func(t *testing.T) {
		err := &url.Error{Op: "Post", URL: "https://api.perplexity.ai/chat/completions", Err: errors.New("connection reset")}
		pe := FromFailure(err)

		assert.Equal(t, TypeTypeError, pe.Envelope.Type)
		assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
	})

	t.Run("authorization in message", func(t *testing.T) {
		pe := FromFailure(errors.New("invalid authorization"))

		assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
		assert.Equal(t, TypeError, pe.Envelope.Type)

		body, err := json.Marshal(pe.Envelope)
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"invalid authorization","type":"Error"}`, string(body))
	})
}
