package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yfetch/perplexity-proxy/internal/models"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// relayCompletion authenticates the caller and relays one chat completion
// to Perplexity. Every outcome, including failures, is written here.
func (s *Server) relayCompletion(c *gin.Context) {
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	if err := s.relay(c); err != nil {
		s.writeFailure(c, err)
	}
}

// relay runs the checks in order and stops at the first failure. It only
// writes the response on success.
func (s *Server) relay(c *gin.Context) error {
	ctx := c.Request.Context()

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return models.MissingAuth()
	}

	// Without the prefix the raw header value is used as the token
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	user, err := s.verifier.GetUser(ctx, token)
	if err != nil || user == nil {
		s.logger.Warn("Invalid authorization token",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("token_prefix", maskAPIKey(token)),
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err))
		return models.InvalidAuth(err)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}

	req, err := models.ParseCompletionRequest(body)
	if err != nil {
		return err
	}
	if !req.HasMessages() {
		return models.InvalidMessages()
	}
	if !req.HasModel() {
		return models.MissingModel()
	}

	if !s.completer.Configured() {
		s.logger.Error("Perplexity API key is not configured")
		return models.ServerMisconfigured()
	}

	resp, err := s.completer.Complete(ctx, req)
	if err != nil {
		return err
	}

	if !resp.OK() {
		s.logger.Error("Perplexity API error",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int("status", resp.StatusCode),
			zap.Any("headers", resp.Header),
			zap.String("body", string(resp.Body)))
		return models.UpstreamFailure(resp.StatusCode, string(resp.Body))
	}

	payload, err := resp.Payload()
	if err != nil {
		return err
	}

	s.logger.Debug("Relayed completion",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("user_id", user.ID),
		zap.Int("body_length", len(payload)))

	c.Data(http.StatusOK, "application/json", payload)
	return nil
}

// writeFailure renders err as an error envelope. Unclassified errors are
// logged here; classified ones were logged where they were detected.
func (s *Server) writeFailure(c *gin.Context, err error) {
	pe := models.FromFailure(err)
	if pe.Kind == models.KindGeneric {
		fields := append(errorFields(pe), zap.String("request_id", c.GetString(requestIDKey)))
		s.logger.Error("Relay failed", fields...)
	}

	c.AbortWithStatusJSON(pe.StatusCode, pe.Envelope)
}
