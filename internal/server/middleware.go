package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yfetch/perplexity-proxy/internal/models"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// loggerMiddleware logs HTTP requests
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		s.logger.Info("HTTP Request",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// requestIDMiddleware reuses the caller's X-Request-ID or generates one
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(requestIDHeader, requestID)
		c.Set(requestIDKey, requestID)

		c.Next()
	}
}

// corsMiddleware writes the fixed CORS header set. Preflight handling is
// left to the relay handler so that it stays the first step of a call.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	cors := s.cfg.CORS
	credentials := strconv.FormatBool(cors.AllowCredentials)
	maxAge := strconv.Itoa(cors.MaxAge)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", cors.AllowOrigin)
		h.Set("Access-Control-Allow-Methods", cors.AllowMethods)
		h.Set("Access-Control-Allow-Headers", cors.AllowHeaders)
		h.Set("Access-Control-Allow-Credentials", credentials)
		h.Set("Access-Control-Max-Age", maxAge)
		h.Set("Content-Type", "application/json")

		c.Next()
	}
}

// recoveryMiddleware turns a panic into a catch-all error envelope
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("%v", recovered)
		}
		s.writeFailure(c, err)
	})
}

// maskAPIKey returns a masked version of the API key for logging
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// errorFields flattens a ProxyError for logging
func errorFields(pe *models.ProxyError) []zap.Field {
	fields := []zap.Field{
		zap.String("kind", pe.Kind.String()),
		zap.Int("status", pe.StatusCode),
		zap.String("error", pe.Envelope.Error),
	}
	if pe.Envelope.Type != "" {
		fields = append(fields, zap.String("type", pe.Envelope.Type))
	}
	if pe.Err != nil {
		fields = append(fields, zap.NamedError("cause", pe.Err))
	}
	return fields
}
