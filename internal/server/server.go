package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/yfetch/perplexity-proxy/internal/auth"
	"github.com/yfetch/perplexity-proxy/internal/config"
	"github.com/yfetch/perplexity-proxy/internal/models"
	"github.com/yfetch/perplexity-proxy/internal/upstream"
	"go.uber.org/zap"
)

// IdentityVerifier resolves a caller's bearer token to a user.
type IdentityVerifier interface {
	GetUser(ctx context.Context, token string) (*auth.User, error)
}

// Completer submits a validated request to the completion API.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, req *models.CompletionRequest) (*upstream.Response, error)
}

// Server represents the API server
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	router    *gin.Engine
	verifier  IdentityVerifier
	completer Completer
}

// Option overrides a collaborator built by New.
type Option func(*Server)

func WithVerifier(v IdentityVerifier) Option {
	return func(s *Server) { s.verifier = v }
}

func WithCompleter(c Completer) Option {
	return func(s *Server) { s.completer = c }
}

// New creates a new server instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.verifier == nil {
		s.verifier = auth.NewClient(cfg.Auth, logger)
	}
	if s.completer == nil {
		s.completer = upstream.NewClient(cfg.Upstream, logger)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggerMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/ping", s.ping)

	relay := s.router.Group("/")
	relay.Use(s.corsMiddleware())
	{
		relay.Any(s.cfg.Server.Route, s.relayCompletion)
		if s.cfg.Server.Route != "/" {
			relay.Any("/", s.relayCompletion)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}
