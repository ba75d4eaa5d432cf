package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yfetch/perplexity-proxy/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const userPath = "/auth/v1/user"

var (
	// ErrMissingToken is returned for an empty bearer token.
	ErrMissingToken = errors.New("auth session missing")
	// ErrNoUser is returned when the identity service answers without a user.
	ErrNoUser = errors.New("no user returned for token")
)

// User is the subset of the Supabase user object the proxy reads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Aud   string `json:"aud"`
}

// Client verifies caller tokens against a Supabase project's GoTrue API.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Supabase auth client
func NewClient(cfg config.AuthConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// GetUser resolves the user that owns token. Any failure, including transport
// errors, is returned as an error and never as a nil user with a nil error.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	(&oauth2.Token{AccessToken: token}).SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Debug("Identity service rejected token",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("identity service returned %d: %s", resp.StatusCode, string(body))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrNoUser
	}

	return &user, nil
}
