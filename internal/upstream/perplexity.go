package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/yfetch/perplexity-proxy/internal/config"
	"github.com/yfetch/perplexity-proxy/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Response is a fully read upstream reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Payload returns the body re-encoded as compact JSON. Malformed bodies
// surface as *json.SyntaxError.
func (r *Response) Payload() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Client submits chat completions to Perplexity with the server-held key.
type Client struct {
	url        string
	configured bool
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Perplexity client. The API key is attached to every
// request as a bearer credential by the oauth2 transport.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})

	return &Client{
		url:        cfg.URL,
		configured: cfg.APIKey != "",
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: source,
				Base:   http.DefaultTransport,
			},
		},
		logger: logger,
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.configured
}

// Complete issues exactly one request. A non-2xx status is not an error;
// callers inspect Response.OK.
func (c *Client) Complete(ctx context.Context, req *models.CompletionRequest) (*Response, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending request to Perplexity",
		zap.String("url", c.url),
		zap.Int("body_length", len(reqBody)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
