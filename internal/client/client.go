// Package client fetches agent session events from the assessment backend's
// paginated HTTP endpoint. All payload validation happens here, at the
// boundary — downstream packages receive well-formed events or an error.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/red-council/chainscope/internal/model"
)

// Config holds backend connection settings.
type Config struct {
	BaseURL string
	Token   string // optional bearer token

	// HTTPClient overrides the default client (for testing).
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the assessment backend.
type Client struct {
	base   string
	token  string
	http   *http.Client
	logger *zap.Logger
}

// New creates a Client. BaseURL is required; trailing slashes are tolerated.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		token:  cfg.Token,
		http:   httpClient,
		logger: logger,
	}, nil
}

// FetchEvents requests up to limit events after offset for a session.
// Returns the events and the backend's advisory total count.
func (c *Client) FetchEvents(ctx context.Context, sessionID string, offset, limit int) ([]model.AgentEvent, int, error) {
	endpoint := fmt.Sprintf("%s/agent/session/%s/events?offset=%d&limit=%d",
		c.base, url.PathEscape(sessionID), offset, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch events: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, &APIError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return c.decodeEvents(body)
}

// eventsEnvelope is the expected success body.
type eventsEnvelope struct {
	Events     []model.AgentEvent `json:"events"`
	TotalCount int                `json:"total_count"`
}

// decodeEvents accepts the envelope form, falls back to a bare event array
// (legacy backends), and rejects everything else.
func (c *Client) decodeEvents(body []byte) ([]model.AgentEvent, int, error) {
	var envelope eventsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Events != nil {
		return envelope.Events, envelope.TotalCount, nil
	}

	var bare []model.AgentEvent
	if err := json.Unmarshal(body, &bare); err == nil {
		c.logger.Warn("events endpoint returned bare array; expected {events, total_count} envelope")
		return bare, len(bare), nil
	}

	return nil, 0, &ValidationError{Reason: "response is neither an events envelope nor an event array"}
}
