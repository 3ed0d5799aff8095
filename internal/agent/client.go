package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBodySize caps how much of a session endpoint response is read (4MB).
const maxResponseBodySize = 4 << 20

var errBackendRejected = errors.New("backend reported failure")

// Client talks to the agent service over HTTP. The zero BaseURL is invalid;
// construct with NewClient.
type Client struct {
	// BaseURL is the service root, without a trailing slash.
	BaseURL string

	// HTTPClient serves the session endpoints. If nil, a default client
	// with a request timeout is used.
	HTTPClient *http.Client

	// StreamClient serves the streaming run endpoint. If nil, a client
	// without a hard timeout is used; cancellation comes from the request
	// context instead.
	StreamClient *http.Client

	logger *slog.Logger
}

// NewClient creates a client for the agent service at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ListSessions fetches the persisted session summaries for one agent kind.
func (c *Client) ListSessions(ctx context.Context, kind Kind) ([]SessionSummary, error) {
	var parsed sessionListResponse
	if err := c.getJSON(ctx, c.sessionsURL(kind), &parsed); err != nil {
		return nil, fmt.Errorf("list %s sessions: %w", kind, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("list %s sessions: %w: %s", kind, errBackendRejected, parsed.Error)
	}
	return parsed.Sessions, nil
}

// GetSession fetches the full persisted message list for one session.
func (c *Client) GetSession(ctx context.Context, kind Kind, sessionID string) ([]Message, error) {
	var parsed sessionDetailResponse
	if err := c.getJSON(ctx, c.sessionURL(kind, sessionID), &parsed); err != nil {
		return nil, fmt.Errorf("get %s session %s: %w", kind, sessionID, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("get %s session %s: %w: %s", kind, sessionID, errBackendRejected, parsed.Error)
	}
	return parsed.Messages, nil
}

// DeleteSession requests deletion of one session. Deletion is idempotent
// on the backend; deleting an unknown id succeeds.
func (c *Client) DeleteSession(ctx context.Context, kind Kind, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.sessionURL(kind, sessionID), nil)
	if err != nil {
		return fmt.Errorf("delete %s session %s: build request: %w", kind, sessionID, err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("delete %s session %s: %w", kind, sessionID, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete %s session %s: status=%d body=%s",
			kind, sessionID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed sessionDeleteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("delete %s session %s: parse response: %w", kind, sessionID, err)
	}
	if !parsed.Success {
		return fmt.Errorf("delete %s session %s: %w: %s", kind, sessionID, errBackendRejected, parsed.Error)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) sessionsURL(kind Kind) string {
	return fmt.Sprintf("%s/api/agents/%s/sessions", c.BaseURL, url.PathEscape(string(kind)))
}

func (c *Client) sessionURL(kind Kind, sessionID string) string {
	return fmt.Sprintf("%s/api/agents/%s/sessions/%s",
		c.BaseURL, url.PathEscape(string(kind)), url.PathEscape(sessionID))
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) streamClient() *http.Client {
	if c.StreamClient != nil {
		return c.StreamClient
	}
	return &http.Client{}
}
