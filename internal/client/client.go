// Package client provides an HTTP client for the conversia server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to a running conversia server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses CONVERSIA_SERVER_URL env var or defaults to localhost:8090.
// If token is empty, uses CONVERSIA_TOKEN env var. Timeout can be configured via
// CONVERSIA_CLIENT_TIMEOUT env var (default 30s).
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("CONVERSIA_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	if token == "" {
		token = os.Getenv("CONVERSIA_TOKEN")
	}

	timeout := 30 * time.Second
	if t := os.Getenv("CONVERSIA_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the error payload returned by the server.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// Job mirrors the server's sync job representation.
type Job struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	MessagesUpdated int `json:"messages_updated"`
}

// Done reports whether the job has reached a terminal state.
func (j Job) Done() bool {
	return j.Status == "completed" || j.Status == "failed"
}

// Invitation is the response from sending an invitation.
type Invitation struct {
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// StartSync starts a provider sync job on the server.
func (c *Client) StartSync(ctx context.Context) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, "/sync/jobs", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob fetches a single sync job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/sync/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs fetches all known sync jobs, newest first.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.do(ctx, http.MethodGet, "/sync/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// SendInvitation asks the server to issue a registration invitation.
func (c *Client) SendInvitation(ctx context.Context, email string) (*Invitation, error) {
	var inv Invitation
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/send-invitation", body, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// WatchJob streams live updates for a sync job over a websocket until the job
// reaches a terminal state. The onUpdate callback is invoked for each update.
// Return an error from onUpdate to abort. The final job state is returned.
func (c *Client) WatchJob(ctx context.Context, id string, onUpdate func(Job) error) (*Job, error) {
	wsURL := c.baseURL
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/ws/sync/" + url.PathEscape(id)

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Track connection state so the cancellation goroutine and the
	// deferred close don't double-close.
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var job Job
		if err := conn.ReadJSON(&job); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read update: %w", err)
		}

		if onUpdate != nil {
			if err := onUpdate(job); err != nil {
				return nil, err
			}
		}

		if job.Done() {
			return &job, nil
		}
	}
}
