// Package provider is the HTTP client for the hosted conversational-AI
// platform the dashboard pulls conversations from.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/asolanog/conversia/internal/metrics"
)

// DefaultPageLimit mirrors the provider's maximum page size.
const DefaultPageLimit = 100

// Page is the provider's standard list envelope.
type Page[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"has_more"`
	Limit   int  `json:"limit"`
}

// Conversation is a provider-side conversation summary.
type Conversation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"` // epoch seconds
}

// Message is a provider-side exchange: one user query and the assistant
// answer produced for it, sharing a single created_at.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
	Answer         string `json:"answer"`
	CreatedAt      int64  `json:"created_at"` // epoch seconds
}

// APIError is a non-2xx provider response. The status code and raw body are
// preserved so sync failures surface what the platform actually said.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the provider's REST API with bearer-token auth.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Collector
}

// SetCollector attaches a metrics collector; every provider request reports
// its timing to it.
func (c *Client) SetCollector(collector *metrics.Collector) {
	c.metrics = collector
}

// New creates a provider client. Timeout 0 falls back to 30s.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListConversations fetches one page of conversations. lastID pages forward
// when the provider signals has_more; pass "" for the first page.
func (c *Client) ListConversations(ctx context.Context, limit int, lastID string) (*Page[Conversation], error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if lastID != "" {
		query.Set("last_id", lastID)
	}

	var page Page[Conversation]
	if err := c.get(ctx, "/conversations", query, &page); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return &page, nil
}

// ListMessages fetches one page of messages for a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int, lastID string) (*Page[Message], error) {
	query := url.Values{
		"conversation_id": {conversationID},
		"limit":           {strconv.Itoa(limit)},
	}
	if lastID != "" {
		query.Set("last_id", lastID)
	}

	var page Page[Message]
	if err := c.get(ctx, "/messages", query, &page); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &page, nil
}

// SuggestedQuestions fetches the provider's follow-up suggestions for a
// message.
func (c *Client) SuggestedQuestions(ctx context.Context, messageID string) ([]string, error) {
	query := url.Values{"message_id": {messageID}}

	var resp struct {
		Data []string `json:"data"`
	}
	if err := c.get(ctx, "/chat-messages/suggested-questions", query, &resp); err != nil {
		return nil, fmt.Errorf("suggested questions: %w", err)
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	if c.metrics != nil {
		defer func(start time.Time) {
			c.metrics.RecordTiming(metrics.OpProviderFetch, time.Since(start))
		}(time.Now())
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
