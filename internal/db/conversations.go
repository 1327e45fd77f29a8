package db

import (
	"context"
	"fmt"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// UpsertConversation creates or fully replaces a conversation keyed by its
// deterministic string id. Re-running with identical input is a no-op, which
// is what makes the provider sync idempotent.
func (c *Client) UpsertConversation(ctx context.Context, in models.ConversationUpsert) (*models.Conversation, error) {
	sql := `
		UPSERT type::record("conversation", $id) SET
			title = $title,
			client = $client,
			channel = $channel,
			messages = $messages,
			date = type::datetime($date)
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, sql, map[string]any{
		"id":       in.ID,
		"title":    in.Title,
		"client":   in.Client,
		"channel":  in.Channel,
		"messages": in.Messages,
		"date":     in.Date.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert conversation: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetConversation retrieves a conversation by id. Returns nil if not found.
func (c *Client) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM type::record("conversation", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListConversations returns conversations ordered by date descending.
// channel filters on the stored label when non-empty.
func (c *Client) ListConversations(ctx context.Context, channel string, limit int) ([]models.Conversation, error) {
	defer c.record(time.Now())

	channelClause := ""
	vars := map[string]any{"limit": limit}
	if channel != "" {
		channelClause = "WHERE channel = $channel"
		vars["channel"] = channel
	}

	sql := fmt.Sprintf(`
		SELECT * FROM conversation %s ORDER BY date DESC LIMIT $limit
	`, channelClause)

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Conversation{}, nil
	}
	return (*results)[0].Result, nil
}

// UpsertMessage creates or fully replaces a message keyed by its
// deterministic string id.
func (c *Client) UpsertMessage(ctx context.Context, in models.MessageUpsert) (*models.Message, error) {
	sql := `
		UPSERT type::record("message", $id) SET
			conversation = type::record("conversation", $conversation_id),
			content = $content,
			sender = $sender,
			timestamp = type::datetime($timestamp)
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, sql, map[string]any{
		"id":              in.ID,
		"conversation_id": in.ConversationID,
		"content":         in.Content,
		"sender":          in.Sender,
		"timestamp":       in.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert message: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert message: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListMessages returns a conversation's messages ordered by timestamp, the
// display-order invariant.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message
		WHERE conversation = type::record("conversation", $id)
		ORDER BY timestamp ASC
	`, map[string]any{"id": conversationID})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Message{}, nil
	}
	return (*results)[0].Result, nil
}

// CountMessages returns the true message row count for a conversation.
func (c *Client) CountMessages(ctx context.Context, conversationID string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, `
		SELECT count() AS c FROM message
		WHERE conversation = type::record("conversation", $id)
		GROUP ALL
	`, map[string]any{"id": conversationID})
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].C, nil
}

// SetConversationMessageCount updates the denormalized messages counter.
// The counter is advisory: it may lag the true row count when individual
// message upserts failed mid-sync.
func (c *Client) SetConversationMessageCount(ctx context.Context, conversationID string, count int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("conversation", $id) SET messages = $count
	`, map[string]any{"id": conversationID, "count": count})
	if err != nil {
		return fmt.Errorf("set message count: %w", err)
	}
	return nil
}

// rangeTables allowlists the table/field pairs the time-series aggregator
// may scan. Table and field names are interpolated into SQL, so anything
// outside this set is rejected.
var rangeTables = map[string]map[string]bool{
	"conversation":    {"date": true},
	"message":         {"timestamp": true},
	"referral":        {"created_at": true},
	"product_mention": {"created_at": true},
}

// DatesInRange returns the raw values of dateField for all rows of table
// falling inside [start, end]. One range-filtered read; counting happens
// client-side in the aggregator.
func (c *Client) DatesInRange(ctx context.Context, table, dateField string, start, end time.Time) ([]time.Time, error) {
	defer c.record(time.Now())

	fields, ok := rangeTables[table]
	if !ok || !fields[dateField] {
		return nil, fmt.Errorf("dates in range: unsupported table/field %s.%s", table, dateField)
	}

	sql := fmt.Sprintf(`
		SELECT VALUE %s FROM %s
		WHERE %s >= type::datetime($start) AND %s <= type::datetime($end)
	`, dateField, table, dateField, dateField)

	results, err := surrealdb.Query[[]time.Time](ctx, c.db, sql, map[string]any{
		"start": start.UTC().Format(time.RFC3339),
		"end":   end.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("dates in range: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []time.Time{}, nil
	}
	return (*results)[0].Result, nil
}
