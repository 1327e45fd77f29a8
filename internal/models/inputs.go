package models

import "time"

// ConversationUpsert carries a full conversation row keyed by a
// deterministic string id. On conflict the row is replaced whole.
type ConversationUpsert struct {
	ID       string
	Title    string
	Client   string
	Channel  string
	Messages int
	Date     time.Time
}

// MessageUpsert carries a full message row keyed by a deterministic
// string id.
type MessageUpsert struct {
	ID             string
	ConversationID string
	Content        string
	Sender         string
	Timestamp      time.Time
}

// ProductTypeInput is the payload for creating a catalog product.
type ProductTypeInput struct {
	Name        string
	Description *string
	Keywords    []string
}

// ProductMentionInput records a detected product reference.
type ProductMentionInput struct {
	ProductID      string
	ConversationID string
	MessageID      string
	Context        string
}
