// Package models defines data structures for the Conversia support database.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Channel is the closed set of inbound conversation channels.
type Channel string

const (
	ChannelWeb      Channel = "Web"
	ChannelWhatsapp Channel = "Whatsapp"
)

// Conversation represents a support conversation ingested from a messaging
// channel or pulled from the conversational-AI provider.
//
// Client holds the raw stored value; identifier normalization is applied on
// read, never on write, so inconsistent historical shapes survive round trips.
// Messages is a denormalized count recomputed after message upserts and may
// briefly lag the true row count.
type Conversation struct {
	ID       surrealmodels.RecordID `json:"id"`
	Title    string                 `json:"title"`
	Client   string                 `json:"client"`
	Channel  string                 `json:"channel"`
	Messages int                    `json:"messages"`
	Date     time.Time              `json:"date"`
}

// Message sender tags. Channel integrations write client/agent/system;
// provider sync writes the provider-specific user/assistant pair.
const (
	SenderClient    = "client"
	SenderAgent     = "agent"
	SenderSystem    = "system"
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is a single turn within a conversation. Display order within a
// conversation is defined by Timestamp, which is strictly non-decreasing.
type Message struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Content      string                 `json:"content"`
	Sender       string                 `json:"sender"`
	Timestamp    time.Time              `json:"timestamp"`
}

// ClientIdentifierType tags the shape of a client identifier value.
type ClientIdentifierType string

const (
	ClientTypePhone ClientIdentifierType = "phone"
	ClientTypeID    ClientIdentifierType = "id"
)

// ClientIdentifier is the canonical form of the heterogeneous client field.
type ClientIdentifier struct {
	Type  ClientIdentifierType `json:"type"`
	Value string               `json:"value"`
}
