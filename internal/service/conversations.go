// Package service provides business logic for Conversia operations.
package service

import (
	"context"
	"log/slog"

	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/normalize"
)

// ConversationView is a conversation with its client identifier normalized
// for display. Raw stored values are never mutated; normalization happens at
// read time so ingest stays lossless.
type ConversationView struct {
	models.Conversation
	ClientDisplay string `json:"client_display"`
}

// ConversationService reads conversations and applies display normalization.
type ConversationService struct {
	db     *db.Client
	logger *slog.Logger
}

func NewConversationService(dbClient *db.Client, logger *slog.Logger) *ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationService{db: dbClient, logger: logger}
}

// List returns conversations newest first, with normalized client labels.
// channel filters exactly on the stored label when non-empty.
func (s *ConversationService) List(ctx context.Context, channel string, limit int) ([]ConversationView, error) {
	convs, err := s.db.ListConversations(ctx, channel, limit)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, ConversationView{
			Conversation:  c,
			ClientDisplay: s.displayClient(c.Client),
		})
	}
	return views, nil
}

// Get returns one conversation with its messages in timestamp order, or
// (nil, nil, nil) when it does not exist.
func (s *ConversationService) Get(ctx context.Context, id string) (*ConversationView, []models.Message, error) {
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, nil
	}

	messages, err := s.db.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	view := &ConversationView{
		Conversation:  *conv,
		ClientDisplay: s.displayClient(conv.Client),
	}
	return view, messages, nil
}

func (s *ConversationService) displayClient(raw string) string {
	id := normalize.Normalize(raw)
	if id.Type == models.ClientTypePhone {
		return id.Value
	}
	return normalize.ShortenUUID(id.Value)
}
