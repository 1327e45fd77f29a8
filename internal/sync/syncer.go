// Package sync pulls conversations from the conversational AI provider and
// mirrors them into the local datastore.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/normalize"
	"github.com/asolanog/conversia/internal/provider"
)

// Store is the datastore surface the syncer writes through.
type Store interface {
	UpsertConversation(ctx context.Context, in models.ConversationUpsert) (*models.Conversation, error)
	UpsertMessage(ctx context.Context, in models.MessageUpsert) (*models.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
	SetConversationMessageCount(ctx context.Context, conversationID string, count int) error
}

// Provider lists conversations and their messages from the external platform.
type Provider interface {
	ListConversations(ctx context.Context, limit int, lastID string) (*provider.Page[provider.Conversation], error)
	ListMessages(ctx context.Context, conversationID string, limit int, lastID string) (*provider.Page[provider.Message], error)
}

// ItemError records one conversation that could not be synced.
type ItemError struct {
	ConversationID string
	Err            error
}

// Report summarizes a sync run. A run only fails outright when the provider
// listing itself fails; per-conversation errors land in Failed and the run
// continues.
type Report struct {
	Succeeded            []string
	Failed               []ItemError
	ConversationsUpdated int
	MessagesUpdated      int
}

// Options bound a sync run.
type Options struct {
	PageLimit int // conversations and messages per provider request
	MaxPages  int // conversation pages to walk per run
}

// Progress is emitted after each conversation so callers can render live
// status.
type Progress struct {
	Done     int
	Total    int
	Current  string
	Failures int
}

// Syncer mirrors provider conversations into the datastore.
type Syncer struct {
	provider Provider
	store    Store
	logger   *slog.Logger
	opts     Options

	// OnProgress, when set, is called synchronously after each conversation.
	OnProgress func(Progress)
}

func New(p Provider, store Store, logger *slog.Logger, opts Options) *Syncer {
	if opts.PageLimit <= 0 {
		opts.PageLimit = provider.DefaultPageLimit
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{provider: p, store: store, logger: logger, opts: opts}
}

// Run executes one sync pass. The returned error is non-nil only for a
// fatal provider listing failure; everything else is reported per item.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	convs, err := s.listConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list provider conversations: %w", err)
	}

	report := &Report{}
	if len(convs) == 0 {
		s.logger.Info("no provider conversations to sync")
		return report, nil
	}

	s.logger.Info("sync started", "conversations", len(convs))

	for i, conv := range convs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		messages, err := s.syncConversation(ctx, conv)
		if err != nil {
			report.Failed = append(report.Failed, ItemError{ConversationID: conv.ID, Err: err})
			s.logger.Error("conversation sync failed", "conversation_id", conv.ID, "error", err)
		} else {
			report.Succeeded = append(report.Succeeded, conv.ID)
			report.ConversationsUpdated++
			report.MessagesUpdated += messages
		}

		if s.OnProgress != nil {
			s.OnProgress(Progress{
				Done:     i + 1,
				Total:    len(convs),
				Current:  conv.ID,
				Failures: len(report.Failed),
			})
		}
	}

	s.logger.Info("sync finished",
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"messages", report.MessagesUpdated)
	return report, nil
}

// listConversations walks provider pages up to MaxPages, following has_more.
func (s *Syncer) listConversations(ctx context.Context) ([]provider.Conversation, error) {
	var all []provider.Conversation
	lastID := ""

	for page := 0; page < s.opts.MaxPages; page++ {
		resp, err := s.provider.ListConversations(ctx, s.opts.PageLimit, lastID)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if !resp.HasMore || len(resp.Data) == 0 {
			break
		}
		lastID = resp.Data[len(resp.Data)-1].ID
	}
	return all, nil
}

// syncConversation upserts one conversation and all its messages, returning
// the number of message rows written. The conversation row is written first
// so a message-listing failure still leaves the record behind with its count
// at zero until a later run completes it.
func (s *Syncer) syncConversation(ctx context.Context, conv provider.Conversation) (int, error) {
	title := conv.Name
	if title == "" {
		title = "Conversación " + shortID(conv.ID)
	}

	_, err := s.store.UpsertConversation(ctx, models.ConversationUpsert{
		ID:       conv.ID,
		Title:    title,
		Client:   normalize.NoClient,
		Channel:  string(models.ChannelWeb),
		Messages: 0,
		Date:     time.Unix(conv.CreatedAt, 0).UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("upsert conversation: %w", err)
	}

	messages, err := s.listMessages(ctx, conv.ID)
	if err != nil {
		return 0, fmt.Errorf("list messages: %w", err)
	}

	// Each exchange becomes up to two rows; empty turns write nothing.
	written := 0
	for _, msg := range messages {
		ts := time.Unix(msg.CreatedAt, 0).UTC()

		if msg.Query != "" {
			_, err := s.store.UpsertMessage(ctx, models.MessageUpsert{
				ID:             msg.ID + "-query",
				ConversationID: conv.ID,
				Content:        msg.Query,
				Sender:         models.SenderUser,
				Timestamp:      ts,
			})
			if err != nil {
				return written, fmt.Errorf("upsert query message %s: %w", msg.ID, err)
			}
			written++
		}

		if msg.Answer != "" {
			// The answer gets a one second offset so timestamp ordering keeps
			// each exchange's query before its answer.
			_, err := s.store.UpsertMessage(ctx, models.MessageUpsert{
				ID:             msg.ID + "-answer",
				ConversationID: conv.ID,
				Content:        msg.Answer,
				Sender:         models.SenderAssistant,
				Timestamp:      ts.Add(time.Second),
			})
			if err != nil {
				return written, fmt.Errorf("upsert answer message %s: %w", msg.ID, err)
			}
			written++
		}
	}

	// Recompute the denormalized count from the rows themselves rather than
	// trusting this run's arithmetic; earlier partial runs may have left rows.
	count, err := s.store.CountMessages(ctx, conv.ID)
	if err != nil {
		return written, fmt.Errorf("count messages: %w", err)
	}
	if err := s.store.SetConversationMessageCount(ctx, conv.ID, count); err != nil {
		return written, fmt.Errorf("set message count: %w", err)
	}

	return written, nil
}

// listMessages walks all message pages for a conversation. Message paging is
// not capped: a conversation is synced whole or not at all.
func (s *Syncer) listMessages(ctx context.Context, conversationID string) ([]provider.Message, error) {
	var all []provider.Message
	lastID := ""

	for {
		resp, err := s.provider.ListMessages(ctx, conversationID, s.opts.PageLimit, lastID)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if !resp.HasMore || len(resp.Data) == 0 {
			break
		}
		lastID = resp.Data[len(resp.Data)-1].ID
	}
	return all, nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
