package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/models"
)

// ErrDuplicateProduct is returned when a product type with the same name
// already exists.
var ErrDuplicateProduct = errors.New("product type already exists")

// ProductService manages product types and mention detection.
type ProductService struct {
	db     *db.Client
	logger *slog.Logger
}

func NewProductService(dbClient *db.Client, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{db: dbClient, logger: logger}
}

// Create registers a product type after an explicit duplicate check so
// callers get ErrDuplicateProduct rather than a raw index error.
func (s *ProductService) Create(ctx context.Context, input models.ProductTypeInput) (*models.ProductType, error) {
	existing, err := s.db.GetProductTypeByName(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, input.Name)
	}

	created, err := s.db.CreateProductType(ctx, input)
	if err != nil {
		// A concurrent create can still hit the unique index
		if errors.Is(err, db.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, input.Name)
		}
		return nil, err
	}

	s.logger.Info("product type created", "name", created.Name, "keywords", len(created.Keywords))
	return created, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.ProductType, error) {
	return s.db.ListProductTypes(ctx)
}

// ScanConversation matches every product's keywords against a conversation's
// messages and records a mention per hit. Matching is case-insensitive
// substring search over message content.
func (s *ProductService) ScanConversation(ctx context.Context, conversationID string) (int, error) {
	products, err := s.db.ListProductTypes(ctx)
	if err != nil {
		return 0, err
	}
	messages, err := s.db.ListMessages(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, msg := range messages {
		content := strings.ToLower(msg.Content)
		for _, p := range products {
			if !matchesKeywords(content, p.Keywords) {
				continue
			}
			_, err := s.db.CreateProductMention(ctx, models.ProductMentionInput{
				ProductID:      models.MustRecordIDString(p.ID),
				ConversationID: conversationID,
				MessageID:      models.MustRecordIDString(msg.ID),
				Context:        msg.Content,
			})
			if err != nil {
				return recorded, fmt.Errorf("record mention of %s: %w", p.Name, err)
			}
			recorded++
		}
	}
	return recorded, nil
}

// Stats returns per-product mention counts for the window, labelling
// products whose type has been deleted with the unknown-product sentinel.
func (s *ProductService) Stats(ctx context.Context, start, end time.Time) ([]db.ProductStat, error) {
	stats, err := s.db.ProductStats(ctx, start, end)
	if err != nil {
		return nil, err
	}
	for i := range stats {
		if stats[i].Name == "" {
			stats[i].Name = models.ProductUnknown
		}
	}
	return stats, nil
}

// matchesKeywords reports whether any keyword occurs in the lowercased
// content.
func matchesKeywords(content string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(content, kw) {
			return true
		}
	}
	return false
}
