package db

import (
	"context"
	"fmt"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateProductType inserts a new product type. The unique index on name
// turns duplicate inserts into ErrAlreadyExists.
func (c *Client) CreateProductType(ctx context.Context, in models.ProductTypeInput) (*models.ProductType, error) {
	results, err := surrealdb.Query[[]models.ProductType](ctx, c.db, `
		CREATE product_type SET
			name = $name,
			description = $description,
			keywords = $keywords,
			created_at = time::now()
		RETURN AFTER
	`, map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"keywords":    in.Keywords,
	})
	if err != nil {
		return nil, fmt.Errorf("create product type: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create product type: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetProductTypeByName returns the product type with the given name, or nil.
func (c *Client) GetProductTypeByName(ctx context.Context, name string) (*models.ProductType, error) {
	results, err := surrealdb.Query[[]models.ProductType](ctx, c.db, `
		SELECT * FROM product_type WHERE name = $name LIMIT 1
	`, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("get product type: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (c *Client) ListProductTypes(ctx context.Context) ([]models.ProductType, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[[]models.ProductType](ctx, c.db, `
		SELECT * FROM product_type ORDER BY name ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list product types: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.ProductType{}, nil
	}
	return (*results)[0].Result, nil
}

// CreateProductMention records a detected product reference inside a message.
func (c *Client) CreateProductMention(ctx context.Context, in models.ProductMentionInput) (*models.ProductMention, error) {
	results, err := surrealdb.Query[[]models.ProductMention](ctx, c.db, `
		CREATE product_mention SET
			product = type::record("product_type", $product_id),
			conversation = type::record("conversation", $conversation_id),
			message = type::record("message", $message_id),
			context = $context,
			created_at = time::now()
		RETURN AFTER
	`, map[string]any{
		"product_id":      in.ProductID,
		"conversation_id": in.ConversationID,
		"message_id":      in.MessageID,
		"context":         in.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("create product mention: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create product mention: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ProductStat is one row of the per-product mention aggregate.
type ProductStat struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

// ProductStats aggregates mention counts per product inside [start, end]
// through the fn::get_product_stats stored function.
func (c *Client) ProductStats(ctx context.Context, start, end time.Time) ([]ProductStat, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[[]ProductStat](ctx, c.db, `
		RETURN fn::get_product_stats(type::datetime($start), type::datetime($end))
	`, map[string]any{
		"start": start.UTC().Format(time.RFC3339),
		"end":   end.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("product stats: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []ProductStat{}, nil
	}
	return (*results)[0].Result, nil
}
