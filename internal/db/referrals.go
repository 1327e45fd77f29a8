package db

import (
	"context"
	"fmt"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

func (c *Client) ListReferralTypes(ctx context.Context) ([]models.ReferralType, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[[]models.ReferralType](ctx, c.db, `
		SELECT * FROM referral_type ORDER BY name ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list referral types: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.ReferralType{}, nil
	}
	return (*results)[0].Result, nil
}

// CreateReferral links a conversation to the department it was handed off to.
func (c *Client) CreateReferral(ctx context.Context, conversationID, referralTypeID string, notes *string) (*models.Referral, error) {
	results, err := surrealdb.Query[[]models.Referral](ctx, c.db, `
		CREATE referral SET
			conversation = type::record("conversation", $conversation_id),
			referral_type = type::record("referral_type", $referral_type_id),
			notes = $notes,
			created_at = time::now()
		RETURN AFTER
	`, map[string]any{
		"conversation_id":  conversationID,
		"referral_type_id": referralTypeID,
		"notes":            notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create referral: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create referral: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

func (c *Client) ListReferrals(ctx context.Context, limit int) ([]models.Referral, error) {
	results, err := surrealdb.Query[[]models.Referral](ctx, c.db, `
		SELECT * FROM referral ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Referral{}, nil
	}
	return (*results)[0].Result, nil
}

// ReferralStat is one row of the per-department referral aggregate.
type ReferralStat struct {
	Name      string `json:"name"`
	Referrals int    `json:"referrals"`
}

// ReferralStats aggregates referral counts per department inside [start, end]
// through the fn::get_referral_stats stored function.
func (c *Client) ReferralStats(ctx context.Context, start, end time.Time) ([]ReferralStat, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[[]ReferralStat](ctx, c.db, `
		RETURN fn::get_referral_stats(type::datetime($start), type::datetime($end))
	`, map[string]any{
		"start": start.UTC().Format(time.RFC3339),
		"end":   end.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("referral stats: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []ReferralStat{}, nil
	}
	return (*results)[0].Result, nil
}
