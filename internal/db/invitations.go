package db

import (
	"context"
	"fmt"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateInvitation stores a registration invitation keyed by its token so the
// redemption path can look it up directly.
func (c *Client) CreateInvitation(ctx context.Context, token, email string, expiresAt time.Time, createdBy string) (*models.RegistrationInvitation, error) {
	results, err := surrealdb.Query[[]models.RegistrationInvitation](ctx, c.db, `
		UPSERT type::record("registration_invitation", $token) SET
			email = $email,
			expires_at = type::datetime($expires_at),
			used = false,
			created_by = type::record("profile", $created_by),
			created_at = time::now()
		RETURN AFTER
	`, map[string]any{
		"token":      token,
		"email":      email,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"created_by": createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create invitation: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

func (c *Client) GetInvitation(ctx context.Context, token string) (*models.RegistrationInvitation, error) {
	results, err := surrealdb.Query[[]models.RegistrationInvitation](ctx, c.db, `
		SELECT * FROM type::record("registration_invitation", $token)
	`, map[string]any{"token": token})
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// MarkInvitationUsed consumes an invitation exactly once. The conditional
// update only matches an unused row, so a second redemption attempt returns
// ErrNotFound instead of silently succeeding.
func (c *Client) MarkInvitationUsed(ctx context.Context, token string) (*models.RegistrationInvitation, error) {
	results, err := surrealdb.Query[[]models.RegistrationInvitation](ctx, c.db, `
		UPDATE type::record("registration_invitation", $token)
		SET used = true
		WHERE used = false
		RETURN AFTER
	`, map[string]any{"token": token})
	if err != nil {
		return nil, fmt.Errorf("mark invitation used: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (c *Client) ListInvitations(ctx context.Context) ([]models.RegistrationInvitation, error) {
	results, err := surrealdb.Query[[]models.RegistrationInvitation](ctx, c.db, `
		SELECT * FROM registration_invitation ORDER BY created_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.RegistrationInvitation{}, nil
	}
	return (*results)[0].Result, nil
}
