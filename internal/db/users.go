package db

import (
	"context"
	"fmt"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// UpsertProfile creates or updates a profile keyed by user id.
func (c *Client) UpsertProfile(ctx context.Context, id, email string, fullName *string) (*models.Profile, error) {
	results, err := surrealdb.Query[[]models.Profile](ctx, c.db, `
		UPSERT type::record("profile", $id) SET
			email = $email,
			full_name = $full_name,
			created_at = created_at OR time::now()
		RETURN AFTER
	`, map[string]any{
		"id":        id,
		"email":     email,
		"full_name": fullName,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert profile: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

func (c *Client) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	results, err := surrealdb.Query[[]models.Profile](ctx, c.db, `
		SELECT * FROM profile WHERE email = $email LIMIT 1
	`, map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// AssignRole grants a role to a user. The unique [user, role] index makes
// repeated grants ErrAlreadyExists.
func (c *Client) AssignRole(ctx context.Context, userID string, role models.Role) (*models.UserRole, error) {
	results, err := surrealdb.Query[[]models.UserRole](ctx, c.db, `
		CREATE user_role SET
			user = type::record("profile", $user_id),
			role = $role
		RETURN AFTER
	`, map[string]any{
		"user_id": userID,
		"role":    string(role),
	})
	if err != nil {
		return nil, fmt.Errorf("assign role: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("assign role: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetUserRole returns the user's highest role via fn::get_user_role, or the
// empty role when the user has none.
func (c *Client) GetUserRole(ctx context.Context, userID string) (models.Role, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[*string](ctx, c.db, `
		RETURN fn::get_user_role(type::record("profile", $user_id))
	`, map[string]any{"user_id": userID})
	if err != nil {
		return "", fmt.Errorf("get user role: %w", err)
	}

	if results == nil || len(*results) == 0 || (*results)[0].Result == nil {
		return "", nil
	}
	return models.Role(*(*results)[0].Result), nil
}

// HasRole reports whether the user holds the required role or a higher one.
// The hierarchy lives in fn::has_role so HTTP handlers and future database
// permissions share one definition.
func (c *Client) HasRole(ctx context.Context, userID string, role models.Role) (bool, error) {
	defer c.record(time.Now())

	results, err := surrealdb.Query[bool](ctx, c.db, `
		RETURN fn::has_role(type::record("profile", $user_id), $role)
	`, map[string]any{
		"user_id": userID,
		"role":    string(role),
	})
	if err != nil {
		return false, fmt.Errorf("has role: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return false, nil
	}
	return (*results)[0].Result, nil
}
