package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/models"
)

var ErrForbidden = errors.New("insufficient role")

// UserService manages profiles and role grants.
type UserService struct {
	db     *db.Client
	logger *slog.Logger
}

func NewUserService(dbClient *db.Client, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{db: dbClient, logger: logger}
}

// EnsureProfile creates or refreshes a profile and guarantees the base role.
func (s *UserService) EnsureProfile(ctx context.Context, id, email string, fullName *string) (*models.Profile, error) {
	profile, err := s.db.UpsertProfile(ctx, id, email, fullName)
	if err != nil {
		return nil, err
	}

	_, err = s.db.AssignRole(ctx, id, models.RoleUsuario)
	if err != nil && !errors.Is(err, db.ErrAlreadyExists) {
		return nil, err
	}
	return profile, nil
}

// Grant assigns a role to a user. Repeat grants are not an error.
func (s *UserService) Grant(ctx context.Context, userID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	_, err := s.db.AssignRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	s.logger.Info("role granted", "user_id", userID, "role", role)
	return nil
}

// EffectiveRole returns the user's highest role, empty when none.
func (s *UserService) EffectiveRole(ctx context.Context, userID string) (models.Role, error) {
	return s.db.GetUserRole(ctx, userID)
}

// RequireRole returns ErrForbidden unless the user holds required or above.
func (s *UserService) RequireRole(ctx context.Context, userID string, required models.Role) error {
	ok, err := s.db.HasRole(ctx, userID, required)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: need %s", ErrForbidden, required)
	}
	return nil
}
