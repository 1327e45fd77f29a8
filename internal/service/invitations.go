package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/models"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationUsed     = errors.New("invitation already used")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// InvitationService issues and redeems registration invitations.
type InvitationService struct {
	db     *db.Client
	origin string // dashboard base URL the registration link points at
	ttl    time.Duration
	logger *slog.Logger
}

func NewInvitationService(dbClient *db.Client, origin string, ttl time.Duration, logger *slog.Logger) *InvitationService {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationService{db: dbClient, origin: origin, ttl: ttl, logger: logger}
}

// Issue creates an invitation for email and returns it with the registration
// link the invitee receives.
func (s *InvitationService) Issue(ctx context.Context, email, createdBy string) (*models.RegistrationInvitation, string, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	token := uuid.New().String()
	expires := time.Now().UTC().Add(s.ttl)

	inv, err := s.db.CreateInvitation(ctx, token, email, expires, createdBy)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("invitation issued", "email", email, "expires_at", expires)
	return inv, RegistrationLink(s.origin, token), nil
}

// Validate checks whether the invitation can still be redeemed. A used
// invitation reports used even when it has also expired.
func (s *InvitationService) Validate(ctx context.Context, token string) (*models.RegistrationInvitation, error) {
	inv, err := s.db.GetInvitation(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}
	if inv.Used {
		return nil, ErrInvitationUsed
	}
	if !inv.ValidAt(time.Now().UTC()) {
		return nil, ErrInvitationExpired
	}
	return inv, nil
}

// Redeem consumes an invitation. Exactly one caller can succeed per token.
func (s *InvitationService) Redeem(ctx context.Context, token string) (*models.RegistrationInvitation, error) {
	if _, err := s.Validate(ctx, token); err != nil {
		return nil, err
	}

	inv, err := s.db.MarkInvitationUsed(ctx, token)
	if err != nil {
		// Lost the race against a concurrent redemption
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvitationUsed
		}
		return nil, err
	}

	s.logger.Info("invitation redeemed", "email", inv.Email)
	return inv, nil
}

func (s *InvitationService) List(ctx context.Context) ([]models.RegistrationInvitation, error) {
	return s.db.ListInvitations(ctx)
}

// RegistrationLink builds the dashboard registration URL for a token.
func RegistrationLink(origin, token string) string {
	return fmt.Sprintf("%s/auth/register?token=%s",
		strings.TrimRight(origin, "/"), url.QueryEscape(token))
}

// validEmail applies a minimal shape check: one @, non-empty local part,
// a dot in the domain.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.Contains(domain, "@") {
		return false
	}
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
