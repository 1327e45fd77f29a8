package service

import (
	"context"
	"time"

	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/models"
)

// ReferralService reads referral departments and records handoffs.
type ReferralService struct {
	db *db.Client
}

func NewReferralService(dbClient *db.Client) *ReferralService {
	return &ReferralService{db: dbClient}
}

func (s *ReferralService) Types(ctx context.Context) ([]models.ReferralType, error) {
	return s.db.ListReferralTypes(ctx)
}

func (s *ReferralService) Refer(ctx context.Context, conversationID, referralTypeID string, notes *string) (*models.Referral, error) {
	return s.db.CreateReferral(ctx, conversationID, referralTypeID, notes)
}

func (s *ReferralService) List(ctx context.Context, limit int) ([]models.Referral, error) {
	return s.db.ListReferrals(ctx, limit)
}

func (s *ReferralService) Stats(ctx context.Context, start, end time.Time) ([]db.ReferralStat, error) {
	return s.db.ReferralStats(ctx, start, end)
}
