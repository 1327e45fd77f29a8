package service

import (
	"context"
	"time"

	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/stats"
)

// StatsService bundles the dashboard aggregates behind one surface.
type StatsService struct {
	aggregator *stats.Aggregator
	products   *ProductService
	referrals  *ReferralService
}

func NewStatsService(aggregator *stats.Aggregator, products *ProductService, referrals *ReferralService) *StatsService {
	return &StatsService{aggregator: aggregator, products: products, referrals: referrals}
}

// TimeSeries counts rows per day for a table and date field.
func (s *StatsService) TimeSeries(ctx context.Context, table, dateField string, start, end time.Time) ([]stats.DayCount, error) {
	return s.aggregator.Aggregate(ctx, table, dateField, start, end)
}

func (s *StatsService) Products(ctx context.Context, start, end time.Time) ([]db.ProductStat, error) {
	return s.products.Stats(ctx, start, end)
}

func (s *StatsService) Referrals(ctx context.Context, start, end time.Time) ([]db.ReferralStat, error) {
	return s.referrals.Stats(ctx, start, end)
}
