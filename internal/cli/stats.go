package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/asolanog/conversia/internal/service"
	"github.com/asolanog/conversia/internal/stats"
)

var (
	statsStart string
	statsEnd   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Dashboard aggregates",
	Long: `Show dashboard aggregates over a date window (default last 30 days).

Subcommands:
  daily      Conversations per day
  products   Product mention counts
  referrals  Referral counts per department

Examples:
  conversia stats daily
  conversia stats products --start 2026-03-01 --end 2026-03-31
  conversia stats referrals`,
}

var statsDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Conversations per day",
	RunE:  runStatsDaily,
}

var statsProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "Product mention counts",
	RunE:  runStatsProducts,
}

var statsReferralsCmd = &cobra.Command{
	Use:   "referrals",
	Short: "Referral counts per department",
	RunE:  runStatsReferrals,
}

func init() {
	for _, c := range []*cobra.Command{statsDailyCmd, statsProductsCmd, statsReferralsCmd} {
		c.Flags().StringVar(&statsStart, "start", "", "window start (YYYY-MM-DD)")
		c.Flags().StringVar(&statsEnd, "end", "", "window end (YYYY-MM-DD)")
		statsCmd.AddCommand(c)
	}
}

func statsWindow() (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -30)
	end := now

	if statsStart != "" {
		t, err := time.Parse("2006-01-02", statsStart)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
		start = t
	}
	if statsEnd != "" {
		t, err := time.Parse("2006-01-02", statsEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
		end = t.Add(24*time.Hour - time.Second)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end before --start")
	}
	return start, end, nil
}

func runStatsDaily(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	start, end, err := statsWindow()
	if err != nil {
		return err
	}

	agg := stats.NewAggregator(dbClient)
	points, err := agg.Aggregate(ctx, "conversation", "date", start, end)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	fmt.Printf("Conversations per day (%s to %s):\n\n",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	for _, p := range points {
		fmt.Printf("  %s  %d\n", p.Date, p.Value)
	}
	return nil
}

func runStatsProducts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	start, end, err := statsWindow()
	if err != nil {
		return err
	}

	svc := service.NewProductService(dbClient, nil)
	rows, err := svc.Stats(ctx, start, end)
	if err != nil {
		return fmt.Errorf("product stats: %w", err)
	}

	if len(rows) == 0 {
		fmt.Println("No product mentions in the window.")
		return nil
	}

	fmt.Printf("Product mentions (%d products):\n\n", len(rows))
	for _, r := range rows {
		fmt.Printf("  %-30s %d\n", r.Name, r.Mentions)
	}
	return nil
}

func runStatsReferrals(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	start, end, err := statsWindow()
	if err != nil {
		return err
	}

	svc := service.NewReferralService(dbClient)
	rows, err := svc.Stats(ctx, start, end)
	if err != nil {
		return fmt.Errorf("referral stats: %w", err)
	}

	if len(rows) == 0 {
		fmt.Println("No referrals in the window.")
		return nil
	}

	fmt.Printf("Referrals (%d departments):\n\n", len(rows))
	for _, r := range rows {
		fmt.Printf("  %-30s %d\n", r.Name, r.Referrals)
	}
	return nil
}
