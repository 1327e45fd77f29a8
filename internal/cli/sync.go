package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/asolanog/conversia/internal/provider"
	syncer "github.com/asolanog/conversia/internal/sync"
)

var (
	syncMaxPages  int
	syncPageLimit int
	syncNoUI      bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull conversations from the AI provider",
	Long: `Sync fetches conversations and messages from the conversational AI
provider and upserts them into the local datastore. Re-running is safe:
rows are keyed by provider ids.

Examples:
  conversia sync
  conversia sync --pages 5 --limit 50
  conversia sync --no-ui`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().IntVar(&syncMaxPages, "pages", 0, "max conversation pages to fetch (default from config)")
	syncCmd.Flags().IntVar(&syncPageLimit, "limit", 0, "items per provider request (default from config)")
	syncCmd.Flags().BoolVar(&syncNoUI, "no-ui", false, "plain output instead of the progress display")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cfg.ProviderAPIKey == "" {
		return fmt.Errorf("provider API key not configured (set CONVERSIA_PROVIDER_KEY)")
	}

	pages := cfg.SyncMaxPages
	if syncMaxPages > 0 {
		pages = syncMaxPages
	}
	limit := cfg.SyncPageLimit
	if syncPageLimit > 0 {
		limit = syncPageLimit
	}

	client := provider.New(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	s := syncer.New(client, dbClient, nil, syncer.Options{
		PageLimit: limit,
		MaxPages:  pages,
	})

	// The progress display needs a terminal; piped output gets plain mode.
	interactive := !syncNoUI && term.IsTerminal(int(os.Stdout.Fd()))

	var report *syncer.Report
	var err error
	if interactive {
		report, err = runSyncWithProgress(ctx, s)
	} else {
		report, err = s.Run(ctx)
	}
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	printReport(report)
	return nil
}

func printReport(report *syncer.Report) {
	fmt.Printf("\nSynced %d conversations, %d messages\n",
		report.ConversationsUpdated, report.MessagesUpdated)

	if len(report.Failed) > 0 {
		fmt.Printf("\nFailures (%d):\n", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Printf("  - %s: %v\n", f.ConversationID, f.Err)
		}
	}

	if verbose && len(report.Succeeded) > 0 {
		fmt.Println("\nSynced conversations:")
		for _, id := range report.Succeeded {
			fmt.Printf("  - %s\n", id)
		}
	}
}
