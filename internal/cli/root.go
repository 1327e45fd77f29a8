// Package cli provides the command-line interface for conversia.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/asolanog/conversia/internal/config"
	"github.com/asolanog/conversia/internal/db"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "conversia",
	Short: "Customer support analytics toolkit",
	Long: `Conversia ingests customer support conversations from web chat,
WhatsApp and the conversational AI provider, normalizes client
identifiers, and serves dashboard aggregates.

The CLI covers operational tasks: syncing conversations from the
provider, inspecting data, managing products, roles and invitations.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands, and for
		// remote commands that talk to the server API instead.
		if cmd.Name() == "version" || cmd.Name() == "help" || isRemote(cmd) {
			return nil
		}

		cfg = config.Load()

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// isRemote reports whether cmd belongs to the jobs command group, which
// talks to the server API and needs no database connection.
func isRemote(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == jobsCmd {
			return true
		}
	}
	return false
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(jobsCmd)
}
