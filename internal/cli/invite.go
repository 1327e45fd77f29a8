package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/asolanog/conversia/internal/service"
)

var inviteCreatedBy string

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Manage registration invitations",
	Long: `Create and inspect registration invitations for the dashboard.

Examples:
  conversia invite create nuevo@example.com --by user-admin
  conversia invite list`,
}

var inviteCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Issue an invitation and print the registration link",
	Args:  cobra.ExactArgs(1),
	RunE:  runInviteCreate,
}

var inviteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invitations",
	RunE:  runInviteList,
}

func init() {
	inviteCreateCmd.Flags().StringVar(&inviteCreatedBy, "by", "", "profile id of the inviting admin (required)")
	_ = inviteCreateCmd.MarkFlagRequired("by")

	inviteCmd.AddCommand(inviteCreateCmd)
	inviteCmd.AddCommand(inviteListCmd)
}

func runInviteCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := service.NewInvitationService(dbClient, cfg.ServerOrigin, cfg.InvitationTTL, nil)
	inv, link, err := svc.Issue(ctx, args[0], inviteCreatedBy)
	if err != nil {
		return fmt.Errorf("issue invitation: %w", err)
	}

	fmt.Printf("Invitation for %s\n", inv.Email)
	fmt.Printf("Expires: %s\n", inv.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("Link:    %s\n", link)
	return nil
}

func runInviteList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := service.NewInvitationService(dbClient, cfg.ServerOrigin, cfg.InvitationTTL, nil)
	invitations, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("list invitations: %w", err)
	}

	if len(invitations) == 0 {
		fmt.Println("No invitations found.")
		return nil
	}

	now := time.Now().UTC()
	fmt.Printf("Invitations (%d):\n\n", len(invitations))
	for _, inv := range invitations {
		state := "valid"
		switch {
		case inv.Used:
			state = "used"
		case !inv.ValidAt(now):
			state = "expired"
		}
		fmt.Printf("- %s [%s] expires %s\n", inv.Email, state, inv.ExpiresAt.Format("2006-01-02 15:04"))
	}
	return nil
}
