package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/service"
)

var (
	listChannel string
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Long: `List conversations in the datastore, newest first.

Examples:
  conversia list
  conversia list --channel Whatsapp
  conversia list --limit 10 -v`,
	RunE: runList,
}

var listShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show one conversation with its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runListShow,
}

func init() {
	listCmd.Flags().StringVarP(&listChannel, "channel", "c", "", "filter by channel (Web or Whatsapp)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "max results")

	listCmd.AddCommand(listShowCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if listChannel != "" && listChannel != string(models.ChannelWeb) && listChannel != string(models.ChannelWhatsapp) {
		return fmt.Errorf("unknown channel %q (use Web or Whatsapp)", listChannel)
	}

	svc := service.NewConversationService(dbClient, nil)
	convs, err := svc.List(ctx, listChannel, listLimit)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if len(convs) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	fmt.Printf("Conversations (%d):\n\n", len(convs))
	for _, c := range convs {
		fmt.Printf("- %s [%s] %s (%d messages)\n",
			c.Date.Format("2006-01-02"), c.Channel, c.Title, c.Messages)
		if verbose {
			fmt.Printf("  Client: %s\n", c.ClientDisplay)
		}
	}

	return nil
}

func runListShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := service.NewConversationService(dbClient, nil)
	conv, messages, err := svc.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("conversation %q not found", args[0])
	}

	fmt.Printf("%s\n", conv.Title)
	fmt.Printf("Channel: %s  Client: %s  Date: %s\n\n",
		conv.Channel, conv.ClientDisplay, conv.Date.Format("2006-01-02 15:04"))

	for _, m := range messages {
		fmt.Printf("[%s] %s\n  %s\n", m.Timestamp.Format("15:04:05"), m.Sender, m.Content)
	}

	return nil
}
