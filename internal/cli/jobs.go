package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/asolanog/conversia/internal/client"
)

var (
	jobsServerURL string
	jobsToken     string
	jobsWatch     bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage sync jobs on a running server",
	Long: `Start and inspect provider sync jobs on a running conversia server.

Unlike 'conversia sync', which runs the sync in-process against the
database, these commands talk to the server's HTTP API and require an
admin token.

Examples:
  conversia jobs start --watch
  conversia jobs list
  conversia jobs show ab12cd34
  conversia jobs watch ab12cd34`,
}

var jobsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a sync job on the server",
	RunE:  runJobsStart,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync jobs, newest first",
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a single sync job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Stream live progress for a sync job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsWatch,
}

func init() {
	jobsCmd.PersistentFlags().StringVar(&jobsServerURL, "server", "", "server base URL (default CONVERSIA_SERVER_URL or http://localhost:8090)")
	jobsCmd.PersistentFlags().StringVar(&jobsToken, "token", "", "bearer token (default CONVERSIA_TOKEN)")
	jobsStartCmd.Flags().BoolVar(&jobsWatch, "watch", false, "stream progress until the job finishes")

	jobsCmd.AddCommand(jobsStartCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsWatchCmd)
}

func jobsClient() *client.Client {
	return client.New(jobsServerURL, jobsToken)
}

// watchContext cancels on Ctrl+C so a watch can be abandoned without
// affecting the job running on the server.
func watchContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runJobsStart(cmd *cobra.Command, args []string) error {
	c := jobsClient()

	job, err := c.StartSync(context.Background())
	if err != nil {
		return fmt.Errorf("start sync job: %w", err)
	}

	fmt.Printf("Started job %s\n", job.ID)

	if !jobsWatch {
		fmt.Printf("Follow it with: conversia jobs watch %s\n", job.ID)
		return nil
	}

	ctx, cancel := watchContext()
	defer cancel()
	return streamJob(ctx, c, job.ID)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	c := jobsClient()

	jobs, err := c.ListJobs(context.Background())
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No sync jobs.")
		return nil
	}

	for _, j := range jobs {
		fmt.Println(formatJobLine(j))
	}
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	c := jobsClient()

	job, err := c.GetJob(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	printJob(*job)
	return nil
}

func runJobsWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := watchContext()
	defer cancel()
	return streamJob(ctx, jobsClient(), args[0])
}

func streamJob(ctx context.Context, c *client.Client, id string) error {
	final, err := c.WatchJob(ctx, id, func(j client.Job) error {
		fmt.Println(formatJobLine(j))
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch job: %w", err)
	}

	if final.Status == "failed" {
		return fmt.Errorf("job %s failed: %s", final.ID, final.Error)
	}
	return nil
}

func formatJobLine(j client.Job) string {
	line := fmt.Sprintf("%s  %-9s  %d/%d", j.ID, j.Status, j.Progress, j.Total)
	if j.Done() {
		line += fmt.Sprintf("  ok=%d failed=%d messages=%d", j.Succeeded, j.Failed, j.MessagesUpdated)
	}
	return line
}

func printJob(j client.Job) {
	fmt.Printf("Job:       %s\n", j.ID)
	fmt.Printf("Status:    %s\n", j.Status)
	fmt.Printf("Progress:  %d/%d\n", j.Progress, j.Total)
	fmt.Printf("Started:   %s\n", j.StartedAt.Format(time.RFC3339))
	if j.CompletedAt != nil {
		fmt.Printf("Completed: %s\n", j.CompletedAt.Format(time.RFC3339))
	}
	if j.Done() {
		fmt.Printf("Synced:    %d conversations, %d messages\n", j.Succeeded, j.MessagesUpdated)
		fmt.Printf("Failed:    %d\n", j.Failed)
	}
	if j.Error != "" {
		fmt.Printf("Error:     %s\n", j.Error)
	}
}
