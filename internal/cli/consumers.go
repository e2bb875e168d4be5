package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpreston/jobq/internal/client"
)

// newConsumersCmd creates the consumers command group for supervising
// the per-queue worker processes through the server.
func newConsumersCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consumers",
		Short: "Manage consumer processes",
	}

	cmd.AddCommand(newConsumersStatusCmd(a))
	cmd.AddCommand(newConsumersStartCmd(a))
	cmd.AddCommand(newConsumersStopCmd(a))

	return cmd
}

func newConsumersStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show consumer status per queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			status, err := c.ConsumerStatus(cmd.Context())
			if err != nil {
				return err
			}
			printConsumerResult(cmd, &client.ConsumerResult{Status: status})
			return nil
		},
	}
}

func newConsumersStartCmd(a *App) *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start one or all consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			result, err := c.StartConsumer(cmd.Context(), queue)
			if err != nil {
				return err
			}
			printConsumerResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "Queue name (empty for all)")
	return cmd
}

func newConsumersStopCmd(a *App) *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop one or all consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			result, err := c.StopConsumer(cmd.Context(), queue)
			if err != nil {
				return err
			}
			printConsumerResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "Queue name (empty for all)")
	return cmd
}

func printConsumerResult(cmd *cobra.Command, result *client.ConsumerResult) {
	queues := make([]string, 0, len(result.Status))
	for queue := range result.Status {
		queues = append(queues, queue)
	}
	sort.Strings(queues)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUE\tRUNNING\tERROR")
	for _, queue := range queues {
		errText := ""
		if result.Errors != nil {
			errText = result.Errors[queue]
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", queue, result.Status[queue], errText)
	}
	w.Flush()
}
