package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mpreston/jobq/internal/client"
	"github.com/mpreston/jobq/internal/store"
)

// newJobsCmd creates the jobs command group.
func newJobsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage jobs",
	}

	cmd.AddCommand(newJobsListCmd(a))
	cmd.AddCommand(newJobsGetCmd(a))
	cmd.AddCommand(newJobsCreateCmd(a))
	cmd.AddCommand(newJobsQueueCmd(a))
	cmd.AddCommand(newJobsKillCmd(a))
	cmd.AddCommand(newJobsDeleteCmd(a))
	cmd.AddCommand(newJobsLogCmd(a))

	return cmd
}

// apiClient builds a client against the configured server.
func (a *App) apiClient() (*client.Client, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.BaseURL), nil
}

func newJobsListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			jobs, err := c.ListJobs(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tQUEUE\tNAME\tTYPE\tPRIORITY\tSTATUS\tCREATED")
			for _, job := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					job.ID, job.QueueName, job.Name, job.Type,
					job.Priority, job.Status,
					job.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func newJobsGetCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			job, err := c.GetJob(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "ID\t%s\n", job.ID)
			fmt.Fprintf(w, "Name\t%s\n", job.Name)
			fmt.Fprintf(w, "Queue\t%s\n", job.QueueName)
			fmt.Fprintf(w, "Type\t%s\n", job.Type)
			fmt.Fprintf(w, "Command\t%s\n", job.Command)
			fmt.Fprintf(w, "Priority\t%s\n", job.Priority)
			fmt.Fprintf(w, "Status\t%s\n", job.Status)
			fmt.Fprintf(w, "Retries\t%d\n", job.RetryCount)
			fmt.Fprintf(w, "Created\t%s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
			if job.PID != nil {
				fmt.Fprintf(w, "PID\t%d\n", *job.PID)
			}
			if job.Recurrence != nil {
				fmt.Fprintf(w, "Recurrence\t%s\n", *job.Recurrence)
			}
			return w.Flush()
		},
	}
}

func newJobsCreateCmd(a *App) *cobra.Command {
	var (
		name      string
		queueName string
		jobType   string
		priority  string
		queued    bool
	)

	cmd := &cobra.Command{
		Use:   "create <command>",
		Short: "Create a job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}

			job := &store.Job{
				Name:      name,
				QueueName: queueName,
				Type:      store.JobType(jobType),
				Command:   strings.Join(args, " "),
				Priority:  store.Priority(priority),
				Status:    store.StatusPending,
			}
			if queued {
				job.Status = store.StatusQueued
			}

			created, err := c.CreateJob(cmd.Context(), job)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created job %s (%s)\n", created.ID, created.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Job name")
	cmd.Flags().StringVar(&queueName, "queue", "default", "Target queue")
	cmd.Flags().StringVar(&jobType, "type", "command", "Job type (command, api_post, script)")
	cmd.Flags().StringVar(&priority, "priority", "normal", "Priority (highest, high, normal, low, lowest)")
	cmd.Flags().BoolVar(&queued, "queued", true, "Submit directly to the queue")

	return cmd
}

func newJobsQueueCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "queue <job-id>",
		Short: "Move a pending job to queued",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			job, err := c.UpdateJobStatus(cmd.Context(), id, store.StatusQueued)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s\n", job.ID, job.Status)
			return nil
		},
	}
}

func newJobsKillCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "kill <job-id>",
		Short: "Kill a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			job, err := c.KillJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s killed, now %s\n", job.ID, job.Status)
			return nil
		},
	}
}

func newJobsDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := c.DeleteJob(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s deleted\n", id)
			return nil
		},
	}
}

func newJobsLogCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "log <job-id>",
		Short: "Show a job's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			content, err := c.JobLog(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
}
