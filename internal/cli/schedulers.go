package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mpreston/jobq/internal/store"
)

// newSchedulersCmd creates the schedulers command group.
func newSchedulersCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedulers",
		Short: "Manage job schedulers",
	}

	cmd.AddCommand(newSchedulersListCmd(a))
	cmd.AddCommand(newSchedulersCreateCmd(a))
	cmd.AddCommand(newSchedulersToggleCmd(a))
	cmd.AddCommand(newSchedulersDeleteCmd(a))

	return cmd
}

func newSchedulersListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all schedulers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			schedulers, err := c.ListSchedulers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTRIGGER\tEVERY\tENABLED")
			for _, sched := range schedulers {
				every := "-"
				if sched.RepeatEverySeconds != nil {
					every = fmt.Sprintf("%ds", *sched.RepeatEverySeconds)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
					sched.ID, sched.Name, sched.TriggerType, every, sched.Enabled)
			}
			return w.Flush()
		},
	}
}

func newSchedulersCreateCmd(a *App) *cobra.Command {
	var (
		name        string
		description string
		trigger     string
		everySecs   int
		template    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}

			var tmpl map[string]interface{}
			if template != "" {
				if err := json.Unmarshal([]byte(template), &tmpl); err != nil {
					return fmt.Errorf("invalid job template: %w", err)
				}
			}

			sched := &store.JobScheduler{
				Name:        name,
				Description: description,
				TriggerType: store.TriggerType(trigger),
				JobTemplate: tmpl,
				Enabled:     true,
			}
			if trigger == string(store.TriggerRepeat) {
				sched.RepeatEverySeconds = &everySecs
			}

			created, err := c.CreateScheduler(cmd.Context(), sched)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created scheduler %s\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Scheduler name")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&trigger, "trigger", "on_start", "Trigger type (on_start, repeat)")
	cmd.Flags().IntVar(&everySecs, "every", 3600, "Repeat interval in seconds")
	cmd.Flags().StringVar(&template, "template", "", "Job template as JSON")

	return cmd
}

func newSchedulersToggleCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <scheduler-id>",
		Short: "Enable or disable a scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid scheduler id: %w", err)
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			sched, err := c.ToggleScheduler(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduler %s enabled=%t\n", sched.ID, sched.Enabled)
			return nil
		},
	}
}

func newSchedulersDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scheduler-id>",
		Short: "Delete a scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid scheduler id: %w", err)
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := c.DeleteScheduler(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduler %s deleted\n", id)
			return nil
		},
	}
}
