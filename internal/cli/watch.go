package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mpreston/jobq/internal/cli/tui"
)

// newWatchCmd creates the 'watch' command: a live view of the queue
// fed by the server's WebSocket push channel.
func newWatchCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the job queue in real time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("watch requires a terminal")
			}

			c, err := a.apiClient()
			if err != nil {
				return err
			}

			watcher, err := c.Watch(cmd.Context())
			if err != nil {
				return err
			}
			defer watcher.Close()

			p := tea.NewProgram(tui.NewModel(), tea.WithAltScreen())

			go func() {
				for {
					snap, err := watcher.Next()
					if err != nil {
						p.Send(tui.StreamErrMsg{Err: err})
						return
					}
					p.Send(tui.SnapshotMsg{Snapshot: snap})
				}
			}()

			_, err = p.Run()
			return err
		},
	}
}
