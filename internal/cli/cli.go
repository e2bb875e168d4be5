// Package cli wires the jobq command tree: the server, the consumer
// child process, job and scheduler management, and the live watch TUI.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mpreston/jobq/internal/config"
)

// App represents the CLI application with all wired dependencies.
type App struct {
	rootCmd *cobra.Command

	// Global flags
	configPath string
	verbose    bool

	// Version information
	version string
	commit  string
	date    string
}

// New creates a new CLI application.
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version strings for the version command.
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
}

// setupRootCmd configures the root Cobra command.
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "jobq",
		Short: "Persistent multi-queue background job runner",
		Long: `jobq runs background jobs (shell commands, HTTP posts, named
scripts) on prioritized, durable queues with out-of-process consumers
and a real-time web push channel.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if a.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	a.rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "jobq.yaml",
		"Path to config file")
	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose output")

	a.rootCmd.AddCommand(newServeCmd(a))
	a.rootCmd.AddCommand(newConsumerCmd(a))
	a.rootCmd.AddCommand(newJobsCmd(a))
	a.rootCmd.AddCommand(newSchedulersCmd(a))
	a.rootCmd.AddCommand(newConsumersCmd(a))
	a.rootCmd.AddCommand(newWatchCmd(a))
	a.rootCmd.AddCommand(newVersionCmd(a))
}

// loadConfig reads the config file named by the global flag and applies
// the configured log level.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if !a.verbose {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logrus.SetLevel(level)
		}
	}
	return cfg, nil
}
