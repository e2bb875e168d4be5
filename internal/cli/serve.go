package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mpreston/jobq/internal/config"
	"github.com/mpreston/jobq/internal/events"
	"github.com/mpreston/jobq/internal/paths"
	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/supervisor"
	"github.com/mpreston/jobq/internal/taskqueue"
	"github.com/mpreston/jobq/internal/web"
	"github.com/mpreston/jobq/internal/worker"
)

// newServeCmd creates the 'serve' command. By default the server starts
// in the background; --foreground runs it in blocking mode for process
// managers and debugging.
func newServeCmd(a *App) *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the jobq server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			layout := paths.New(cfg.DataDir)

			if supervisor.NewPIDFile(serverPIDPath(layout)).Alive() {
				fmt.Println("Server is already running")
				return nil
			}

			if foreground {
				return runServe(cmd.Context(), cfg, layout)
			}
			return startServeBackground(a, layout)
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run server in foreground (blocking)")

	return cmd
}

// serverPIDPath is the server's own pid file, next to the consumer ones.
func serverPIDPath(layout paths.Layout) string {
	return filepath.Join(layout.LogsDir(), "jobq.pid")
}

// serverLogPath is the background server's stdout/stderr log.
func serverLogPath(layout paths.Layout) string {
	return filepath.Join(layout.LogsDir(), "jobq.log")
}

// startServeBackground re-execs the current binary as a detached
// foreground server, with output appended to the server log.
func startServeBackground(a *App, layout paths.Layout) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	if err := os.MkdirAll(layout.LogsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logPath := serverLogPath(layout)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd := exec.Command(exe, "serve", "--foreground", "--config", a.configPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}
	pid := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to release process: %v\n", err)
	}
	logFile.Close()

	// Poll with backoff until the child's pid file shows up.
	delay := 100 * time.Millisecond
	for i := 0; i < 5; i++ {
		time.Sleep(delay)
		if supervisor.NewPIDFile(serverPIDPath(layout)).Alive() {
			fmt.Printf("Server started (PID: %d)\n", pid)
			fmt.Printf("Logs: %s\n", logPath)
			return nil
		}
		delay *= 2
	}

	return fmt.Errorf("server failed to start - check %s for details", logPath)
}

// runServe is the blocking server process: store, supervisor, HTTP API,
// on-boot consumers, and on-start schedulers.
func runServe(ctx context.Context, cfg *config.Config, layout paths.Layout) error {
	log := logrus.WithField("component", "serve")

	for _, dir := range []string{cfg.DataDir, layout.LogsDir(), layout.JobLogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	pidFile := supervisor.NewPIDFile(serverPIDPath(layout))
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer pidFile.Release()

	bus := events.NewBus()
	defer bus.Close()

	st, err := store.Open(layout.StoreDB(), cfg.EnvName, bus)
	if err != nil {
		return err
	}
	defer st.Close()

	queues := make(map[string]*taskqueue.Queue, len(cfg.Queues))
	for _, q := range cfg.Queues {
		queue, err := taskqueue.Open(layout.QueueDB(q.Name), q.Name)
		if err != nil {
			return err
		}
		defer queue.Close()
		queues[q.Name] = queue
	}

	sup := supervisor.New(cfg, layout, bus)
	srv := web.New(cfg, st, sup, layout, bus, queues)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := NewSignalHandler(cancel)
	handler.Start()
	defer handler.Stop()

	if cfg.StartConsumersOnBoot {
		if err := sup.StartAll(); err != nil {
			log.WithError(err).Error("failed to start consumers on boot")
		}
	}

	if err := worker.RunOnStartSchedulers(st, cfg.EnvName, log); err != nil {
		log.WithError(err).Error("failed to run on-start schedulers")
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
