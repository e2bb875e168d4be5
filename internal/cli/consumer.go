package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mpreston/jobq/internal/client"
	"github.com/mpreston/jobq/internal/config"
	"github.com/mpreston/jobq/internal/events"
	"github.com/mpreston/jobq/internal/paths"
	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/taskqueue"
	"github.com/mpreston/jobq/internal/worker"
)

// newConsumerCmd creates the 'consumer' command: the queue worker child
// process the supervisor spawns. Hidden because it is not meant to be
// run by hand, though doing so works for debugging.
func newConsumerCmd(a *App) *cobra.Command {
	var queueName string

	cmd := &cobra.Command{
		Use:    "consumer",
		Short:  "Run the consumer for one queue",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.HasQueue(queueName) {
				return fmt.Errorf("unknown queue: %q", queueName)
			}

			return runConsumer(cmd.Context(), cfg, queueName)
		},
	}

	cmd.Flags().StringVar(&queueName, "queue", "default", "Queue to consume")

	return cmd
}

// runConsumer opens the consumer's own store and task queue connections
// and drives the worker runtime until interrupted. Every store mutation
// made from this process is mirrored to web subscribers through a
// fire-and-forget push to the server.
func runConsumer(ctx context.Context, cfg *config.Config, queueName string) error {
	layout := paths.New(cfg.DataDir)
	log := logrus.WithField("queue", queueName)

	bus := events.NewBus()
	defer bus.Close()

	api := client.New(cfg.BaseURL)
	bus.Subscribe(func(events.Event) {
		go func() {
			pushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := api.PushJobs(pushCtx); err != nil {
				log.WithError(err).Debug("snapshot push failed")
			}
		}()
	})

	st, err := store.Open(layout.StoreDB(), cfg.EnvName, bus)
	if err != nil {
		return err
	}
	defer st.Close()

	queue, err := taskqueue.Open(layout.QueueDB(queueName), queueName)
	if err != nil {
		return err
	}
	defer queue.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := NewSignalHandler(cancel)
	handler.Start()
	defer handler.Stop()

	runtime := worker.New(worker.Config{
		Store:         st,
		Queue:         queue,
		Layout:        layout,
		EnvName:       cfg.EnvName,
		SchedulerTick: queueName == cfg.Queues[0].Name,
	})

	err = runtime.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
