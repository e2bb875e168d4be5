package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// SignalHandler manages graceful shutdown on interrupt.
type SignalHandler struct {
	signals    chan os.Signal
	shutdown   chan struct{}
	cancel     context.CancelFunc
	onShutdown []func()
	mu         sync.Mutex
	stopOnce   sync.Once
}

// NewSignalHandler creates a signal handler with the given context cancel.
func NewSignalHandler(cancel context.CancelFunc) *SignalHandler {
	return &SignalHandler{
		signals:  make(chan os.Signal, 1),
		shutdown: make(chan struct{}),
		cancel:   cancel,
	}
}

// Start begins listening for SIGINT and SIGTERM.
func (h *SignalHandler) Start() {
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig, ok := <-h.signals
		if !ok {
			return
		}
		logrus.WithField("signal", sig).Info("shutting down")

		if h.cancel != nil {
			h.cancel()
		}

		h.mu.Lock()
		callbacks := make([]func(), len(h.onShutdown))
		copy(callbacks, h.onShutdown)
		h.mu.Unlock()

		for _, fn := range callbacks {
			fn()
		}

		close(h.shutdown)
	}()
}

// OnShutdown registers a callback to run on shutdown, in registration order.
func (h *SignalHandler) OnShutdown(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onShutdown = append(h.onShutdown, fn)
}

// Wait blocks until shutdown is triggered.
func (h *SignalHandler) Wait() {
	<-h.shutdown
}

// Stop detaches from OS signal handling.
func (h *SignalHandler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.signals)
		close(h.signals)
	})
}
