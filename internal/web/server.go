// Package web exposes the REST and WebSocket control surface of the
// job queue: job and scheduler CRUD, consumer supervision, and the
// real-time snapshot push channel.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/mpreston/jobq/internal/config"
	"github.com/mpreston/jobq/internal/events"
	"github.com/mpreston/jobq/internal/paths"
	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/supervisor"
	"github.com/mpreston/jobq/internal/taskqueue"
)

// Server hosts the HTTP API and the WebSocket hub.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	sup    *supervisor.Supervisor
	layout paths.Layout
	hub    *Hub

	// queues are the server-side handles to each queue's durable task
	// table, used to nudge consumers after a job is queued.
	queues map[string]*taskqueue.Queue

	httpServer *http.Server
	log        *logrus.Entry
}

// New wires the server. Mutations reach subscribers through the event
// bus: every store or supervisor change re-broadcasts the full snapshot.
func New(cfg *config.Config, st *store.Store, sup *supervisor.Supervisor, layout paths.Layout, bus *events.Bus, queues map[string]*taskqueue.Queue) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		sup:    sup,
		layout: layout,
		hub:    NewHub(),
		queues: queues,
		log:    logrus.WithField("component", "web"),
	}

	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.routes(),
	}

	if bus != nil {
		bus.Subscribe(func(events.Event) {
			s.broadcastSnapshot()
		})
	}

	return s
}

// routes builds the chi router for the full API surface.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateJob)
			r.Get("/", s.handleListJobs)

			// Deprecated surface kept for interface stability.
			r.Post("/reorder", s.handleNotImplemented)
			r.Get("/status", s.handleNotImplemented)

			r.Post("/push-jobs-to-websocket", s.handlePushJobs)
			r.Get("/consumer-status", s.handleConsumerStatus)
			r.Post("/start-consumer", s.handleStartConsumer)
			r.Post("/stop-consumer", s.handleStopConsumer)

			r.Get("/{id}", s.handleGetJob)
			r.Put("/{id}", s.handleUpdateJob)
			r.Delete("/{id}", s.handleDeleteJob)
			r.Put("/{id}/status", s.handleUpdateJobStatus)
			r.Post("/{id}/kill", s.handleKillJob)
			r.Get("/{id}/log", s.handleJobLog)
		})

		r.Route("/job-schedulers", func(r chi.Router) {
			r.Post("/", s.handleCreateScheduler)
			r.Get("/", s.handleListSchedulers)
			r.Get("/{id}", s.handleGetScheduler)
			r.Put("/{id}", s.handleUpdateScheduler)
			r.Delete("/{id}", s.handleDeleteScheduler)
			r.Post("/{id}/toggle", s.handleToggleScheduler)
		})
	})

	r.Get("/ws/job-queue", s.handleWebSocket)

	return r
}

// Start runs the hub loop and the HTTP listener. Blocks until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	go s.hub.Run()

	s.log.WithField("addr", s.cfg.ListenAddr).Info("http server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.httpServer.Shutdown(ctx)
}

// snapshot assembles the current jobs and consumer status.
func (s *Server) snapshot() (*Snapshot, error) {
	jobs, err := s.store.List(s.cfg.EnvName, "", false)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []*store.Job{}
	}
	return &Snapshot{
		Jobs:           jobs,
		ConsumerStatus: s.sup.StatusMap(),
	}, nil
}

// broadcastSnapshot pushes the current snapshot to all subscribers.
// Fire-and-forget: failures are logged, never propagated.
func (s *Server) broadcastSnapshot() {
	snap, err := s.snapshot()
	if err != nil {
		s.log.WithError(err).Error("failed to assemble snapshot")
		return
	}
	frame, err := json.Marshal(snap)
	if err != nil {
		s.log.WithError(err).Error("failed to marshal snapshot")
		return
	}
	s.hub.Broadcast(frame)
}

// nudgeQueue wakes a queue's consumer so it re-checks for queued work
// without waiting for the next periodic check.
func (s *Server) nudgeQueue(queue string) {
	q, ok := s.queues[queue]
	if !ok {
		return
	}
	if _, err := q.Enqueue(taskqueue.KindCheckQueued, ""); err != nil {
		s.log.WithField("queue", queue).WithError(err).Error("failed to nudge consumer")
	}
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a store error to its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *store.ValidationError
		transition *store.TransitionError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.As(err, &validation), errors.As(err, &transition):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// handleNotImplemented answers for the retired endpoints.
func (s *Server) handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "not implemented"})
}
