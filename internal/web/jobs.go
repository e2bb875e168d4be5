package web

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/supervisor"
)

// handleCreateJob inserts a new job. The body is a partial job; model
// defaults fill the rest. A job arriving already queued wakes its
// queue's consumer.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	job := store.NewJob(s.cfg.EnvName)
	if err := json.NewDecoder(r.Body).Decode(job); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if job.EnvName == "" {
		job.EnvName = s.cfg.EnvName
	}

	if err := s.store.Create(job); err != nil {
		writeError(w, err)
		return
	}

	if job.Status == store.StatusQueued && !job.IsTemplate() {
		s.nudgeQueue(job.QueueName)
	}

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs returns the jobs for the server's env. Query params:
// queue_name narrows to one queue, include_archived adds archived rows.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	jobs, err := s.store.List(s.cfg.EnvName, r.URL.Query().Get("queue_name"), includeArchived)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*store.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	var patch store.JobUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	job, err := s.store.Update(id, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	if patch.Status != nil && *patch.Status == store.StatusQueued && !job.IsTemplate() {
		s.nudgeQueue(job.QueueName)
	}

	writeJSON(w, http.StatusOK, job)
}

// handleUpdateJobStatus is the dedicated status transition endpoint.
func (s *Server) handleUpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	job, err := s.store.UpdateStatus(id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Status == store.StatusQueued && !job.IsTemplate() {
		s.nudgeQueue(job.QueueName)
	}

	writeJSON(w, http.StatusOK, job)
}

// handleKillJob terminates a job's process and returns it to pending.
func (s *Server) handleKillJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := supervisor.KillJob(s.store, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleJobLog serves the plain-text log of the job's first attempt.
func (s *Server) handleJobLog(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.Get(id); err != nil {
		writeError(w, err)
		return
	}

	content, err := os.ReadFile(s.layout.JobLog(id.String(), 0))
	if os.IsNotExist(err) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no log for job"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(content)
}

// handlePushJobs re-broadcasts the current snapshot. Consumers call it
// after every mutation they make from their own process.
func (s *Server) handlePushJobs(w http.ResponseWriter, _ *http.Request) {
	s.broadcastSnapshot()
	w.WriteHeader(http.StatusNoContent)
}

// handleConsumerStatus reports per-queue consumer liveness.
func (s *Server) handleConsumerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sup.StatusMap())
}

// handleStartConsumer starts one queue's consumer, or all of them when
// no queue_name is given. Per-queue failures land in the result map.
func (s *Server) handleStartConsumer(w http.ResponseWriter, r *http.Request) {
	s.consumerAction(w, r, s.sup.Start)
}

// handleStopConsumer is the stop counterpart of handleStartConsumer.
func (s *Server) handleStopConsumer(w http.ResponseWriter, r *http.Request) {
	s.consumerAction(w, r, s.sup.Stop)
}

func (s *Server) consumerAction(w http.ResponseWriter, r *http.Request, action func(string) error) {
	var req consumerRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	var targets []string
	if req.QueueName != "" {
		if !s.cfg.HasQueue(req.QueueName) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown queue: " + req.QueueName})
			return
		}
		targets = []string{req.QueueName}
	} else {
		targets = s.cfg.QueueNames()
	}

	result := consumerResult{Errors: map[string]string{}}
	for _, queue := range targets {
		if err := action(queue); err != nil {
			result.Errors[queue] = err.Error()
		}
	}
	result.Status = s.sup.StatusMap()
	if len(result.Errors) == 0 {
		result.Errors = nil
	}

	writeJSON(w, http.StatusOK, result)
}

// jobID parses the id path parameter, answering 400 on garbage.
func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
