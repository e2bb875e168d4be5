package web

import (
	"encoding/json"
	"net/http"

	"github.com/mpreston/jobq/internal/store"
)

// handleCreateScheduler inserts a new job scheduler.
func (s *Server) handleCreateScheduler(w http.ResponseWriter, r *http.Request) {
	sched := store.NewJobScheduler(s.cfg.EnvName)
	if err := json.NewDecoder(r.Body).Decode(sched); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if sched.EnvName == "" {
		sched.EnvName = s.cfg.EnvName
	}

	if err := s.store.CreateScheduler(sched); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

func (s *Server) handleListSchedulers(w http.ResponseWriter, _ *http.Request) {
	schedulers, err := s.store.ListSchedulers(s.cfg.EnvName)
	if err != nil {
		writeError(w, err)
		return
	}
	if schedulers == nil {
		schedulers = []*store.JobScheduler{}
	}
	writeJSON(w, http.StatusOK, schedulers)
}

func (s *Server) handleGetScheduler(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	sched, err := s.store.GetScheduler(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleUpdateScheduler(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	var patch store.SchedulerUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	sched, err := s.store.UpdateScheduler(id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// handleToggleScheduler flips the enabled flag.
func (s *Server) handleToggleScheduler(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	sched, err := s.store.ToggleScheduler(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleDeleteScheduler(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteScheduler(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
