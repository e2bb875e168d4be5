package scripts

import (
	"fmt"
	"sync"
)

// Output is the structured result of a script run. It is appended to the
// job's log file.
type Output struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Script is an in-process executable unit for type=script jobs.
// ValidateInput runs first; returning false fails the job before Run is
// attempted. The job's id is injected into meta under "job_id".
type Script interface {
	ValidateInput(meta map[string]interface{}) bool
	Run(meta map[string]interface{}) (Output, error)
}

// Registry maps script names to implementations. The embedding
// application populates it at startup; after Freeze it rejects further
// registration, so the worker runtime sees an immutable view.
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]Script
	frozen  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]Script)}
}

// Register adds a script under name. Registering after Freeze or
// reusing a name panics: both are wiring mistakes, not runtime
// conditions.
func (r *Registry) Register(name string, script Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic(fmt.Sprintf("scripts: Register(%q) after Freeze", name))
	}
	if _, exists := r.scripts[name]; exists {
		panic(fmt.Sprintf("scripts: duplicate registration of %q", name))
	}
	r.scripts[name] = script
}

// Freeze makes the registry immutable.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get resolves a script by name.
func (r *Registry) Get(name string) (Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	script, ok := r.scripts[name]
	if !ok {
		return nil, fmt.Errorf("unknown script: %q", name)
	}
	return script, nil
}

// Names returns the registered script names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	return names
}
