package project

import (
	"sort"
	"sync"

	"github.com/GriffinCanCode/fileprediction/internal/shared/id"
)

// Registry tracks open projects
type Registry struct {
	projects sync.Map
	mu       sync.Mutex // serializes open/dispose bookkeeping
	count    int
	seq      uint64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Open creates and registers a project
func (r *Registry) Open(name, basePath string, light bool) *Project {
	p := New(name, basePath, light)

	r.mu.Lock()
	r.seq++
	p.seq = r.seq
	r.projects.Store(p.ID, p)
	r.count++
	r.mu.Unlock()

	return p
}

// Get retrieves a project by ID
func (r *Registry) Get(pid id.ProjectID) (*Project, bool) {
	val, ok := r.projects.Load(pid)
	if !ok {
		return nil, false
	}
	return val.(*Project), true
}

// Dispose disposes and unregisters a project
func (r *Registry) Dispose(pid id.ProjectID) error {
	r.mu.Lock()
	val, ok := r.projects.LoadAndDelete(pid)
	if ok {
		r.count--
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	val.(*Project).Dispose()
	return nil
}

// List returns open projects in the order they were opened
func (r *Registry) List() []*Project {
	var out []*Project
	r.projects.Range(func(_, value interface{}) bool {
		out = append(out, value.(*Project))
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

// Count returns the number of open projects
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// DisposeAll disposes every open project
func (r *Registry) DisposeAll() {
	for _, p := range r.List() {
		_ = r.Dispose(p.ID)
	}
}
