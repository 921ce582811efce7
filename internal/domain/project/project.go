package project

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/shared/id"
)

// ErrNotFound is returned when a project ID is unknown
var ErrNotFound = errors.New("project not found")

// Project is an open project
type Project struct {
	ID        id.ProjectID `json:"id"`
	Name      string       `json:"name"`
	BasePath  string       `json:"base_path"`
	Light     bool         `json:"light"`
	CreatedAt time.Time    `json:"created_at"`

	ctx    context.Context
	cancel context.CancelFunc
	seq    uint64

	mu       sync.Mutex
	disposed bool
	hooks    []func()
}

// New creates an open project
func New(name, basePath string, light bool) *Project {
	ctx, cancel := context.WithCancel(context.Background())
	if basePath != "" {
		basePath = filepath.Clean(basePath)
	}
	return &Project{
		ID:        id.NewProjectID(),
		Name:      name,
		BasePath:  basePath,
		Light:     light,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// IsLight reports whether telemetry is suppressed for p
func IsLight(p *Project) bool {
	return p == nil || p.Light
}

// Context is cancelled when the project is disposed
func (p *Project) Context() context.Context {
	return p.ctx
}

// IsDisposed reports whether Dispose has been called
func (p *Project) IsDisposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

// OnDispose registers fn to run when the project is disposed.
// If the project is already disposed fn runs immediately.
func (p *Project) OnDispose(fn func()) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		fn()
		return
	}
	p.hooks = append(p.hooks, fn)
	p.mu.Unlock()
}

// Dispose cancels the project context and runs dispose hooks in reverse
// registration order. Subsequent calls are no-ops.
func (p *Project) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	hooks := p.hooks
	p.hooks = nil
	p.mu.Unlock()

	p.cancel()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// Resolve joins a relative path onto the project base path
func (p *Project) Resolve(path string) string {
	if filepath.IsAbs(path) || p.BasePath == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(p.BasePath, path)
}

// Rel returns path relative to the base path, or path unchanged when it
// lies outside the project
func (p *Project) Rel(path string) string {
	if p.BasePath == "" {
		return path
	}
	rel, err := filepath.Rel(p.BasePath, p.Resolve(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
