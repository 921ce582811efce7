package navigation

import (
	"sync"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/domain/session"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/shared/id"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"go.uber.org/zap"
)

// Factory builds the coordinator of a project
type Factory interface {
	Build(p *project.Project) (*Coordinator, error)
}

// FactoryFunc adapts a function to Factory
type FactoryFunc func(p *project.Project) (*Coordinator, error)

// Build implements Factory
func (f FactoryFunc) Build(p *project.Project) (*Coordinator, error) {
	return f(p)
}

// Service routes navigation events to per-project coordinators
type Service struct {
	factory Factory
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	coords map[id.ProjectID]*Coordinator
}

// NewService creates a service building coordinators with factory
func NewService(factory Factory, metrics *monitoring.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		factory: factory,
		metrics: metrics,
		logger:  logger,
		coords:  make(map[id.ProjectID]*Coordinator),
	}
}

// OnFileSelected handles a selection in p
func (s *Service) OnFileSelected(p *project.Project, newFile types.File, prevFile types.Option[types.File]) {
	if c := s.coordinator(p); c != nil {
		c.OnFileSelected(newFile, prevFile)
	}
}

// OnFileOpened handles an open event in p
func (s *Service) OnFileOpened(p *project.Project, file types.File) {
	if c := s.coordinator(p); c != nil {
		c.OnFileOpened(file)
	}
}

// OnFileClosed handles a close event in p
func (s *Service) OnFileClosed(p *project.Project, file types.File) {
	if c := s.coordinator(p); c != nil {
		c.OnFileClosed(file)
	}
}

// CurrentSession returns the latest session of p without creating a coordinator
func (s *Service) CurrentSession(p *project.Project) (session.Session, bool) {
	s.mu.Lock()
	c, ok := s.coords[p.ID]
	s.mu.Unlock()
	if !ok {
		return session.Session{}, false
	}
	return c.CurrentSession()
}

// Active returns the number of live coordinators
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.coords)
}

func (s *Service) coordinator(p *project.Project) *Coordinator {
	if p == nil || p.IsDisposed() {
		return nil
	}

	s.mu.Lock()
	if c, ok := s.coords[p.ID]; ok {
		s.mu.Unlock()
		return c
	}

	c, err := s.factory.Build(p)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to build coordinator", zap.String("project_id", p.ID.String()), zap.Error(err))
		return nil
	}
	s.coords[p.ID] = c
	active := len(s.coords)
	s.mu.Unlock()

	s.metrics.SetProjectsActive(active)
	p.OnDispose(func() { s.drop(p.ID) })
	return c
}

func (s *Service) drop(pid id.ProjectID) {
	s.mu.Lock()
	c, ok := s.coords[pid]
	delete(s.coords, pid)
	active := len(s.coords)
	s.mu.Unlock()

	if ok {
		c.Close()
		s.metrics.SetProjectsActive(active)
		s.logger.Debug("coordinator dropped", zap.String("project_id", pid.String()))
	}
}
