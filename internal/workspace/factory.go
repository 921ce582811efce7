// Package workspace assembles the per-project collaborators and builds the
// navigation coordinator of each project.
package workspace

import (
	"fmt"
	"sync"

	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/GriffinCanCode/fileprediction/internal/domain/features"
	"github.com/GriffinCanCode/fileprediction/internal/domain/history"
	"github.com/GriffinCanCode/fileprediction/internal/domain/navcontext"
	"github.com/GriffinCanCode/fileprediction/internal/domain/navigation"
	"github.com/GriffinCanCode/fileprediction/internal/domain/predictor"
	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/domain/references"
	"github.com/GriffinCanCode/fileprediction/internal/domain/sampling"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/executor"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fileprediction/internal/shared/id"
	"go.uber.org/zap"
)

// Workspace is the state kept for one project
type Workspace struct {
	Project   *project.Project
	Context   *navcontext.Tracker
	History   *history.History
	Predictor *predictor.Predictor
}

// Deps are the shared services every project uses
type Deps struct {
	Executor executor.Executor
	Sink     navigation.EventSink
	Source   sampling.Source
	Tracer   *tracing.Tracer
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// Factory builds coordinators wired to the default collaborators
type Factory struct {
	cfg   *config.Config
	deps  Deps
	refs  *references.Calculator
	probs navigation.Probabilities

	mu         sync.RWMutex
	workspaces map[id.ProjectID]*Workspace
}

// NewFactory validates cfg and creates a factory
func NewFactory(cfg *config.Config, deps Deps) (*Factory, error) {
	refs, err := references.New(references.Config{
		Exclude:     cfg.Prediction.ReferencesExclude,
		MaxFileSize: cfg.Prediction.ReferencesMaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reference calculator: %w", err)
	}

	probs := navigation.Probabilities{
		OpenedFile: cfg.Sampling.OpenedFileProbability,
		Candidate:  cfg.Sampling.CandidateProbability,
	}
	if err := probs.Validate(); err != nil {
		return nil, err
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Factory{
		cfg:        cfg,
		deps:       deps,
		refs:       refs,
		probs:      probs,
		workspaces: make(map[id.ProjectID]*Workspace),
	}, nil
}

// Build implements navigation.Factory
func (f *Factory) Build(p *project.Project) (*navigation.Coordinator, error) {
	if p.BasePath == "" && !p.Light {
		return nil, fmt.Errorf("project %s: %w", p.ID, references.ErrNoBasePath)
	}

	logger := f.deps.Logger.With(zap.String("project_id", p.ID.String()))

	tracker := navcontext.NewTracker(navcontext.DefaultClosedLimit)
	hist := history.New(f.cfg.Prediction.HistoryLimit)
	extractor := features.NewExtractor(tracker, hist)

	pred := predictor.New(predictor.Config{
		RefsLimit:  f.cfg.Prediction.RefsLimit,
		Candidates: f.cfg.Prediction.Candidates,
		LogTop:     f.cfg.Prediction.LogTop,
	}, predictor.Deps{
		References: f.refs,
		Features:   extractor,
		History:    hist,
		Open:       tracker,
		Sink:       f.deps.Sink,
		Logger:     logger.Named("predictor"),
	})

	probs := f.probs
	coord := navigation.NewCoordinator(p, navigation.Collaborators{
		Context:    tracker,
		References: f.refs,
		Features:   extractor,
		Predictor:  pred,
		History:    hist,
		Sink:       f.deps.Sink,
	}, navigation.Options{
		Executor:      f.deps.Executor,
		Source:        f.deps.Source,
		Probabilities: &probs,
		Tracer:        f.deps.Tracer,
		Metrics:       f.deps.Metrics,
		Logger:        logger.Named("navigation"),
	})

	ws := &Workspace{Project: p, Context: tracker, History: hist, Predictor: pred}
	f.mu.Lock()
	f.workspaces[p.ID] = ws
	f.mu.Unlock()
	p.OnDispose(func() {
		f.mu.Lock()
		delete(f.workspaces, p.ID)
		f.mu.Unlock()
	})

	logger.Debug("workspace created", zap.String("base_path", p.BasePath))
	return coord, nil
}

// Get returns the workspace of a project built by this factory
func (f *Factory) Get(pid id.ProjectID) (*Workspace, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ws, ok := f.workspaces[pid]
	return ws, ok
}
