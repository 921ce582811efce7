package replay

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/GriffinCanCode/fileprediction/internal/domain/navigation"
	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/domain/sampling"
	"github.com/GriffinCanCode/fileprediction/internal/domain/session"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/executor"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/GriffinCanCode/fileprediction/internal/workspace"
)

// Result summarizes a replay
type Result struct {
	Steps    int                     `json:"steps"`
	Sessions int                     `json:"sessions"`
	Events   map[types.EventKind]int `json:"events"`
}

// Runner replays scripts through a navigation service
type Runner struct {
	cfg     *config.Config
	sink    navigation.EventSink
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewRunner creates a runner writing records to sink
func NewRunner(cfg *config.Config, sink navigation.EventSink, metrics *monitoring.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, sink: sink, metrics: metrics, logger: logger}
}

// Run replays s. The project it opens is disposed before Run returns.
func (r *Runner) Run(ctx context.Context, s *Script) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	counter := &countingSink{next: r.sink, counts: make(map[types.EventKind]int)}
	factory, err := workspace.NewFactory(r.cfg, workspace.Deps{
		Executor: executor.Inline{Logger: r.logger, Metrics: r.metrics},
		Sink:     counter,
		Source:   sourceFor(s),
		Metrics:  r.metrics,
		Logger:   r.logger,
	})
	if err != nil {
		return nil, err
	}

	registry := project.NewRegistry()
	defer registry.DisposeAll()

	svc := navigation.NewService(factory, r.metrics, r.logger.Named("navigation"))
	p := registry.Open(s.Project.Name, s.Project.Path, s.Project.Light)

	r.logger.Info("replay started",
		zap.String("project", p.Name),
		zap.String("path", p.BasePath),
		zap.Int("steps", len(s.Events)),
	)

	res := &Result{}
	var lastSelected string
	for i, step := range s.Events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay interrupted at step %d: %w", i, err)
		}

		file := types.NewFile(p.Resolve(step.File))
		switch step.Action {
		case ActionSelect:
			prevPath := step.Prev
			if prevPath == "" {
				prevPath = lastSelected
			}
			prev := types.None[types.File]()
			if prevPath != "" {
				prev = types.Some(types.NewFile(p.Resolve(prevPath)))
			}
			svc.OnFileSelected(p, file, prev)
			lastSelected = step.File
		case ActionOpen:
			svc.OnFileOpened(p, file)
		case ActionClose:
			svc.OnFileClosed(p, file)
		}
		res.Steps++
	}

	if sess, ok := svc.CurrentSession(p); ok {
		res.Sessions = int(sess.ID-session.BaseID) + 1
	}
	res.Events = counter.snapshot()

	r.logger.Info("replay finished",
		zap.Int("steps", res.Steps),
		zap.Int("sessions", res.Sessions),
		zap.Any("events", res.Events),
	)
	return res, nil
}

func sourceFor(s *Script) sampling.Source {
	switch {
	case len(s.Draws) > 0:
		return sampling.NewFixedSource(s.Draws...)
	case s.Seed != nil:
		return sampling.NewSeededSource(*s.Seed)
	default:
		return sampling.NewUniformSource()
	}
}

type countingSink struct {
	next navigation.EventSink

	mu     sync.Mutex
	counts map[types.EventKind]int
}

func (c *countingSink) LogEvent(ctx context.Context, ev types.Event) error {
	if err := c.next.LogEvent(ctx, ev); err != nil {
		return err
	}
	c.mu.Lock()
	c.counts[ev.Kind]++
	c.mu.Unlock()
	return nil
}

func (c *countingSink) snapshot() map[types.EventKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[types.EventKind]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
