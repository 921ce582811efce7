package navigation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/domain/sampling"
	"github.com/GriffinCanCode/fileprediction/internal/domain/session"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/executor"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"go.uber.org/zap"
)

// Navigation event kinds used for metrics
const (
	KindSelected = "selected"
	KindOpened   = "opened"
	KindClosed   = "closed"
)

// Probabilities are the sampling rates of the two checks
type Probabilities struct {
	OpenedFile float64
	Candidate  float64
}

// DefaultProbabilities returns 0.5 for opened-file records and 0.1 for predictions
func DefaultProbabilities() Probabilities {
	return Probabilities{
		OpenedFile: sampling.DefaultOpenedFileProbability,
		Candidate:  sampling.DefaultCandidateProbability,
	}
}

// Validate checks both probabilities
func (p Probabilities) Validate() error {
	if err := sampling.Validate(p.OpenedFile); err != nil {
		return fmt.Errorf("opened file: %w", err)
	}
	if err := sampling.Validate(p.Candidate); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	return nil
}

// Options carries the infrastructure a Coordinator runs on
type Options struct {
	Executor      executor.Executor
	Source        sampling.Source
	Probabilities *Probabilities
	Light         LightPredicate
	Tracer        *tracing.Tracer
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
}

// Coordinator handles the navigation events of one project
type Coordinator struct {
	project *project.Project
	holder  *session.Holder
	collab  Collaborators

	exec    executor.Executor
	probs   Probabilities
	light   LightPredicate
	tracer  *tracing.Tracer
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewCoordinator creates the coordinator of p
func NewCoordinator(p *project.Project, collab Collaborators, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Executor == nil {
		opts.Executor = executor.Inline{Logger: opts.Logger, Metrics: opts.Metrics}
	}
	if opts.Light == nil {
		opts.Light = project.IsLight
	}
	probs := DefaultProbabilities()
	if opts.Probabilities != nil {
		probs = *opts.Probabilities
	}

	return &Coordinator{
		project: p,
		holder:  session.NewHolder(opts.Source),
		collab:  collab,
		exec:    opts.Executor,
		probs:   probs,
		light:   opts.Light,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
		logger:  opts.Logger.With(zap.String("project_id", p.ID.String())),
	}
}

// Project returns the coordinated project
func (c *Coordinator) Project() *project.Project {
	return c.project
}

// CurrentSession returns the latest session, if any
func (c *Coordinator) CurrentSession() (session.Session, bool) {
	return c.holder.Current()
}

// OnFileSelected records a selection and schedules the background unit.
// It never blocks on collaborator work.
func (c *Coordinator) OnFileSelected(newFile types.File, prevFile types.Option[types.File]) {
	if c.light(c.project) {
		c.metrics.RecordLightSkip()
		return
	}
	c.metrics.RecordNavigation(KindSelected)

	c.collab.Context.OnFileSelected(newFile.URL())

	ctx := c.project.Context()
	err := c.exec.Submit(ctx, "file-selected", func(ctx context.Context) {
		c.processSelection(ctx, newFile, prevFile)
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		c.logger.Debug("project disposed, selection not processed", zap.String("file", newFile.Path))
	default:
		// sampling and prediction are skipped, the history still moves
		c.collab.History.OnFileSelected(newFile.URL())
		c.metrics.RecordHistoryFallback()
		c.logger.Warn("background unit rejected, history updated inline",
			zap.String("file", newFile.Path),
			zap.Error(err),
		)
	}
}

// OnFileOpened forwards an open event to the navigation context
func (c *Coordinator) OnFileOpened(file types.File) {
	if c.light(c.project) {
		c.metrics.RecordLightSkip()
		return
	}
	c.metrics.RecordNavigation(KindOpened)
	c.collab.Context.OnFileOpened(file.URL())
}

// OnFileClosed forwards a close event to the navigation context
func (c *Coordinator) OnFileClosed(file types.File) {
	if c.light(c.project) {
		c.metrics.RecordLightSkip()
		return
	}
	c.metrics.RecordNavigation(KindClosed)
	c.collab.Context.OnFileClosed(file.URL())
}

// Close clears the session slot
func (c *Coordinator) Close() {
	c.holder.Reset()
}

func (c *Coordinator) processSelection(ctx context.Context, newFile types.File, prevFile types.Option[types.File]) {
	var span *tracing.Span
	if c.tracer != nil {
		span, ctx = c.tracer.StartSpan(ctx, "navigation.file_selected")
		span.SetTag("project_id", c.project.ID.String())
		defer func() {
			if ctx.Err() != nil {
				span.SetOutcome(monitoring.UnitCancelled)
			} else {
				span.SetOutcome(monitoring.UnitCompleted)
			}
			span.Finish()
			c.tracer.Submit(span)
		}()
	}

	if c.cancelled(ctx, "previous session check") {
		return
	}
	if prev, ok := c.holder.Current(); ok {
		sampled := prev.ShouldLog(c.probs.OpenedFile)
		c.metrics.RecordSampling(monitoring.CheckOpenedFile, sampled)
		if sampled {
			c.logOpenedFile(ctx, prev.ID, newFile, prevFile)
		}
	}

	if c.cancelled(ctx, "new session") {
		return
	}
	_, cur := c.holder.NewSession()
	c.metrics.IncSessionsCreated()
	if span != nil {
		span.SetTag("session_id", strconv.FormatInt(cur.ID, 10))
	}

	sampled := cur.ShouldLog(c.probs.Candidate)
	c.metrics.RecordSampling(monitoring.CheckCandidate, sampled)
	if sampled {
		if c.cancelled(ctx, "prediction") {
			return
		}
		c.collab.Predictor.PredictNextFile(ctx, c.project, cur.ID, newFile)
		c.metrics.IncPredictions()
	}

	if c.cancelled(ctx, "history update") {
		return
	}
	c.collab.History.OnFileSelected(newFile.URL())
}

func (c *Coordinator) cancelled(ctx context.Context, step string) bool {
	if ctx.Err() == nil {
		return false
	}
	c.logger.Debug("background unit cancelled", zap.String("step", step))
	return true
}

// logOpenedFile builds and logs the record of the file opened in session
// sessionID. A collaborator failure drops this record only.
func (c *Coordinator) logOpenedFile(ctx context.Context, sessionID int64, newFile types.File, prevFile types.Option[types.File]) {
	start := time.Now()
	var refsDuration time.Duration
	outcome := monitoring.LogLogged

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("collaborator panicked: %v", r)
			}
		}()

		refs, err := c.collab.References.CalculateExternalReferences(ctx, c.project, prevFile)
		if err != nil {
			return fmt.Errorf("failed to calculate references: %w", err)
		}
		refsDuration = refs.Duration

		features, err := c.collab.Features.CalculateFileFeatures(ctx, c.project, newFile, refs.Value, prevFile)
		if err != nil {
			return fmt.Errorf("failed to calculate features: %w", err)
		}

		ev := types.Event{
			Kind:           types.EventFileOpened,
			ProjectID:      c.project.ID.String(),
			SessionID:      sessionID,
			Features:       features,
			Path:           newFile.Path,
			PrevPath:       types.OptionalPath(prevFile),
			DurationMs:     time.Since(start).Milliseconds(),
			RefsDurationMs: refs.Duration.Milliseconds(),
		}
		switch err := c.collab.Sink.LogEvent(ctx, ev); {
		case err == nil:
		case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
			outcome = monitoring.LogBreakerOpen
			c.logger.Debug("event log unavailable, opened file event skipped",
				zap.Int64("session_id", sessionID),
				zap.Error(err),
			)
		default:
			outcome = monitoring.LogSinkFailed
			c.logger.Error("failed to write opened file event",
				zap.Int64("session_id", sessionID),
				zap.Error(err),
			)
		}
		return nil
	}()

	switch {
	case err == nil:
	case ctx.Err() != nil:
		c.logger.Debug("opened file logging cancelled", zap.Int64("session_id", sessionID))
		return
	default:
		outcome = monitoring.LogFailed
		c.logger.Error("failed to log opened file",
			zap.Int64("session_id", sessionID),
			zap.String("file", newFile.Path),
			zap.Error(err),
		)
	}

	c.metrics.RecordOpenedFileLog(outcome, time.Since(start), refsDuration)
}
