package navigation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/domain/sampling"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/executor"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/GriffinCanCode/fileprediction/tests/helpers/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	fileA = types.NewFile("/work/src/a.go")
	fileB = types.NewFile("/work/src/b.go")
	fileC = types.NewFile("/work/src/c.go")
)

type fixture struct {
	project *project.Project
	mocks   *testutil.Collaborators
	metrics *monitoring.Metrics
	logs    *observer.ObservedLogs
	coord   *Coordinator
}

func newFixture(t *testing.T, light bool, draws ...float64) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	p := project.New("demo", "/work", light)
	mocks := testutil.NewCollaborators()

	coord := NewCoordinator(p, collaborators(mocks), Options{
		Executor: executor.Inline{Metrics: metrics},
		Source:   sampling.NewFixedSource(draws...),
		Metrics:  metrics,
		Logger:   zap.New(core),
	})
	return &fixture{project: p, mocks: mocks, metrics: metrics, logs: logs, coord: coord}
}

func collaborators(m *testutil.Collaborators) Collaborators {
	return Collaborators{
		Context:    m.Context,
		References: m.References,
		Features:   m.Features,
		Predictor:  m.Predictor,
		History:    m.History,
		Sink:       m.Sink,
	}
}

func expectSelection(m *testutil.Collaborators, f types.File) {
	m.Context.On("OnFileSelected", f.URL()).Once()
	m.History.On("OnFileSelected", f.URL()).Once()
}

func expectRecord(m *testutil.Collaborators, p *project.Project) {
	m.References.On("CalculateExternalReferences", mock.Anything, p, mock.Anything).
		Return(types.ReferencesResult{Value: types.NewReferences(fileB.URL()), Duration: 3 * time.Millisecond}, nil).Once()
	m.Features.On("CalculateFileFeatures", mock.Anything, p, mock.Anything, mock.Anything, mock.Anything).
		Return(types.Features{"in_ref": true}, nil).Once()
}

func TestPreviousSessionLoggedWhenDrawBelowHalf(t *testing.T) {
	fx := newFixture(t, false, 0.3, 0.7)
	m := fx.mocks

	expectSelection(m, fileA)
	expectSelection(m, fileB)
	expectRecord(m, fx.project)
	m.Sink.On("LogEvent", mock.Anything, mock.MatchedBy(func(ev types.Event) bool {
		prev, ok := ev.PrevPath.Get()
		return ev.Kind == types.EventFileOpened &&
			ev.SessionID == 0 &&
			ev.Path == fileB.Path &&
			ok && prev == fileA.Path &&
			ev.RefsDurationMs == 3 &&
			ev.ProjectID == fx.project.ID.String()
	})).Return(nil).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileSelected(fileB, types.Some(fileA))

	m.AssertExpectations(t)
	m.Predictor.AssertNotCalled(t, "PredictNextFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	cur, ok := fx.coord.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, int64(1), cur.ID)
	assert.Equal(t, 0.7, cur.Draw)

	assert.Equal(t, 1.0, promtest.ToFloat64(fx.metrics.OpenedFileLogs.WithLabelValues(monitoring.LogLogged)))
	assert.Equal(t, 2.0, promtest.ToFloat64(fx.metrics.SessionsCreated))
}

func TestPreviousSessionSkippedWhenDrawAboveHalf(t *testing.T) {
	fx := newFixture(t, false, 0.7)
	m := fx.mocks

	expectSelection(m, fileA)
	expectSelection(m, fileB)

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileSelected(fileB, types.Some(fileA))

	m.AssertExpectations(t)
	m.References.AssertNotCalled(t, "CalculateExternalReferences", mock.Anything, mock.Anything, mock.Anything)
	m.Sink.AssertNotCalled(t, "LogEvent", mock.Anything, mock.Anything)

	assert.Equal(t, 1.0, promtest.ToFloat64(fx.metrics.SamplingDecisions.WithLabelValues(monitoring.CheckOpenedFile, "skipped")))
}

func TestFirstSelectionHasNoPreviousSession(t *testing.T) {
	fx := newFixture(t, false, 0.0)
	m := fx.mocks

	expectSelection(m, fileA)
	m.Predictor.On("PredictNextFile", mock.Anything, fx.project, int64(0), fileA).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())

	m.AssertExpectations(t)
	m.References.AssertNotCalled(t, "CalculateExternalReferences", mock.Anything, mock.Anything, mock.Anything)
}

func TestPredictionSampling(t *testing.T) {
	tests := []struct {
		name    string
		draw    float64
		predict bool
	}{
		{name: "below threshold", draw: 0.05, predict: true},
		{name: "above threshold", draw: 0.15, predict: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, false, tt.draw)
			m := fx.mocks
			expectSelection(m, fileA)
			if tt.predict {
				m.Predictor.On("PredictNextFile", mock.Anything, fx.project, int64(0), fileA).Once()
			}

			fx.coord.OnFileSelected(fileA, types.None[types.File]())

			m.AssertExpectations(t)
			if !tt.predict {
				m.Predictor.AssertNotCalled(t, "PredictNextFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestPredictionUsesNewSessionNotPrevious(t *testing.T) {
	// previous session logs (0.3 < 0.5) but does not predict; new one predicts
	fx := newFixture(t, false, 0.3, 0.05)
	m := fx.mocks

	expectSelection(m, fileA)
	expectSelection(m, fileB)
	expectRecord(m, fx.project)
	m.Sink.On("LogEvent", mock.Anything, mock.Anything).Return(nil).Once()
	m.Predictor.On("PredictNextFile", mock.Anything, fx.project, int64(1), fileB).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileSelected(fileB, types.Some(fileA))

	m.AssertExpectations(t)
	assert.Equal(t, 1.0, promtest.ToFloat64(fx.metrics.Predictions))
}

func TestLightProjectIsNoOp(t *testing.T) {
	fx := newFixture(t, true, 0.0)

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileOpened(fileA)
	fx.coord.OnFileClosed(fileA)

	fx.mocks.AssertNoCalls(t)
	_, ok := fx.coord.CurrentSession()
	assert.False(t, ok)
	assert.Equal(t, 3.0, promtest.ToFloat64(fx.metrics.LightSkipped))
}

func TestCustomLightPredicate(t *testing.T) {
	mocks := testutil.NewCollaborators()
	p := project.New("demo", "/work", false)
	coord := NewCoordinator(p, collaborators(mocks), Options{
		Light: func(*project.Project) bool { return true },
	})

	coord.OnFileSelected(fileA, types.None[types.File]())
	mocks.AssertNoCalls(t)
}

func TestOpenedAndClosedForwardToContext(t *testing.T) {
	fx := newFixture(t, false)
	m := fx.mocks
	m.Context.On("OnFileOpened", fileA.URL()).Once()
	m.Context.On("OnFileClosed", fileA.URL()).Once()

	fx.coord.OnFileOpened(fileA)
	fx.coord.OnFileClosed(fileA)

	m.AssertExpectations(t)
	_, ok := fx.coord.CurrentSession()
	assert.False(t, ok)
}

func TestReferenceFailureSkipsEventAndRecovers(t *testing.T) {
	fx := newFixture(t, false, 0.3)
	m := fx.mocks

	expectSelection(m, fileA)
	expectSelection(m, fileB)
	expectSelection(m, fileC)
	m.References.On("CalculateExternalReferences", mock.Anything, fx.project, mock.Anything).
		Return(types.ReferencesResult{}, errors.New("index unavailable")).Once()
	expectRecord(m, fx.project)
	m.Sink.On("LogEvent", mock.Anything, mock.MatchedBy(func(ev types.Event) bool {
		return ev.SessionID == 1 && ev.Path == fileC.Path
	})).Return(nil).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileSelected(fileB, types.Some(fileA))

	cur, ok := fx.coord.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, int64(1), cur.ID)

	fx.coord.OnFileSelected(fileC, types.Some(fileB))

	m.AssertExpectations(t)
	m.Sink.AssertNumberOfCalls(t, "LogEvent", 1)
	assert.Equal(t, 1, fx.logs.FilterMessage("failed to log opened file").Len())
	assert.Equal(t, 1.0, promtest.ToFloat64(fx.metrics.OpenedFileLogs.WithLabelValues(monitoring.LogFailed)))
}

func TestFeaturePanicIsContained(t *testing.T) {
	fx := newFixture(t, false, 0.3)
	m := fx.mocks

	expectSelection(m, fileA)
	expectSelection(m, fileB)
	m.References.On("CalculateExternalReferences", mock.Anything, fx.project, mock.Anything).
		Return(types.ReferencesResult{Value: types.NewReferences()}, nil).Once()
	m.Features.On("CalculateFileFeatures", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("feature bug") }).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	assert.NotPanics(t, func() {
		fx.coord.OnFileSelected(fileB, types.Some(fileA))
	})

	m.AssertExpectations(t)
	m.Sink.AssertNotCalled(t, "LogEvent", mock.Anything, mock.Anything)
}

func TestSinkFailureIsCounted(t *testing.T) {
	fx := newFixture(t, false, 0.3)
	m := fx.mocks

	expectSelection(m, fileA)
	expectSelection(m, fileB)
	expectRecord(m, fx.project)
	m.Sink.On("LogEvent", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileSelected(fileB, types.Some(fileA))

	m.AssertExpectations(t)
	assert.Equal(t, 1.0, promtest.ToFloat64(fx.metrics.OpenedFileLogs.WithLabelValues(monitoring.LogSinkFailed)))
	assert.Equal(t, 1, fx.logs.FilterMessage("failed to write opened file event").Len())
}

func TestHealthyEventLoggedAfterRepeatedFailures(t *testing.T) {
	fx := newFixture(t, false, 0.3)
	m := fx.mocks
	const failures = 5

	files := []types.File{fileA}
	for i := 0; i <= failures; i++ {
		files = append(files, types.NewFile(fmt.Sprintf("/work/src/f%d.go", i)))
	}
	for _, f := range files {
		expectSelection(m, f)
	}
	m.References.On("CalculateExternalReferences", mock.Anything, fx.project, mock.Anything).
		Return(types.ReferencesResult{}, errors.New("previous file is gone")).Times(failures)
	expectRecord(m, fx.project)
	last := files[len(files)-1]
	m.Sink.On("LogEvent", mock.Anything, mock.MatchedBy(func(ev types.Event) bool {
		return ev.Kind == types.EventFileOpened && ev.Path == last.Path
	})).Return(nil).Once()

	fx.coord.OnFileSelected(files[0], types.None[types.File]())
	for i := 1; i < len(files); i++ {
		fx.coord.OnFileSelected(files[i], types.Some(files[i-1]))
	}

	m.AssertExpectations(t)
	assert.Equal(t, float64(failures), promtest.ToFloat64(fx.metrics.OpenedFileLogs.WithLabelValues(monitoring.LogFailed)))
	assert.Equal(t, 1.0, promtest.ToFloat64(fx.metrics.OpenedFileLogs.WithLabelValues(monitoring.LogLogged)))
}

func TestRefusedSinkWriteIsCountedAsSkipped(t *testing.T) {
	fx := newFixture(t, false, 0.3)
	m := fx.mocks

	expectSelection(m, fileA)
	expectSelection(m, fileB)
	expectRecord(m, fx.project)
	m.Sink.On("LogEvent", mock.Anything, mock.Anything).Return(resilience.ErrCircuitOpen).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileSelected(fileB, types.Some(fileA))

	m.AssertExpectations(t)
	assert.Equal(t, 1.0, promtest.ToFloat64(fx.metrics.OpenedFileLogs.WithLabelValues(monitoring.LogBreakerOpen)))
	assert.Zero(t, fx.logs.FilterMessage("failed to write opened file event").Len())
}

type rejectingExecutor struct{}

func (rejectingExecutor) Submit(context.Context, string, executor.Task) error {
	return fmt.Errorf("%w: file-selected", executor.ErrQueueFull)
}

func TestRejectedUnitStillUpdatesHistory(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	p := project.New("demo", "/work", false)
	m := testutil.NewCollaborators()
	coord := NewCoordinator(p, collaborators(m), Options{
		Executor: rejectingExecutor{},
		Source:   sampling.NewFixedSource(0.0),
		Metrics:  metrics,
	})

	expectSelection(m, fileA)
	coord.OnFileSelected(fileA, types.None[types.File]())

	m.AssertExpectations(t)
	m.Predictor.AssertNotCalled(t, "PredictNextFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	_, ok := coord.CurrentSession()
	assert.False(t, ok)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.HistoryFallbacks))
}

func TestDisposedBeforeUnitRuns(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	pool := executor.NewPool(executor.Config{Workers: 1, QueueSize: 8}, nil, metrics)
	defer pool.Close(context.Background())

	p := project.New("demo", "/work", false)
	m := testutil.NewCollaborators()
	coord := NewCoordinator(p, collaborators(m), Options{
		Executor: pool,
		Source:   sampling.NewFixedSource(0.0),
		Metrics:  metrics,
	})

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), "blocker", func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	m.Context.On("OnFileSelected", fileA.URL()).Once()
	coord.OnFileSelected(fileA, types.None[types.File]())

	p.Dispose()
	close(release)

	assert.Eventually(t, func() bool {
		return promtest.ToFloat64(metrics.Units.WithLabelValues(monitoring.UnitCancelled)) == 1
	}, time.Second, 5*time.Millisecond)

	m.AssertExpectations(t)
	m.History.AssertNotCalled(t, "OnFileSelected", mock.Anything)
	m.Predictor.AssertNotCalled(t, "PredictNextFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	_, ok := coord.CurrentSession()
	assert.False(t, ok)
}

func TestSelectionAfterDisposeOnlyUpdatesContext(t *testing.T) {
	fx := newFixture(t, false, 0.0)
	fx.mocks.Context.On("OnFileSelected", fileA.URL()).Once()

	fx.project.Dispose()
	fx.coord.OnFileSelected(fileA, types.None[types.File]())

	fx.mocks.AssertExpectations(t)
	fx.mocks.History.AssertNotCalled(t, "OnFileSelected", mock.Anything)
	assert.Equal(t, 1, fx.logs.FilterMessage("project disposed, selection not processed").Len())
}

func TestCancellationInsideLogging(t *testing.T) {
	fx := newFixture(t, false, 0.3)
	m := fx.mocks

	expectSelection(m, fileA)
	m.Context.On("OnFileSelected", fileB.URL()).Once()
	m.References.On("CalculateExternalReferences", mock.Anything, fx.project, mock.Anything).
		Run(func(mock.Arguments) { fx.project.Dispose() }).
		Return(types.ReferencesResult{}, context.Canceled).Once()

	fx.coord.OnFileSelected(fileA, types.None[types.File]())
	fx.coord.OnFileSelected(fileB, types.Some(fileA))

	m.AssertExpectations(t)
	m.History.AssertNumberOfCalls(t, "OnFileSelected", 1)
	assert.Zero(t, fx.logs.FilterMessage("failed to log opened file").Len())

	cur, _ := fx.coord.CurrentSession()
	assert.Equal(t, int64(0), cur.ID)
}

func TestSpansAreReported(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := tracing.New("test", zap.New(core), 8)
	p := project.New("demo", "/work", false)
	m := testutil.NewPermissiveCollaborators(t)

	coord := NewCoordinator(p, collaborators(m), Options{
		Source: sampling.NewFixedSource(0.9),
		Tracer: tracer,
	})
	coord.OnFileSelected(fileA, types.None[types.File]())
	tracer.Close()

	assert.Equal(t, 1, logs.FilterMessage("span completed").Len())
}

func TestProbabilitiesValidate(t *testing.T) {
	assert.NoError(t, DefaultProbabilities().Validate())
	assert.ErrorIs(t, Probabilities{OpenedFile: 2, Candidate: 0.1}.Validate(), sampling.ErrInvalidProbability)
	assert.ErrorIs(t, Probabilities{OpenedFile: 0.5, Candidate: -1}.Validate(), sampling.ErrInvalidProbability)
}

func TestZeroProbabilitiesDisableSampling(t *testing.T) {
	p := project.New("demo", "/work", false)
	m := testutil.NewCollaborators()
	zero := Probabilities{}
	coord := NewCoordinator(p, collaborators(m), Options{
		Source:        sampling.NewFixedSource(0.0),
		Probabilities: &zero,
	})

	expectSelection(m, fileA)
	expectSelection(m, fileB)
	coord.OnFileSelected(fileA, types.None[types.File]())
	coord.OnFileSelected(fileB, types.Some(fileA))

	m.AssertExpectations(t)
	m.References.AssertNotCalled(t, "CalculateExternalReferences", mock.Anything, mock.Anything, mock.Anything)
	m.Predictor.AssertNotCalled(t, "PredictNextFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
