// Package testutil provides collaborator mocks and helpers shared by tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/stretchr/testify/mock"
)

// MockNavigationContext is a mock navigation context.
type MockNavigationContext struct {
	mock.Mock
}

// OnFileSelected mocks the OnFileSelected method.
func (m *MockNavigationContext) OnFileSelected(url string) { m.Called(url) }

// OnFileOpened mocks the OnFileOpened method.
func (m *MockNavigationContext) OnFileOpened(url string) { m.Called(url) }

// OnFileClosed mocks the OnFileClosed method.
func (m *MockNavigationContext) OnFileClosed(url string) { m.Called(url) }

// MockReferenceCalculator is a mock reference calculator.
type MockReferenceCalculator struct {
	mock.Mock
}

// CalculateExternalReferences mocks the CalculateExternalReferences method.
func (m *MockReferenceCalculator) CalculateExternalReferences(ctx context.Context, p *project.Project, file types.Option[types.File]) (types.ReferencesResult, error) {
	args := m.Called(ctx, p, file)
	return args.Get(0).(types.ReferencesResult), args.Error(1)
}

// MockFeatureExtractor is a mock feature extractor.
type MockFeatureExtractor struct {
	mock.Mock
}

// CalculateFileFeatures mocks the CalculateFileFeatures method.
func (m *MockFeatureExtractor) CalculateFileFeatures(ctx context.Context, p *project.Project, file types.File, refs types.References, prev types.Option[types.File]) (types.Features, error) {
	args := m.Called(ctx, p, file, refs, prev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(types.Features), args.Error(1)
}

// MockPredictor is a mock next-file predictor.
type MockPredictor struct {
	mock.Mock
}

// PredictNextFile mocks the PredictNextFile method.
func (m *MockPredictor) PredictNextFile(ctx context.Context, p *project.Project, sessionID int64, newFile types.File) {
	m.Called(ctx, p, sessionID, newFile)
}

// MockHistory is a mock file history.
type MockHistory struct {
	mock.Mock
}

// OnFileSelected mocks the OnFileSelected method.
func (m *MockHistory) OnFileSelected(url string) { m.Called(url) }

// MockEventSink is a mock event sink.
type MockEventSink struct {
	mock.Mock
}

// LogEvent mocks the LogEvent method.
func (m *MockEventSink) LogEvent(ctx context.Context, ev types.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// Collaborators bundles one mock of each collaborator.
type Collaborators struct {
	Context    *MockNavigationContext
	References *MockReferenceCalculator
	Features   *MockFeatureExtractor
	Predictor  *MockPredictor
	History    *MockHistory
	Sink       *MockEventSink
}

// NewCollaborators creates mocks without expectations. Tests declare every
// call they expect, so unexpected calls fail.
func NewCollaborators() *Collaborators {
	return &Collaborators{
		Context:    new(MockNavigationContext),
		References: new(MockReferenceCalculator),
		Features:   new(MockFeatureExtractor),
		Predictor:  new(MockPredictor),
		History:    new(MockHistory),
		Sink:       new(MockEventSink),
	}
}

// NewPermissiveCollaborators creates mocks whose calls all succeed.
func NewPermissiveCollaborators(t *testing.T) *Collaborators {
	t.Helper()
	c := NewCollaborators()

	c.Context.On("OnFileSelected", mock.Anything).Maybe()
	c.Context.On("OnFileOpened", mock.Anything).Maybe()
	c.Context.On("OnFileClosed", mock.Anything).Maybe()

	c.References.On("CalculateExternalReferences", mock.Anything, mock.Anything, mock.Anything).
		Return(types.ReferencesResult{Value: types.NewReferences(), Duration: time.Millisecond}, nil).
		Maybe()

	c.Features.On("CalculateFileFeatures", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(types.Features{"has_prev": true}, nil).
		Maybe()

	c.Predictor.On("PredictNextFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	c.History.On("OnFileSelected", mock.Anything).Maybe()
	c.Sink.On("LogEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	return c
}

// AssertExpectations checks every mock.
func (c *Collaborators) AssertExpectations(t *testing.T) {
	t.Helper()
	mock.AssertExpectationsForObjects(t, c.Context, c.References, c.Features, c.Predictor, c.History, c.Sink)
}

// AssertNoCalls fails if any collaborator was called.
func (c *Collaborators) AssertNoCalls(t *testing.T) {
	t.Helper()
	for _, m := range []*mock.Mock{&c.Context.Mock, &c.References.Mock, &c.Features.Mock, &c.Predictor.Mock, &c.History.Mock, &c.Sink.Mock} {
		if len(m.Calls) != 0 {
			t.Errorf("unexpected collaborator calls: %v", m.Calls)
		}
	}
}

// WaitFor polls cond until it holds or the timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
