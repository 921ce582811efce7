package navigation

import (
	"context"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
)

// NavigationContext tracks the files the user works with
type NavigationContext interface {
	OnFileSelected(url string)
	OnFileOpened(url string)
	OnFileClosed(url string)
}

// ReferenceCalculator computes the files a file refers to
type ReferenceCalculator interface {
	CalculateExternalReferences(ctx context.Context, p *project.Project, file types.Option[types.File]) (types.ReferencesResult, error)
}

// FeatureExtractor describes a file for a training record
type FeatureExtractor interface {
	CalculateFileFeatures(ctx context.Context, p *project.Project, file types.File, refs types.References, prev types.Option[types.File]) (types.Features, error)
}

// Predictor predicts the next file after newFile
type Predictor interface {
	PredictNextFile(ctx context.Context, p *project.Project, sessionID int64, newFile types.File)
}

// History records selected files
type History interface {
	OnFileSelected(url string)
}

// EventSink receives training records
type EventSink interface {
	LogEvent(ctx context.Context, ev types.Event) error
}

// LightPredicate reports projects for which telemetry is suppressed
type LightPredicate func(p *project.Project) bool

// Collaborators are the per-project objects a Coordinator drives
type Collaborators struct {
	Context    NavigationContext
	References ReferenceCalculator
	Features   FeatureExtractor
	Predictor  Predictor
	History    History
	Sink       EventSink
}
