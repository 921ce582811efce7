// Package predictor ranks the files a user is likely to open next and logs
// the best candidates.
package predictor

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/domain/features"
	"github.com/GriffinCanCode/fileprediction/internal/domain/history"
	"github.com/GriffinCanCode/fileprediction/internal/domain/navcontext"
	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"go.uber.org/zap"
)

// Candidate sources
const (
	SourceReference = "reference"
	SourceHistory   = "history"
	SourceOpen      = "open"
)

// Defaults
const (
	DefaultRefsLimit  = 50
	DefaultCandidates = 10
	DefaultLogTop     = 5
)

// ReferenceCalculator finds files referenced by a file
type ReferenceCalculator interface {
	CalculateExternalReferences(ctx context.Context, p *project.Project, file types.Option[types.File]) (types.ReferencesResult, error)
}

// FeatureExtractor describes a candidate
type FeatureExtractor interface {
	CalculateFileFeatures(ctx context.Context, p *project.Project, file types.File, refs types.References, prev types.Option[types.File]) (types.Features, error)
}

// EventSink receives the candidate record
type EventSink interface {
	LogEvent(ctx context.Context, ev types.Event) error
}

// HistorySource lists recently selected files
type HistorySource interface {
	Recent(n int) []history.Entry
}

// OpenFiles reports the navigation context
type OpenFiles interface {
	Snapshot() navcontext.Snapshot
}

// Config bounds the work done per prediction
type Config struct {
	RefsLimit  int
	Candidates int
	LogTop     int
}

// DefaultConfig returns the limits used by the editor plugin
func DefaultConfig() Config {
	return Config{RefsLimit: DefaultRefsLimit, Candidates: DefaultCandidates, LogTop: DefaultLogTop}
}

// Predictor is the per-project next-file predictor
type Predictor struct {
	cfg      Config
	refs     ReferenceCalculator
	features FeatureExtractor
	history  HistorySource
	open     OpenFiles
	sink     EventSink
	logger   *zap.Logger
}

// Deps groups the collaborators of a Predictor
type Deps struct {
	References ReferenceCalculator
	Features   FeatureExtractor
	History    HistorySource
	Open       OpenFiles
	Sink       EventSink
	Logger     *zap.Logger
}

// New creates a predictor
func New(cfg Config, deps Deps) *Predictor {
	def := DefaultConfig()
	if cfg.RefsLimit <= 0 {
		cfg.RefsLimit = def.RefsLimit
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = def.Candidates
	}
	if cfg.LogTop <= 0 {
		cfg.LogTop = def.LogTop
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Predictor{
		cfg:      cfg,
		refs:     deps.References,
		features: deps.Features,
		history:  deps.History,
		open:     deps.Open,
		sink:     deps.Sink,
		logger:   deps.Logger,
	}
}

type candidate struct {
	file   types.File
	source string
}

// PredictNextFile scores candidates following newFile and logs the top ones.
// Failures are logged, never returned.
func (p *Predictor) PredictNextFile(ctx context.Context, proj *project.Project, sessionID int64, newFile types.File) {
	start := time.Now()

	refs, cands := p.gather(ctx, proj, newFile)
	if len(cands) == 0 {
		p.logger.Debug("no candidates", zap.Int64("session_id", sessionID), zap.String("file", newFile.Path))
		return
	}

	scored := make([]types.Candidate, 0, len(cands))
	for _, c := range cands {
		if ctx.Err() != nil {
			return
		}
		f, err := p.features.CalculateFileFeatures(ctx, proj, c.file, refs, types.Some(newFile))
		if err != nil {
			p.logger.Warn("candidate features failed", zap.String("file", c.file.Path), zap.Error(err))
			continue
		}
		scored = append(scored, types.Candidate{
			Path:        c.file.Path,
			Source:      c.source,
			Probability: Score(f),
			Features:    f,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Probability > scored[j].Probability })
	if len(scored) > p.cfg.LogTop {
		scored = scored[:p.cfg.LogTop]
	}
	if len(scored) == 0 || ctx.Err() != nil {
		return
	}

	ev := types.Event{
		Kind:       types.EventCandidateCalculated,
		ProjectID:  proj.ID.String(),
		SessionID:  sessionID,
		Path:       newFile.Path,
		Candidates: scored,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err := p.sink.LogEvent(ctx, ev); err != nil {
		p.logger.Error("failed to log candidates", zap.Int64("session_id", sessionID), zap.Error(err))
	}
}

// gather collects unique candidates from references, history and open files
func (p *Predictor) gather(ctx context.Context, proj *project.Project, newFile types.File) (types.References, []candidate) {
	seen := map[string]bool{newFile.URL(): true}
	var out []candidate

	add := func(f types.File, source string) bool {
		if len(out) >= p.cfg.Candidates {
			return false
		}
		if url := f.URL(); !seen[url] {
			seen[url] = true
			out = append(out, candidate{file: f, source: source})
		}
		return true
	}

	refs := types.NewReferences()
	if p.refs != nil {
		res, err := p.refs.CalculateExternalReferences(ctx, proj, types.Some(newFile))
		if err != nil {
			p.logger.Warn("reference calculation failed", zap.String("file", newFile.Path), zap.Error(err))
		} else {
			refs = res.Value
			urls := res.Value.URLs()
			if len(urls) > p.cfg.RefsLimit {
				urls = urls[:p.cfg.RefsLimit]
			}
			for _, u := range urls {
				if !add(types.FileFromURL(u), SourceReference) {
					break
				}
			}
		}
	}

	if p.history != nil {
		for _, e := range p.history.Recent(0) {
			if !add(types.FileFromURL(e.URL), SourceHistory) {
				break
			}
		}
	}

	if p.open != nil {
		snap := p.open.Snapshot()
		for i := len(snap.Open) - 1; i >= 0; i-- {
			if !add(types.FileFromURL(snap.Open[i]), SourceOpen) {
				break
			}
		}
	}

	return refs, out
}

var weights = map[string]float64{
	features.InRef:          2.0,
	features.SameDir:        1.0,
	features.SameExt:        0.5,
	features.Opened:         1.0,
	features.RecentlyClosed: 0.5,
	features.SelectedBefore: 0.8,
}

const (
	bias             = -2.0
	usageWeight      = 0.2
	usageCap         = 5
	similarityWeight = 1.5
	distanceWeight   = -0.3
)

// Score maps a feature set to a probability with a fixed logistic model
func Score(f types.Features) float64 {
	z := bias
	for name, w := range weights {
		if b, ok := f[name].(bool); ok && b {
			z += w
		}
	}
	if usage, ok := f[features.HistoryUsage].(int); ok {
		z += usageWeight * float64(min(usage, usageCap))
	}
	if sim, ok := f[features.NameSimilarity].(float64); ok {
		z += similarityWeight * sim
	}
	if d, ok := f[features.PathDistance].(int); ok && d > 0 {
		z += distanceWeight * float64(d)
	}
	return 1 / (1 + math.Exp(-z))
}
