// Package sampling decides which navigation events pay for expensive work.
//
// A decision is a Bernoulli trial against a pre-drawn uniform value:
// ShouldSample(draw, p) is true iff draw < p. Keeping the draw separate from
// the decision lets a session draw once and answer several thresholds
// consistently.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultOpenedFileProbability gates logging of the file just left
	DefaultOpenedFileProbability = 0.5
	// DefaultCandidateProbability gates next-file prediction
	DefaultCandidateProbability = 0.1
)

// ErrInvalidProbability is returned for probabilities outside [0,1]
var ErrInvalidProbability = errors.New("probability must be within [0,1]")

// ShouldSample reports whether draw falls under probability.
// A probability of 0 never samples; 1 always samples for draws in [0,1).
func ShouldSample(draw, probability float64) bool {
	return draw < probability
}

// Validate checks that p is a usable probability
func Validate(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidProbability, p)
	}
	return nil
}

// Source produces uniform draws in [0,1)
type Source interface {
	Float64() float64
}

// UniformSource draws from gonum's uniform distribution on [0,1).
// It is safe for concurrent use.
type UniformSource struct {
	mu   sync.Mutex // seeded generators are not goroutine safe
	dist distuv.Uniform
}

// NewUniformSource creates the default draw source
func NewUniformSource() *UniformSource {
	return &UniformSource{dist: distuv.Uniform{Min: 0, Max: 1}}
}

// NewSeededSource creates a reproducible uniform source
func NewSeededSource(seed uint64) *UniformSource {
	return &UniformSource{dist: distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, seed)}}
}

// Float64 returns the next draw
func (s *UniformSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clamp(s.dist.Rand())
}

// FixedSource replays a fixed sequence of draws and then repeats the last one.
// It is safe for concurrent use.
type FixedSource struct {
	mu    sync.Mutex
	draws []float64
	next  int
}

// NewFixedSource creates a scripted draw source
func NewFixedSource(draws ...float64) *FixedSource {
	if len(draws) == 0 {
		draws = []float64{0}
	}
	return &FixedSource{draws: draws}
}

// Float64 returns the next scripted draw
func (s *FixedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.draws[s.next]
	if s.next < len(s.draws)-1 {
		s.next++
	}
	return clamp(d)
}

// clamp keeps draws inside [0,1)
func clamp(d float64) float64 {
	switch {
	case math.IsNaN(d) || d < 0:
		return 0
	case d >= 1:
		return math.Nextafter(1, 0)
	default:
		return d
	}
}
