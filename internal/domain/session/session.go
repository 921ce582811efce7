package session

import (
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/fileprediction/internal/domain/sampling"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
)

// BaseID is the ID of the first session created by a holder
const BaseID int64 = 0

// Session is an immutable navigation session
type Session struct {
	ID   int64   `json:"id"`
	Draw float64 `json:"draw"`
}

// ShouldLog reports whether this session is sampled at probability p
func (s Session) ShouldLog(p float64) bool {
	return sampling.ShouldSample(s.Draw, p)
}

// Holder is a single-slot holder of the current session
type Holder struct {
	source sampling.Source

	mu      sync.Mutex // serializes NewSession so ID, draw and swap order agree
	nextID  int64
	current atomic.Pointer[Session]
}

// NewHolder creates an empty holder drawing from source
func NewHolder(source sampling.Source) *Holder {
	if source == nil {
		source = sampling.NewUniformSource()
	}
	return &Holder{
		source: source,
		nextID: BaseID,
	}
}

// NewSession installs a new current session and returns the one it replaced
func (h *Holder) NewSession() (types.Option[Session], Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := &Session{ID: h.nextID, Draw: h.source.Float64()}
	h.nextID++

	prev := h.current.Swap(next)
	if prev == nil {
		return types.None[Session](), *next
	}
	return types.Some(*prev), *next
}

// Current returns a snapshot of the current session.
// The snapshot may already be superseded when concurrent events race.
func (h *Holder) Current() (Session, bool) {
	s := h.current.Load()
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// Reset drops the current session. IDs keep increasing afterwards.
func (h *Holder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.Store(nil)
}
