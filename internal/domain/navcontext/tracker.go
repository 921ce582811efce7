// Package navcontext tracks which file is selected, which files are open and
// which were closed recently in a project.
package navcontext

import (
	"sync"

	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
)

// DefaultClosedLimit bounds the recently closed list
const DefaultClosedLimit = 20

// Snapshot is a read-only copy of the tracker state
type Snapshot struct {
	Selected types.Option[string] `json:"selected"`
	Open     []string             `json:"open"`
	Closed   []string             `json:"recently_closed"`
}

// Tracker is the per-project navigation context
type Tracker struct {
	mu          sync.RWMutex
	selected    types.Option[string]
	open        []string
	closed      []string
	closedLimit int
}

// NewTracker creates a tracker keeping up to closedLimit closed files
func NewTracker(closedLimit int) *Tracker {
	if closedLimit <= 0 {
		closedLimit = DefaultClosedLimit
	}
	return &Tracker{closedLimit: closedLimit}
}

// OnFileSelected marks url as the selected file
func (t *Tracker) OnFileSelected(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = types.Some(url)
}

// OnFileOpened adds url to the open files, most recent last
func (t *Tracker) OnFileOpened(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = append(remove(t.open, url), url)
	t.closed = remove(t.closed, url)
}

// OnFileClosed moves url from the open files to the recently closed list
func (t *Tracker) OnFileClosed(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = remove(t.open, url)
	t.closed = append(remove(t.closed, url), url)
	if len(t.closed) > t.closedLimit {
		t.closed = t.closed[len(t.closed)-t.closedLimit:]
	}
	if sel, ok := t.selected.Get(); ok && sel == url {
		t.selected = types.None[string]()
	}
}

// Selected returns the selected file, if any
func (t *Tracker) Selected() types.Option[string] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selected
}

// IsOpen reports whether url is open
func (t *Tracker) IsOpen(url string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return index(t.open, url) >= 0
}

// WasRecentlyClosed reports whether url is in the recently closed list
func (t *Tracker) WasRecentlyClosed(url string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return index(t.closed, url) >= 0
}

// Snapshot copies the current state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Snapshot{
		Selected: t.selected,
		Open:     append([]string(nil), t.open...),
		Closed:   append([]string(nil), t.closed...),
	}
}

func index(list []string, url string) int {
	for i, u := range list {
		if u == url {
			return i
		}
	}
	return -1
}

func remove(list []string, url string) []string {
	if i := index(list, url); i >= 0 {
		return append(list[:i:i], list[i+1:]...)
	}
	return list
}
