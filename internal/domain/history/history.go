// Package history keeps the bounded list of recently selected files of a
// project together with per-file usage counts.
package history

import "sync"

// DefaultLimit is the number of entries kept
const DefaultLimit = 50

// Entry is one history record
type Entry struct {
	URL   string `json:"url"`
	Usage int    `json:"usage"`
}

// History is a bounded most-recent-first file list
type History struct {
	mu      sync.RWMutex
	limit   int
	entries []Entry // newest first
}

// New creates a history holding up to limit entries
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// OnFileSelected moves url to the front and bumps its usage count
func (h *History) OnFileSelected(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	usage := 0
	if i := h.indexLocked(url); i >= 0 {
		usage = h.entries[i].Usage
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
	}

	h.entries = append([]Entry{{URL: url, Usage: usage + 1}}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Position returns the recency index of url (0 is newest) or -1
func (h *History) Position(url string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.indexLocked(url)
}

// Usage returns how many times url was selected while in history
func (h *History) Usage(url string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i := h.indexLocked(url); i >= 0 {
		return h.entries[i].Usage
	}
	return 0
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	return append([]Entry(nil), h.entries[:n]...)
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) indexLocked(url string) int {
	for i, e := range h.entries {
		if e.URL == url {
			return i
		}
	}
	return -1
}
