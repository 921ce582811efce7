package types

import "time"

// Features is the feature set computed for one file.
// Values are bool, int, int64, float64 or string.
type Features map[string]interface{}

// EventKind names a logged navigation event
type EventKind string

const (
	EventFileOpened          EventKind = "file.opened"
	EventCandidateCalculated EventKind = "candidate.calculated"
)

// Candidate is one scored next-file candidate
type Candidate struct {
	Path        string   `json:"path"`
	Source      string   `json:"source"`
	Probability float64  `json:"probability"`
	Features    Features `json:"features,omitempty"`
}

// Event is one record handed to an event sink
type Event struct {
	ID             string         `json:"id"`
	Kind           EventKind      `json:"kind"`
	ProjectID      string         `json:"project_id"`
	SessionID      int64          `json:"session_id"`
	Features       Features       `json:"features,omitempty"`
	Path           string         `json:"path"`
	PrevPath       Option[string] `json:"prev_path"`
	DurationMs     int64          `json:"duration_ms"`
	RefsDurationMs int64          `json:"refs_duration_ms"`
	Candidates     []Candidate    `json:"candidates,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
