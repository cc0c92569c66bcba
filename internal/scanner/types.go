package scanner

import (
	"time"
)

// State is the scanner's lifecycle state.
type State string

// A scan runs Idle → Scanning → Reconciling → Idle. Any failure (including a
// missing root, which never opens a session) lands in Failed, which behaves
// like Idle for the next scan.
const (
	StateIdle        State = "idle"
	StateScanning    State = "scanning"
	StateReconciling State = "reconciling"
	StateFailed      State = "failed"
)

// ScanResult summarizes one committed scan.
type ScanResult struct {
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
	ScanID      string      `json:"scan_id"`
	Root        string      `json:"root"`
	Errors      []ScanError `json:"errors,omitempty"`

	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Skipped   int `json:"skipped"`
	Cascaded  int `json:"cascaded"`

	NotebooksAdded   int `json:"notebooks_added"`
	NotebooksUpdated int `json:"notebooks_updated"`
	NotebooksRemoved int `json:"notebooks_removed"`
	NotebooksFailed  int `json:"notebooks_failed"`
}

// Duration is the wall time of the scan.
func (r *ScanResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Progress is a point-in-time view of a running scan.
type Progress struct {
	Phase       ScanPhase `json:"phase"`
	CurrentItem string    `json:"current_item,omitempty"`
	Current     int       `json:"current"`
	Total       int       `json:"total"`
	Errors      int       `json:"errors"`
}

// ScanPhase names the step a running scan is in.
type ScanPhase string

// Scan phases, in order.
const (
	PhaseWalking     ScanPhase = "walking"
	PhaseExtracting  ScanPhase = "extracting"
	PhaseReconciling ScanPhase = "reconciling"
	PhaseCascading   ScanPhase = "cascading"
	PhaseIndexing    ScanPhase = "indexing"
	PhaseComplete    ScanPhase = "complete"
)

// ScanError is a per-path problem that did not abort the scan.
type ScanError struct {
	Time    time.Time `json:"time"`
	Path    string    `json:"path"`
	Phase   ScanPhase `json:"phase"`
	Message string    `json:"message"`
}

// Status describes the scanner for status endpoints.
type Status struct {
	State      State       `json:"state"`
	ScanID     string      `json:"scan_id,omitempty"`
	Root       string      `json:"root,omitempty"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	Progress   *Progress   `json:"progress,omitempty"`
	LastResult *ScanResult `json:"last_result,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
}
