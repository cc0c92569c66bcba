package scanner

import "sync"

// ProgressTracker follows one scan through its phases.
//
// A scan starts in PhaseWalking, where each directory delivered by the
// walker counts as one item once its notebook and media files are handled.
// Extraction runs inside that loop, so the walk count also covers it.
// PhaseReconciling is a single step. PhaseCascading counts the notebook
// directories whose videos are recomputed, with the total known up front.
// PhaseIndexing is entered only when a search index is configured, and
// PhaseComplete is set after the commit. Errors accumulate across phases.
type ProgressTracker struct {
	mu       sync.RWMutex
	progress Progress
	onChange func(*Progress)
}

// NewProgressTracker returns a tracker in PhaseWalking. onChange, when set,
// receives a copy after every update; it is called synchronously, outside
// the tracker's lock, and may run on any scan goroutine.
func NewProgressTracker(onChange func(*Progress)) *ProgressTracker {
	return &ProgressTracker{
		onChange: onChange,
		progress: Progress{Phase: PhaseWalking},
	}
}

// SetPhase enters phase. The item counters restart; the error count does not.
func (p *ProgressTracker) SetPhase(phase ScanPhase) {
	p.update(func(pr *Progress) {
		pr.Phase = phase
		pr.Current, pr.Total = 0, 0
		pr.CurrentItem = ""
	})
}

// SetTotal records how many items the current phase will count. The walk
// never sets one; its size is unknown until it ends.
func (p *ProgressTracker) SetTotal(total int) {
	p.update(func(pr *Progress) { pr.Total = total })
}

// Increment counts one finished directory.
func (p *ProgressTracker) Increment(dir string) {
	p.update(func(pr *Progress) {
		pr.Current++
		pr.CurrentItem = dir
	})
}

// AddError counts a per-path failure that did not stop the scan.
func (p *ProgressTracker) AddError() {
	p.update(func(pr *Progress) { pr.Errors++ })
}

// Get returns a copy of the current progress.
func (p *ProgressTracker) Get() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress
}

func (p *ProgressTracker) update(fn func(*Progress)) {
	p.mu.Lock()
	fn(&p.progress)
	snapshot := p.progress
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(&snapshot)
	}
}
