package scanner

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker_PhasesResetCounters(t *testing.T) {
	tracker := NewProgressTracker(nil)
	assert.Equal(t, PhaseWalking, tracker.Get().Phase)

	tracker.Increment("/media/live")
	tracker.AddError()
	tracker.SetPhase(PhaseCascading)
	tracker.SetTotal(3)
	tracker.Increment("/media/live/jazz")

	got := tracker.Get()
	assert.Equal(t, PhaseCascading, got.Phase)
	assert.Equal(t, 1, got.Current)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, "/media/live/jazz", got.CurrentItem)
	assert.Equal(t, 1, got.Errors)
}

func TestProgressTracker_CallbackSeesEveryUpdateInOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		phases []ScanPhase
	)
	tracker := NewProgressTracker(func(p *Progress) {
		mu.Lock()
		phases = append(phases, p.Phase)
		mu.Unlock()
	})

	tracker.Increment("/media")
	tracker.SetPhase(PhaseReconciling)
	tracker.SetPhase(PhaseCascading)
	tracker.SetPhase(PhaseComplete)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, phases, 4)
	assert.Equal(t, []ScanPhase{PhaseWalking, PhaseReconciling, PhaseCascading, PhaseComplete}, phases)
}
