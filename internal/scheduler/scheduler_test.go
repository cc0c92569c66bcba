package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/scanner"
)

type countingScanner struct {
	calls atomic.Int32
	err   error
}

func (c *countingScanner) Scan(_ context.Context, root string) (*scanner.ScanResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &scanner.ScanResult{Root: root}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_InvalidSchedule(t *testing.T) {
	for _, spec := range []string{"", "every hour", "61 * * * *", "@sometimes"} {
		t.Run(spec, func(t *testing.T) {
			_, err := New(&countingScanner{}, "/media", spec, testLogger())
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
		})
	}
}

func TestNew_ValidSchedules(t *testing.T) {
	for _, spec := range []string{"@hourly", "@every 6h", "0 3 * * *", "*/15 * * * *"} {
		t.Run(spec, func(t *testing.T) {
			s, err := New(&countingScanner{}, "/media", spec, testLogger())
			require.NoError(t, err)
			assert.True(t, s.Next().IsZero())
		})
	}
}

func TestScheduler_RunsScans(t *testing.T) {
	target := &countingScanner{}
	s, err := New(target, "/media", "@every 1s", testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.Next().IsZero())

	require.Eventually(t, func() bool {
		return target.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	assert.True(t, s.Next().IsZero())

	// No more scans once stopped.
	n := target.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, n, target.calls.Load())
}

func TestScheduler_StartTwice(t *testing.T) {
	s, err := New(&countingScanner{}, "/media", "@daily", testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 1)

	s.Stop()
	s.Stop()
}

func TestScheduler_RunScanToleratesErrors(t *testing.T) {
	for _, err := range []error{
		errors.ScanInProgress("scan-1"),
		errors.RootNotFound("/media", nil),
	} {
		target := &countingScanner{err: err}
		s, newErr := New(target, "/media", "@daily", testLogger())
		require.NoError(t, newErr)
		require.NoError(t, s.Start(context.Background()))

		s.runScan()
		assert.Equal(t, int32(1), target.calls.Load())
		s.Stop()
	}
}
