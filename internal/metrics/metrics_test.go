package metrics

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/scanner"
)

func TestScanFinished_Success(t *testing.T) {
	m := New()
	result := &scanner.ScanResult{
		CompletedAt:     time.Unix(1700000000, 0),
		Added:           3,
		Unchanged:       5,
		Cascaded:        2,
		NotebooksFailed: 1,
		Errors:          []scanner.ScanError{{Path: "/a"}},
	}

	m.ScanFinished(result, nil, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.VideosProcessed.WithLabelValues("added")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.VideosProcessed.WithLabelValues("unchanged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VideosProcessed.WithLabelValues("cascaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotebooksProcessed.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanErrorsTotal))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastScanTimestamp))
}

func TestScanFinished_Outcomes(t *testing.T) {
	m := New()

	m.ScanFinished(nil, errors.RootNotFound("/missing", nil), 0)
	m.ScanFinished(nil, errors.ScanInProgress("scan-1"), 0)
	m.ScanFinished(nil, context.Canceled, time.Second)
	m.ScanFinished(nil, errors.Storage("commit", errors.New("disk full")), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(OutcomeRootNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(OutcomeBusy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(OutcomeCanceled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(OutcomeFailed)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ScanFinished(&scanner.ScanResult{}, nil, time.Second)
		m.SetCatalogSize(10)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetCatalogSize(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "fosse_catalog_videos 42")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
