package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosse-media/fosse/internal/scanner"
)

func TestStartScan(t *testing.T) {
	ts := setupTestServer(t)
	writeTree(t, ts.root, map[string]string{"rock/encore.mp4": "clip"})

	resp := ts.api.Post("/api/v1/scans")

	require.Equal(t, http.StatusAccepted, resp.Code)
	body := decode[StartScanResponse](t, resp.Body.Bytes())
	assert.Equal(t, ts.root, body.Root)

	st := ts.waitIdle(t)
	assert.Equal(t, scanner.StateIdle, st.State)
	require.NotNil(t, st.LastResult)
	assert.Equal(t, 1, st.LastResult.Added)
	assert.Equal(t, 3, st.LastResult.Unchanged)
}

func TestStartScan_Conflict(t *testing.T) {
	ts := setupTestServer(t)
	writeTree(t, ts.root, map[string]string{"rock/encore.mp4": "clip"})
	ts.extractor.hold()

	resp := ts.api.Post("/api/v1/scans")
	require.Equal(t, http.StatusAccepted, resp.Code)
	<-ts.extractor.entered

	status := decode[scanner.Status](t, ts.api.Get("/api/v1/scans/status").Body.Bytes())
	assert.Equal(t, scanner.StateScanning, status.State)
	assert.NotEmpty(t, status.ScanID)
	require.NotNil(t, status.Progress)

	resp = ts.api.Post("/api/v1/scans")
	assert.Equal(t, http.StatusConflict, resp.Code)
	apiErr := decode[APIError](t, resp.Body.Bytes())
	assert.Equal(t, "SCAN_IN_PROGRESS", apiErr.Code)

	ts.extractor.release()
	st := ts.waitIdle(t)
	assert.Equal(t, scanner.StateIdle, st.State)
}

func TestStartScan_NoRoot(t *testing.T) {
	ts := setupTestServer(t)
	ts.root = ""
	ts.Server.root = ""

	resp := ts.api.Post("/api/v1/scans")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestScanStatus_Idle(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/scans/status")

	require.Equal(t, http.StatusOK, resp.Code)
	st := decode[scanner.Status](t, resp.Body.Bytes())
	assert.Equal(t, scanner.StateIdle, st.State)
	require.NotNil(t, st.LastResult)
	assert.Equal(t, 3, st.LastResult.Added)
	assert.Nil(t, st.StartedAt)
}

func TestStartScan_RateLimited(t *testing.T) {
	ts := setupTestServer(t)
	writeTree(t, ts.root, map[string]string{"rock/encore.mp4": "clip"})
	ts.extractor.hold()

	require.Equal(t, http.StatusAccepted, ts.api.Post("/api/v1/scans").Code)
	<-ts.extractor.entered
	assert.Equal(t, http.StatusConflict, ts.api.Post("/api/v1/scans").Code)
	assert.Equal(t, http.StatusConflict, ts.api.Post("/api/v1/scans").Code)

	resp := ts.api.Post("/api/v1/scans")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decode[APIError](t, resp.Body.Bytes()).Code)

	ts.extractor.release()
	ts.waitIdle(t)
}
