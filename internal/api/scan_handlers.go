package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/scanner"
)

func (s *Server) registerScanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "startScan",
		Method:        http.MethodPost,
		Path:          "/api/v1/scans",
		Summary:       "Start scan",
		Description:   "Starts a scan of the configured root in the background. Fails with 409 while another scan runs.",
		Tags:          []string{"Scans"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   huma.Middlewares{s.limitScanRequests},
	}, s.handleStartScan)

	huma.Register(s.api, huma.Operation{
		OperationID: "scanStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/scans/status",
		Summary:     "Scan status",
		Description: "Returns the scanner state, live progress and the last scan's result",
		Tags:        []string{"Scans"},
	}, s.handleScanStatus)
}

// Scan triggers per client: a burst of a few, then one per interval.
const (
	scanRequestInterval = 10 * time.Second
	scanRequestBurst    = 3
)

// StartScanResponse acknowledges a started scan.
type StartScanResponse struct {
	Root   string        `json:"root" doc:"Tree being scanned"`
	Status scanner.State `json:"status" doc:"Scanner state after the request"`
}

// StartScanOutput wraps the start scan response for Huma.
type StartScanOutput struct {
	Body StartScanResponse
}

// ScanStatusOutput wraps the scanner status for Huma.
type ScanStatusOutput struct {
	Body scanner.Status
}

func (s *Server) handleStartScan(_ context.Context, _ *struct{}) (*StartScanOutput, error) {
	if s.root == "" {
		return nil, respondError(s.logger, "startScan", errors.Validation("no scan root configured"))
	}
	if err := s.scanner.Start(s.scanCtx, s.root); err != nil {
		return nil, respondError(s.logger, "startScan", err)
	}
	s.logger.Info("scan requested over http", "root", s.root)

	return &StartScanOutput{
		Body: StartScanResponse{
			Root:   s.root,
			Status: s.scanner.Status().State,
		},
	}, nil
}

func (s *Server) handleScanStatus(_ context.Context, _ *struct{}) (*ScanStatusOutput, error) {
	return &ScanStatusOutput{Body: s.scanner.Status()}, nil
}
