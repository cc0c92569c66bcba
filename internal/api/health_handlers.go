package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/scanner"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)

	huma.Register(s.api, huma.Operation{
		OperationID: "catalogStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Catalog statistics",
		Description: "Returns row counts of the catalog tables",
		Tags:        []string{"Health"},
	}, s.handleStats)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// StatsOutput wraps catalog statistics for Huma.
type StatsOutput struct {
	Body *domain.CatalogStats
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"search":   s.checkSearchIndex(),
		"scanner":  s.checkScanner(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkDatabase runs a cheap read against the catalog.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()
	stats, err := s.catalog.Stats(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "database read failed",
		}
	}

	if s.metrics != nil {
		s.metrics.SetCatalogSize(stats.Videos)
	}
	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: fmt.Sprintf("%d videos, %d notebooks", stats.Videos, stats.Notebooks),
	}
}

// checkSearchIndex verifies the Bleve index is accessible. A disabled index
// is healthy.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.search == nil {
		return ComponentHealth{Status: "healthy", Message: "disabled"}
	}

	start := time.Now()
	count, err := s.search.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}
	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: fmt.Sprintf("%d documents", count),
	}
}

// checkScanner reports a failed last scan as degraded.
func (s *Server) checkScanner() ComponentHealth {
	if s.scanner == nil {
		return ComponentHealth{Status: "degraded", Message: "scanner not configured"}
	}
	st := s.scanner.Status()
	if st.State == scanner.StateFailed {
		return ComponentHealth{Status: "degraded", Message: "last scan failed: " + st.LastError}
	}
	return ComponentHealth{Status: "healthy", Message: string(st.State)}
}

func (s *Server) handleStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return nil, respondError(s.logger, "stats", err)
	}
	return &StatsOutput{Body: stats}, nil
}
