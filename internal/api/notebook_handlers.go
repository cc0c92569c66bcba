package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
)

func (s *Server) registerNotebookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotebooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/notebooks",
		Summary:     "List notebooks",
		Description: "Returns every stored notebook ordered by directory",
		Tags:        []string{"Notebooks"},
	}, s.handleListNotebooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveConfig",
		Method:      http.MethodGet,
		Path:        "/api/v1/resolve",
		Summary:     "Resolve effective configuration",
		Description: "Merges the committed notebooks on a file's ancestor chain, nearest last",
		Tags:        []string{"Notebooks"},
	}, s.handleResolve)
}

// NotebookResponse is a stored notebook.
type NotebookResponse struct {
	DirectoryPath string         `json:"directory_path" doc:"Directory holding the notebook"`
	Fields        map[string]any `json:"fields" doc:"Parsed notebook fields"`
	LastModified  time.Time      `json:"last_modified" doc:"When the stored copy last changed"`
}

// ListNotebooksResponse contains every stored notebook.
type ListNotebooksResponse struct {
	Notebooks []NotebookResponse `json:"notebooks" doc:"Stored notebooks"`
}

// ListNotebooksOutput wraps the notebook list for Huma.
type ListNotebooksOutput struct {
	Body ListNotebooksResponse
}

// ResolveInput names the file to resolve.
type ResolveInput struct {
	Path string `query:"path" required:"true" doc:"Absolute file path; need not exist on disk"`
}

// ResolveResponse is an effective configuration.
type ResolveResponse struct {
	Path    string         `json:"path" doc:"The resolved file path"`
	Config  map[string]any `json:"config" doc:"Merged fields"`
	Sources []string       `json:"sources" doc:"Contributing notebook directories, most specific first"`
}

// ResolveOutput wraps the effective configuration for Huma.
type ResolveOutput struct {
	Body ResolveResponse
}

func notebookResponse(rec *domain.NotebookRecord) NotebookResponse {
	return NotebookResponse{
		DirectoryPath: rec.DirectoryPath,
		Fields:        rec.Notebook.RawCopy(),
		LastModified:  rec.LastModified,
	}
}

func (s *Server) handleListNotebooks(ctx context.Context, _ *struct{}) (*ListNotebooksOutput, error) {
	records, err := s.catalog.ListNotebooks(ctx)
	if err != nil {
		return nil, respondError(s.logger, "listNotebooks", err)
	}

	resp := make([]NotebookResponse, len(records))
	for i, rec := range records {
		resp[i] = notebookResponse(rec)
	}
	return &ListNotebooksOutput{Body: ListNotebooksResponse{Notebooks: resp}}, nil
}

// handleResolve rejects relative paths. Stored notebooks are keyed by
// absolute directory.
func (s *Server) handleResolve(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
	if !filepath.IsAbs(input.Path) {
		return nil, respondError(s.logger, "resolve", errors.Validationf("path must be absolute, got %q", input.Path))
	}
	path := filepath.Clean(input.Path)

	cfg, err := s.catalog.ResolveEffectiveConfig(ctx, path)
	if err != nil {
		return nil, respondError(s.logger, "resolve", err)
	}
	return &ResolveOutput{
		Body: ResolveResponse{
			Path:    path,
			Config:  cfg.Merged(),
			Sources: cfg.Sources,
		},
	}, nil
}
