package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/store"
)

func (s *Server) registerVideoRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listVideos",
		Method:      http.MethodGet,
		Path:        "/api/v1/videos",
		Summary:     "List videos",
		Description: "Returns catalogued videos ordered by path, filtered by dimension names",
		Tags:        []string{"Videos"},
	}, s.handleListVideos)

	huma.Register(s.api, huma.Operation{
		OperationID: "getVideoByPath",
		Method:      http.MethodGet,
		Path:        "/api/v1/videos/by-path",
		Summary:     "Get video",
		Description: "Returns the catalog record of one file",
		Tags:        []string{"Videos"},
	}, s.handleGetVideo)

	huma.Register(s.api, huma.Operation{
		OperationID:   "markVideoUsed",
		Method:        http.MethodPost,
		Path:          "/api/v1/videos/used",
		Summary:       "Mark video used",
		Description:   "Records that a video was used at the given time, or now",
		Tags:          []string{"Videos"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleMarkVideoUsed)
}

// ListVideosInput contains filters and pagination for listing videos.
type ListVideosInput struct {
	Genre          string `query:"genre" doc:"Exact genre name"`
	Subgenre       string `query:"subgenre" doc:"Exact subgenre name"`
	Platform       string `query:"platform" doc:"Exact platform name"`
	Title          string `query:"title" doc:"Exact title name"`
	UnderInfluence string `query:"under_influence" doc:"true or false"`
	PathPrefix     string `query:"path_prefix" doc:"Only videos inside this directory"`
	Limit          int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Items per page"`
	Cursor         string `query:"cursor" doc:"Cursor from the previous page"`
}

// VideoListOutput wraps a page of videos for Huma.
type VideoListOutput struct {
	Body *store.PaginatedResult[*domain.Video]
}

// GetVideoInput identifies a video by file path.
type GetVideoInput struct {
	Path string `query:"path" required:"true" doc:"Absolute file path"`
}

// VideoOutput wraps a video for Huma.
type VideoOutput struct {
	Body *domain.Video
}

// MarkUsedRequest is the request body for marking a video used.
type MarkUsedRequest struct {
	Path string     `json:"path" minLength:"1" doc:"Absolute file path"`
	At   *time.Time `json:"at,omitempty" required:"false" doc:"Use time, defaults to now"`
}

// MarkUsedInput wraps the mark used request for Huma.
type MarkUsedInput struct {
	Body MarkUsedRequest
}

func (s *Server) handleListVideos(ctx context.Context, input *ListVideosInput) (*VideoListOutput, error) {
	filter := store.VideoFilter{
		Genre:      input.Genre,
		Subgenre:   input.Subgenre,
		Platform:   input.Platform,
		Title:      input.Title,
		PathPrefix: input.PathPrefix,
	}
	if input.UnderInfluence != "" {
		v, err := strconv.ParseBool(input.UnderInfluence)
		if err != nil {
			return nil, respondError(s.logger, "listVideos", errors.Validationf("under_influence must be true or false, got %q", input.UnderInfluence))
		}
		filter.UnderInfluence = &v
	}

	page, err := s.catalog.ListVideos(ctx, filter, store.PaginationParams{
		Limit:  input.Limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, respondError(s.logger, "listVideos", err)
	}
	return &VideoListOutput{Body: page}, nil
}

func (s *Server) handleGetVideo(ctx context.Context, input *GetVideoInput) (*VideoOutput, error) {
	v, err := s.catalog.GetVideo(ctx, input.Path)
	if err != nil {
		return nil, respondError(s.logger, "getVideo", err)
	}
	return &VideoOutput{Body: v}, nil
}

func (s *Server) handleMarkVideoUsed(ctx context.Context, input *MarkUsedInput) (*struct{}, error) {
	at := time.Now()
	if input.Body.At != nil {
		at = *input.Body.At
	}
	if err := s.catalog.MarkVideoUsed(ctx, input.Body.Path, at); err != nil {
		return nil, respondError(s.logger, "markVideoUsed", err)
	}
	return nil, nil
}
