package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchVideos",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search videos",
		Description: "Full-text search over display names, paths and dimension names",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains search parameters.
type SearchInput struct {
	Query          string  `query:"q" doc:"Search text; empty matches everything"`
	Genre          string  `query:"genre" doc:"Exact genre name"`
	Subgenre       string  `query:"subgenre" doc:"Exact subgenre name"`
	Platform       string  `query:"platform" doc:"Exact platform name"`
	Title          string  `query:"title" doc:"Exact title name"`
	UnderInfluence string  `query:"under_influence" doc:"true or false"`
	PathPrefix     string  `query:"path_prefix" doc:"Only videos inside this directory"`
	MinDuration    float64 `query:"min_duration" minimum:"0" doc:"Minimum duration in seconds"`
	MaxDuration    float64 `query:"max_duration" minimum:"0" doc:"Maximum duration in seconds, 0 for none"`
	Limit          int     `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Max results"`
	Offset         int     `query:"offset" default:"0" minimum:"0" doc:"Pagination offset"`
	Sort           string  `query:"sort" default:"relevance" enum:"relevance,name,recorded,duration" doc:"Sort field"`
	Order          string  `query:"order" default:"desc" enum:"asc,desc" doc:"Sort order"`
	Facets         bool    `query:"facets" default:"true" doc:"Include genre and platform facets"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.Result
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.search == nil {
		return nil, huma.Error503ServiceUnavailable("search index is disabled")
	}

	params := search.Params{
		Query:         input.Query,
		Genre:         input.Genre,
		Subgenre:      input.Subgenre,
		Platform:      input.Platform,
		Title:         input.Title,
		PathPrefix:    input.PathPrefix,
		MinDuration:   input.MinDuration,
		MaxDuration:   input.MaxDuration,
		Limit:         input.Limit,
		Offset:        input.Offset,
		SortBy:        input.Sort,
		SortOrder:     input.Order,
		IncludeFacets: input.Facets,
	}
	if input.UnderInfluence != "" {
		v, err := strconv.ParseBool(input.UnderInfluence)
		if err != nil {
			return nil, respondError(s.logger, "search", errors.Validationf("under_influence must be true or false, got %q", input.UnderInfluence))
		}
		params.UnderInfluence = &v
	}

	result, err := s.search.Search(ctx, params)
	if err != nil {
		return nil, respondError(s.logger, "search", err)
	}
	return &SearchOutput{Body: result}, nil
}
