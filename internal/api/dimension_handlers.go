package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/errors"
)

func (s *Server) registerDimensionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listDimension",
		Method:      http.MethodGet,
		Path:        "/api/v1/dimensions/{kind}",
		Summary:     "List dimension values",
		Description: "Returns every genre, subgenre, platform or title known to the catalog",
		Tags:        []string{"Dimensions"},
	}, s.handleListDimension)
}

// ListDimensionInput names the dimension table.
type ListDimensionInput struct {
	Kind string `path:"kind" doc:"genre, subgenre, platform or title (plural accepted)"`
}

// DimensionListResponse contains one dimension table.
type DimensionListResponse struct {
	Kind   domain.DimensionKind `json:"kind" doc:"Dimension kind"`
	Values []*domain.Dimension  `json:"values" doc:"Rows ordered by name"`
}

// DimensionListOutput wraps a dimension table for Huma.
type DimensionListOutput struct {
	Body DimensionListResponse
}

func (s *Server) handleListDimension(ctx context.Context, input *ListDimensionInput) (*DimensionListOutput, error) {
	kind, err := domain.ParseDimensionKind(input.Kind)
	if err != nil {
		return nil, respondError(s.logger, "listDimension", errors.Validation(err.Error()))
	}

	values, err := s.catalog.ListDimension(ctx, kind)
	if err != nil {
		return nil, respondError(s.logger, "listDimension", err)
	}
	if values == nil {
		values = []*domain.Dimension{}
	}
	return &DimensionListOutput{Body: DimensionListResponse{Kind: kind, Values: values}}, nil
}
