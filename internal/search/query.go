package search

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a search.
type Params struct {
	Query string // Free text; empty matches everything

	// Exact filters on dimension names
	Genre          string
	Subgenre       string
	Platform       string
	Title          string
	UnderInfluence *bool
	PathPrefix     string
	MinDuration    float64 // Seconds
	MaxDuration    float64 // Seconds, 0 for no upper bound

	Limit  int
	Offset int

	SortBy    string // "relevance", "name", "recorded", "duration"
	SortOrder string // "asc", "desc"

	IncludeFacets bool
}

// DefaultParams returns relevance-ordered results with facets.
func DefaultParams() Params {
	return Params{
		Limit:         20,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
	}
}

// Result is one page of search hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
	Facets Facets `json:"facets"`
}

// Hit is a matching video.
type Hit struct {
	Path        string            `json:"path"`
	Score       float64           `json:"score"`
	DisplayName string            `json:"display_name"`
	Genre       string            `json:"genre,omitempty"`
	Subgenre    string            `json:"subgenre,omitempty"`
	Platform    string            `json:"platform,omitempty"`
	Title       string            `json:"title,omitempty"`
	Duration    float64           `json:"duration_seconds,omitempty"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// Facets holds per-dimension counts over all matches.
type Facets struct {
	Genres    []FacetCount `json:"genres,omitempty"`
	Platforms []FacetCount `json:"platforms,omitempty"`
}

// FacetCount is a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search runs params against the index.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)
	if params.IncludeFacets {
		req.AddFacet("genre", bleve.NewFacetRequest("genre", 20))
		req.AddFacet("platform", bleve.NewFacetRequest("platform", 20))
	}
	if params.Query != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("display_name")
	}
	req.Fields = []string{"display_name", "genre", "subgenre", "platform", "title", "duration"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{
			Path:        h.ID,
			Score:       h.Score,
			DisplayName: stringField(h.Fields, "display_name"),
			Genre:       stringField(h.Fields, "genre"),
			Subgenre:    stringField(h.Fields, "subgenre"),
			Platform:    stringField(h.Fields, "platform"),
			Title:       stringField(h.Fields, "title"),
		}
		if d, ok := h.Fields["duration"].(float64); ok {
			hit.Duration = d
		}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string)
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		out.Hits = append(out.Hits, hit)
	}

	if params.IncludeFacets {
		out.Facets = extractFacets(res)
	}
	return out, nil
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func buildQuery(params Params) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		nameMatch := bleve.NewMatchQuery(q)
		nameMatch.SetField("display_name")
		nameMatch.SetBoost(3.0)

		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetField("display_name")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.8)

		dims := bleve.NewMatchQuery(q)
		dims.SetField("dimensions")
		dims.SetBoost(1.5)

		pathMatch := bleve.NewMatchQuery(q)
		pathMatch.SetField("path_text")
		pathMatch.SetBoost(0.5)

		queries = append(queries, bleve.NewDisjunctionQuery(nameMatch, fuzzy, dims, pathMatch))
	}

	for field, value := range map[string]string{
		"genre":    params.Genre,
		"subgenre": params.Subgenre,
		"platform": params.Platform,
		"title":    params.Title,
	} {
		if value == "" {
			continue
		}
		tq := bleve.NewTermQuery(value)
		tq.SetField(field)
		queries = append(queries, tq)
	}

	if params.UnderInfluence != nil {
		bq := bleve.NewBoolFieldQuery(*params.UnderInfluence)
		bq.SetField("under_influence")
		queries = append(queries, bq)
	}

	if params.PathPrefix != "" {
		pq := bleve.NewPrefixQuery(params.PathPrefix)
		pq.SetField("path")
		queries = append(queries, pq)
	}

	if params.MinDuration > 0 || params.MaxDuration > 0 {
		lo := params.MinDuration
		hi := params.MaxDuration
		if hi == 0 {
			hi = math.MaxFloat64
		}
		rq := bleve.NewNumericRangeQuery(&lo, &hi)
		rq.SetField("duration")
		queries = append(queries, rq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

func addSorting(req *bleve.SearchRequest, params Params) {
	desc := params.SortOrder == "desc"
	field := ""
	switch params.SortBy {
	case "name":
		field = "display_name"
	case "recorded":
		field = "recorded_at"
	case "duration":
		field = "duration"
	default:
		req.SortBy([]string{"-_score"})
		return
	}
	if desc {
		field = "-" + field
	}
	req.SortBy([]string{field, "path"})
}

func extractFacets(res *bleve.SearchResult) Facets {
	var facets Facets
	if f, ok := res.Facets["genre"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Genres = append(facets.Genres, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	if f, ok := res.Facets["platform"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Platforms = append(facets.Platforms, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	return facets
}
