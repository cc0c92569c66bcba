package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for video documents.
//
// Dimension fields are indexed twice: verbatim under their own name for
// exact filters and facets, and together in "dimensions" for free text.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Full-text fields

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("display_name", nameFieldMapping)

	dimensionsFieldMapping := bleve.NewTextFieldMapping()
	dimensionsFieldMapping.Analyzer = simple.Name
	dimensionsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("dimensions", dimensionsFieldMapping)

	pathTextFieldMapping := bleve.NewTextFieldMapping()
	pathTextFieldMapping.Analyzer = simple.Name
	pathTextFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("path_text", pathTextFieldMapping)

	// Keyword fields (exact match, facetable)

	for _, field := range []string{"path", "genre", "subgenre", "platform", "title", "codec"} {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		kw.Store = true
		docMapping.AddFieldMappingsAt(field, kw)
	}

	underInfluence := bleve.NewBooleanFieldMapping()
	underInfluence.Store = true
	docMapping.AddFieldMappingsAt("under_influence", underInfluence)

	// Numeric fields (range queries, sorting)

	durationFieldMapping := bleve.NewNumericFieldMapping()
	durationFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("duration", durationFieldMapping)

	recordedFieldMapping := bleve.NewNumericFieldMapping()
	recordedFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("recorded_at", recordedFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
