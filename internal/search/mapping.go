package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for quote documents.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = cjk.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	textField := func(highlight bool) *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = cjk.AnalyzerName
		f.Store = true
		f.IncludeTermVectors = highlight
		return f
	}
	docMapping.AddFieldMappingsAt("text", textField(true))
	docMapping.AddFieldMappingsAt("book_name", textField(true))
	docMapping.AddFieldMappingsAt("author", textField(false))

	keywordField := func(store bool) *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = store
		return f
	}
	docMapping.AddFieldMappingsAt("username", keywordField(false))
	docMapping.AddFieldMappingsAt("book_id", keywordField(true))
	docMapping.AddFieldMappingsAt("quote_id", keywordField(true))
	docMapping.AddFieldMappingsAt("page", keywordField(true))
	docMapping.AddFieldMappingsAt("tags", keywordField(true))

	created := bleve.NewNumericFieldMapping()
	created.Store = true
	docMapping.AddFieldMappingsAt("created_at", created)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
