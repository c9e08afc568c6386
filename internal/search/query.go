package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/icberg-810202/tilecatread/internal/normalize"
)

// DefaultLimit caps results when Params.Limit is unset.
const DefaultLimit = 20

// Params configures a search.
type Params struct {
	Username  string
	Query     string
	Limit     int
	Offset    int
	Highlight bool
}

// Result is a page of hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching quote.
type Hit struct {
	BookID     string            `json:"bookId"`
	QuoteID    string            `json:"quoteId"`
	Text       string            `json:"text"`
	Page       string            `json:"page,omitempty"`
	BookName   string            `json:"bookName"`
	Author     string            `json:"author"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search runs params against the index. Results are always restricted to
// params.Username.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "-created_at"})
	req.Fields = []string{"book_id", "quote_id", "text", "page", "book_name", "author"}
	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("text")
		req.Highlight.AddField("book_name")
	}

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
			BookID:   stringField(h.Fields, "book_id"),
			QuoteID:  stringField(h.Fields, "quote_id"),
			Text:     stringField(h.Fields, "text"),
			Page:     stringField(h.Fields, "page"),
			BookName: stringField(h.Fields, "book_name"),
			Author:   stringField(h.Fields, "author"),
			Score:    h.Score,
		}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string, len(h.Fragments))
			for field, frags := range h.Fragments {
				if len(frags) > 0 {
					hit.Highlights[field] = frags[0]
				}
			}
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

func stringField(fields map[string]any, name string) string {
	v, _ := fields[name].(string)
	return v
}

// buildQuery restricts to the user and matches the text in quote text,
// book name, author or an exact tag. Short queries skip fuzzy matching.
func buildQuery(params Params) query.Query {
	owner := bleve.NewTermQuery(params.Username)
	owner.SetField("username")

	q := strings.TrimSpace(params.Query)
	if q == "" {
		return owner
	}

	text := bleve.NewMatchQuery(q)
	text.SetField("text")
	text.SetBoost(3.0)

	book := bleve.NewMatchQuery(q)
	book.SetField("book_name")
	book.SetBoost(1.5)

	author := bleve.NewMatchQuery(q)
	author.SetField("author")

	tag := bleve.NewTermQuery(normalize.Fold(q))
	tag.SetField("tags")
	tag.SetBoost(2.0)

	matches := []query.Query{text, book, author, tag}
	if utf8.RuneCountInString(q) >= 4 && !strings.ContainsRune(q, ' ') {
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetField("text")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.5)
		matches = append(matches, fuzzy)
	}

	return bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery(matches...))
}
