// Package search provides full-text search over a user's quotes using Bleve.
// Quote text, book name and author are analysed with the CJK analyzer so both
// Chinese and Latin-script quotes match by word fragments; tags match
// exactly after case folding.
package search

import (
	"github.com/icberg-810202/tilecatread/internal/domain"
	"github.com/icberg-810202/tilecatread/internal/normalize"
)

// QuoteDocument is the indexed form of one quote. Book fields are
// denormalized so a single query covers quote and book text.
type QuoteDocument struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	BookID    string   `json:"book_id"`
	QuoteID   string   `json:"quote_id"`
	Text      string   `json:"text"`
	Page      string   `json:"page,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	BookName  string   `json:"book_name"`
	Author    string   `json:"author"`
	CreatedAt int64    `json:"created_at"`
}

// DocumentID is the index key for a quote. Quote ids are only unique within
// their book, so the key carries the whole path.
func DocumentID(username, bookID, quoteID string) string {
	return username + "/" + bookID + "/" + quoteID
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *QuoteDocument) ToMap() map[string]any {
	m := map[string]any{
		"username":   d.Username,
		"book_id":    d.BookID,
		"quote_id":   d.QuoteID,
		"text":       d.Text,
		"book_name":  d.BookName,
		"author":     d.Author,
		"created_at": d.CreatedAt,
	}
	if d.Page != "" {
		m["page"] = d.Page
	}
	if len(d.Tags) > 0 {
		folded := make([]string, len(d.Tags))
		for i, t := range d.Tags {
			folded[i] = normalize.Fold(t)
		}
		m["tags"] = folded
	}
	return m
}

// DocumentsFromBooks flattens books into one document per quote.
func DocumentsFromBooks(username string, books []domain.Book) []*QuoteDocument {
	var docs []*QuoteDocument
	for i := range books {
		b := &books[i]
		for _, q := range b.Quotes {
			docs = append(docs, &QuoteDocument{
				ID:        DocumentID(username, b.ID, q.ID),
				Username:  username,
				BookID:    b.ID,
				QuoteID:   q.ID,
				Text:      q.Text,
				Page:      q.Page,
				Tags:      q.Tags,
				BookName:  b.Name,
				Author:    b.Author,
				CreatedAt: q.CreatedAt.UnixMilli(),
			})
		}
	}
	return docs
}
