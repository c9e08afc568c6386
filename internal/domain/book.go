package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultAuthor is stored when a book is added without an author.
const DefaultAuthor = "Unknown author"

// Book groups quotes taken from one book. Quotes are owned by the book and
// are removed with it.
type Book struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Author    string    `json:"author"`
	Quotes    []Quote   `json:"quotes"`
	Selected  bool      `json:"selected"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Quote is a passage recorded from a book.
type Quote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Page      string    `json:"page"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// UnmarshalJSON accepts both the object form and the bare string form that
// early documents used for quotes.
func (q *Quote) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*q = Quote{Text: text, Tags: []string{}}
		return nil
	}

	type plain Quote
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = Quote(p)
	if q.Tags == nil {
		q.Tags = []string{}
	}
	return nil
}

// FindQuote returns the index of the quote with id, or -1.
func (b *Book) FindQuote(id string) int {
	for i := range b.Quotes {
		if b.Quotes[i].ID == id {
			return i
		}
	}
	return -1
}

// Quote returns a pointer to the quote with id, or nil.
func (b *Book) Quote(id string) *Quote {
	if i := b.FindQuote(id); i >= 0 {
		return &b.Quotes[i]
	}
	return nil
}

// Matches reports whether query occurs in the book's name or author,
// ignoring case. An empty query matches everything.
func (b *Book) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Name), q) || strings.Contains(strings.ToLower(b.Author), q)
}
