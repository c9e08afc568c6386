// Package domain contains the entities of the quote journal: the per-user
// document, its books and quotes, device selections and playback settings.
package domain

import (
	"fmt"
	"time"

	"github.com/icberg-810202/tilecatread/internal/id"
)

// Document is one user's entire state. Remote stores treat it as an opaque
// JSON value keyed by Username and always read and write it whole.
type Document struct {
	Username         string                     `json:"username"`
	PasswordHash     string                     `json:"passwordHash,omitempty"`
	Books            []Book                     `json:"books"`
	DeviceSelections map[string]DeviceSelection `json:"deviceSelections"`
	CreatedAt        time.Time                  `json:"createdAt,omitzero"`
	LastUpdated      time.Time                  `json:"lastUpdated,omitzero"`
}

// NewDocument returns the empty-shaped document for username.
func NewDocument(username string) *Document {
	return &Document{
		Username:         username,
		Books:            []Book{},
		DeviceSelections: map[string]DeviceSelection{},
	}
}

// Registered reports whether the document belongs to a registered user
// rather than being the empty default shape.
func (d *Document) Registered() bool {
	return d != nil && d.PasswordHash != ""
}

// Normalize replaces nil collections with empty ones so the document always
// serializes with the full shape.
func (d *Document) Normalize() {
	if d.Books == nil {
		d.Books = []Book{}
	}
	if d.DeviceSelections == nil {
		d.DeviceSelections = map[string]DeviceSelection{}
	}
	for i := range d.Books {
		if d.Books[i].Quotes == nil {
			d.Books[i].Quotes = []Quote{}
		}
		for j := range d.Books[i].Quotes {
			if d.Books[i].Quotes[j].Tags == nil {
				d.Books[i].Quotes[j].Tags = []string{}
			}
		}
	}
}

// EnsureUniqueIDs gives a fresh id from gen to every book whose id is empty
// or repeats an earlier book's, and to every quote whose id is empty or
// repeats within its book. The first holder of an id keeps it. It reports
// whether anything changed.
func (d *Document) EnsureUniqueIDs(gen func(prefix string) (string, error)) (bool, error) {
	changed := false
	bookIDs := make(map[string]bool, len(d.Books))
	for _, b := range d.Books {
		bookIDs[b.ID] = false
	}
	for i := range d.Books {
		b := &d.Books[i]
		if seen, ok := bookIDs[b.ID]; b.ID == "" || (ok && seen) {
			v, err := freshID(gen, id.BookPrefix, bookIDs)
			if err != nil {
				return changed, fmt.Errorf("assign book id: %w", err)
			}
			b.ID = v
			changed = true
		}
		bookIDs[b.ID] = true

		quoteIDs := make(map[string]bool, len(b.Quotes))
		for _, q := range b.Quotes {
			quoteIDs[q.ID] = false
		}
		for j := range b.Quotes {
			q := &b.Quotes[j]
			if seen := quoteIDs[q.ID]; q.ID == "" || seen {
				v, err := freshID(gen, id.QuotePrefix, quoteIDs)
				if err != nil {
					return changed, fmt.Errorf("assign quote id: %w", err)
				}
				q.ID = v
				changed = true
			}
			quoteIDs[q.ID] = true
		}
	}
	return changed, nil
}

// freshID draws ids from gen until one is not a key of taken.
func freshID(gen func(prefix string) (string, error), prefix string, taken map[string]bool) (string, error) {
	for {
		v, err := gen(prefix)
		if err != nil {
			return "", err
		}
		if _, used := taken[v]; !used {
			return v, nil
		}
	}
}

// FindBook returns the index of the book with id, or -1.
func (d *Document) FindBook(id string) int {
	for i := range d.Books {
		if d.Books[i].ID == id {
			return i
		}
	}
	return -1
}

// Book returns a pointer to the book with id, or nil.
func (d *Document) Book(id string) *Book {
	if i := d.FindBook(id); i >= 0 {
		return &d.Books[i]
	}
	return nil
}

// Touch stamps LastUpdated.
func (d *Document) Touch(now time.Time) {
	d.LastUpdated = now
}

// QuoteCount returns the number of quotes across all books.
func (d *Document) QuoteCount() int {
	n := 0
	for i := range d.Books {
		n += len(d.Books[i].Quotes)
	}
	return n
}
