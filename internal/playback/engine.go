// Package playback decides which quote the splash screen shows and keeps the
// per-user playback settings that drive that decision.
package playback

import (
	"math/rand/v2"

	"github.com/icberg-810202/tilecatread/internal/domain"
)

// Candidate is a quote eligible for display together with its book.
type Candidate struct {
	BookID   string
	BookName string
	Author   string
	Quote    domain.Quote
}

// Splash converts the candidate to what the splash screen renders.
func (c Candidate) Splash() domain.SplashQuote {
	return domain.SplashQuote{
		Text:     c.Quote.Text,
		Page:     c.Quote.Page,
		BookID:   c.BookID,
		QuoteID:  c.Quote.ID,
		BookName: c.BookName,
		Author:   c.Author,
	}
}

// SelectInput is everything Select looks at.
type SelectInput struct {
	Mode            domain.PlaybackMode
	SelectedQuotes  []domain.QuoteRef
	Books           []domain.Book
	SelectedBookIDs []string
	Cursor          int

	// Rand picks random-mode candidates. Nil uses the global source.
	Rand *rand.Rand
}

// Selection is the result of Select. When Found is false the caller shows a
// built-in default quote instead.
type Selection struct {
	Found      bool
	Candidate  Candidate
	Index      int
	Candidates int

	// NextCursor is the cursor to persist. It only moves in sequential mode.
	NextCursor int
}

// Candidates builds the ordered candidate list. Explicit quote references
// win; they are resolved in stored order and unresolvable ones are skipped.
// Without references every quote of every selected book is a candidate, in
// book order then quote order.
func Candidates(books []domain.Book, refs []domain.QuoteRef, selectedBookIDs []string) []Candidate {
	if len(refs) > 0 {
		out := make([]Candidate, 0, len(refs))
		for _, ref := range refs {
			if c, ok := resolve(books, ref); ok {
				out = append(out, c)
			}
		}
		return out
	}

	if len(selectedBookIDs) == 0 {
		return nil
	}
	selected := make(map[string]struct{}, len(selectedBookIDs))
	for _, id := range selectedBookIDs {
		selected[id] = struct{}{}
	}

	var out []Candidate
	for i := range books {
		b := &books[i]
		if _, ok := selected[b.ID]; !ok {
			continue
		}
		for _, q := range b.Quotes {
			out = append(out, candidateOf(b, q))
		}
	}
	return out
}

func resolve(books []domain.Book, ref domain.QuoteRef) (Candidate, bool) {
	for i := range books {
		b := &books[i]
		if b.ID != ref.BookID {
			continue
		}
		if q := b.Quote(ref.QuoteID); q != nil {
			return candidateOf(b, *q), true
		}
		return Candidate{}, false
	}
	return Candidate{}, false
}

func candidateOf(b *domain.Book, q domain.Quote) Candidate {
	return Candidate{BookID: b.ID, BookName: b.Name, Author: b.Author, Quote: q}
}

// ClampCursor maps cursor into [0, n). Anything out of range becomes 0.
func ClampCursor(cursor, n int) int {
	if n <= 0 || cursor < 0 || cursor >= n {
		return 0
	}
	return cursor
}

// Select picks the quote to display. It has no side effects; in sequential
// mode the caller persists NextCursor.
func Select(in SelectInput) Selection {
	candidates := Candidates(in.Books, in.SelectedQuotes, in.SelectedBookIDs)
	n := len(candidates)
	if n == 0 {
		return Selection{NextCursor: in.Cursor}
	}

	sel := Selection{Found: true, Candidates: n, NextCursor: in.Cursor}
	switch in.Mode {
	case domain.ModeSequential:
		cursor := ClampCursor(in.Cursor, n)
		sel.Index = cursor
		sel.NextCursor = (cursor + 1) % n
	case domain.ModeRandom:
		if in.Rand != nil {
			sel.Index = in.Rand.IntN(n)
		} else {
			sel.Index = rand.IntN(n)
		}
	default:
		// single, and any unrecognised mode, always shows the first candidate
		sel.Index = 0
	}
	sel.Candidate = candidates[sel.Index]
	return sel
}
