package service

import (
	"context"
	"slices"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/id"
	"github.com/icberg-810202/tilecatread/internal/normalize"
)

// QuoteInput is the content of a quote.
type QuoteInput struct {
	Text string   `json:"text" validate:"required,max=10000"`
	Page string   `json:"page" validate:"max=32"`
	Tags []string `json:"tags" validate:"max=50,dive,max=64"`
}

func (in *QuoteInput) normalize() {
	in.Text = normalize.Text(in.Text)
	in.Page = normalize.Text(in.Page)
	in.Tags = normalize.Tags(in.Tags)
}

// AddQuote appends a quote to one of the current user's books.
func (m *Manager) AddQuote(ctx context.Context, bookID string, in QuoteInput) (*domain.Quote, error) {
	username, err := m.sessionUser()
	if err != nil {
		return nil, err
	}
	in.normalize()

	var added domain.Quote
	_, err = m.mutate(ctx, username, func(doc *domain.Document) error {
		b := doc.Book(bookID)
		if b == nil {
			return domainerrors.NotFoundf("book %s not found", bookID)
		}
		if err := m.validator.Validate(in); err != nil {
			return err
		}
		quoteID, err := m.uniqueID(id.QuotePrefix, func(v string) bool { return b.FindQuote(v) >= 0 })
		if err != nil {
			return err
		}
		now := m.now().UTC()
		added = domain.Quote{
			ID:        quoteID,
			Text:      in.Text,
			Page:      in.Page,
			Tags:      in.Tags,
			CreatedAt: now,
			UpdatedAt: now,
		}
		b.Quotes = append(b.Quotes, added)
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("quote added", "username", username, "book_id", bookID, "quote_id", added.ID)
	return &added, nil
}

// UpdateQuote replaces the text, page and tags of a quote.
func (m *Manager) UpdateQuote(ctx context.Context, bookID, quoteID string, in QuoteInput) (*domain.Quote, error) {
	username, err := m.sessionUser()
	if err != nil {
		return nil, err
	}
	in.normalize()

	var updated domain.Quote
	_, err = m.mutate(ctx, username, func(doc *domain.Document) error {
		b := doc.Book(bookID)
		if b == nil {
			return domainerrors.NotFoundf("book %s not found", bookID)
		}
		q := b.Quote(quoteID)
		if q == nil {
			return domainerrors.NotFoundf("quote %s not found in book %s", quoteID, bookID)
		}
		if err := m.validator.Validate(in); err != nil {
			return err
		}
		now := m.now().UTC()
		q.Text = in.Text
		q.Page = in.Page
		q.Tags = in.Tags
		q.UpdatedAt = now
		b.UpdatedAt = now
		updated = *q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteQuote removes a quote from one of the current user's books.
func (m *Manager) DeleteQuote(ctx context.Context, bookID, quoteID string) error {
	username, err := m.sessionUser()
	if err != nil {
		return err
	}

	_, err = m.mutate(ctx, username, func(doc *domain.Document) error {
		b := doc.Book(bookID)
		if b == nil {
			return domainerrors.NotFoundf("book %s not found", bookID)
		}
		i := b.FindQuote(quoteID)
		if i < 0 {
			return domainerrors.NotFoundf("quote %s not found in book %s", quoteID, bookID)
		}
		b.Quotes = slices.Delete(b.Quotes, i, i+1)
		b.UpdatedAt = m.now().UTC()
		return nil
	})
	if err != nil {
		return err
	}

	// a deleted quote can no longer be played
	m.settings.Update(username, func(s *domain.PlaybackSettings) {
		ref := domain.QuoteRef{BookID: bookID, QuoteID: quoteID}
		if s.IsSelected(ref) {
			s.Toggle(ref)
		}
	})
	m.logger.Info("quote deleted", "username", username, "book_id", bookID, "quote_id", quoteID)
	return nil
}

// BookQuotes returns the quotes of one of the current user's books.
func (m *Manager) BookQuotes(ctx context.Context, bookID string) ([]domain.Quote, error) {
	books, err := m.UserBooks(ctx, "")
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(books, func(b domain.Book) bool { return b.ID == bookID })
	if i < 0 {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}
	return books[i].Quotes, nil
}
