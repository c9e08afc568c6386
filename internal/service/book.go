package service

import (
	"context"
	"slices"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/id"
	"github.com/icberg-810202/tilecatread/internal/normalize"
)

// BookInput describes a new book.
type BookInput struct {
	Name   string `json:"name" validate:"required,max=200"`
	Author string `json:"author" validate:"max=200"`
}

// BookPatch changes some fields of a book. Nil fields are left alone.
type BookPatch struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Author   *string `json:"author,omitempty" validate:"omitempty,max=200"`
	Selected *bool   `json:"selected,omitempty"`
}

// AddBook appends a book with no quotes to userID's document. An empty
// userID means the current user.
func (m *Manager) AddBook(ctx context.Context, userID string, in BookInput) (*domain.Book, error) {
	username, err := m.targetUser(userID)
	if err != nil {
		return nil, err
	}
	in.Name = normalize.Text(in.Name)
	in.Author = normalize.Text(in.Author)
	if err := m.validator.Validate(in); err != nil {
		return nil, err
	}
	if in.Author == "" {
		in.Author = domain.DefaultAuthor
	}

	var added domain.Book
	_, err = m.mutate(ctx, username, func(doc *domain.Document) error {
		bookID, err := m.uniqueID(id.BookPrefix, func(v string) bool { return doc.FindBook(v) >= 0 })
		if err != nil {
			return err
		}
		now := m.now().UTC()
		added = domain.Book{
			ID:        bookID,
			Name:      in.Name,
			Author:    in.Author,
			Quotes:    []domain.Quote{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc.Books = append(doc.Books, added)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("book added", "username", username, "book_id", added.ID)
	return &added, nil
}

// UpdateBook applies patch to the current user's book.
func (m *Manager) UpdateBook(ctx context.Context, bookID string, patch BookPatch) (*domain.Book, error) {
	username, err := m.sessionUser()
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		v := normalize.Text(*patch.Name)
		patch.Name = &v
	}
	if patch.Author != nil {
		v := normalize.Text(*patch.Author)
		patch.Author = &v
	}
	if err := m.validator.Validate(patch); err != nil {
		return nil, err
	}

	var updated domain.Book
	_, err = m.mutate(ctx, username, func(doc *domain.Document) error {
		b := doc.Book(bookID)
		if b == nil {
			return domainerrors.NotFoundf("book %s not found", bookID)
		}
		if patch.Name != nil {
			b.Name = *patch.Name
		}
		if patch.Author != nil {
			b.Author = *patch.Author
			if b.Author == "" {
				b.Author = domain.DefaultAuthor
			}
		}
		if patch.Selected != nil {
			b.Selected = *patch.Selected
		}
		b.UpdatedAt = m.now().UTC()
		updated = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBook removes a book and its quotes from the current user's
// document. The book is also dropped from every device selection and its
// quotes from the playback selection.
func (m *Manager) DeleteBook(ctx context.Context, bookID string) error {
	username, err := m.sessionUser()
	if err != nil {
		return err
	}

	doc, err := m.mutate(ctx, username, func(doc *domain.Document) error {
		i := doc.FindBook(bookID)
		if i < 0 {
			return domainerrors.NotFoundf("book %s not found", bookID)
		}
		doc.Books = slices.Delete(doc.Books, i, i+1)
		for deviceID, sel := range doc.DeviceSelections {
			if sel.Contains(bookID) {
				doc.DeviceSelections[deviceID] = domain.NewDeviceSelection(
					slices.DeleteFunc(slices.Clone(sel.SelectedBookIDs), func(v string) bool { return v == bookID }),
					sel.UpdatedAt,
				)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.mirrorSelection(doc)
	m.settings.Update(username, func(s *domain.PlaybackSettings) {
		s.DeselectBook(bookID)
	})
	m.logger.Info("book deleted", "username", username, "book_id", bookID)
	return nil
}

// UserBooks returns userID's books, or the current user's when userID is
// empty. A store outage yields an empty list.
func (m *Manager) UserBooks(ctx context.Context, userID string) ([]domain.Book, error) {
	username, err := m.targetUser(userID)
	if err != nil {
		return nil, err
	}
	return m.fetch(ctx, username).Books, nil
}

// SearchBooks returns the current user's books whose name or author contains
// query, ignoring case.
func (m *Manager) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	books, err := m.UserBooks(ctx, "")
	if err != nil {
		return nil, err
	}
	out := []domain.Book{}
	for i := range books {
		if books[i].Matches(query) {
			out = append(out, books[i])
		}
	}
	return out, nil
}
