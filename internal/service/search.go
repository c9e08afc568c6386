package service

import (
	"context"
	"strings"

	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/search"
)

// SearchQuotes runs a full-text search over the current user's quotes. The
// user's entries in the index are rebuilt from the store first, so results
// reflect changes made on other devices.
func (m *Manager) SearchQuotes(ctx context.Context, query string, limit int) (*search.Result, error) {
	username, err := m.sessionUser()
	if err != nil {
		return nil, err
	}
	if m.index == nil {
		return nil, domainerrors.NotReady("search index is not available")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainerrors.Validation("search query is required")
	}

	doc := m.fetch(ctx, username)
	if err := m.index.ReplaceUser(username, search.DocumentsFromBooks(username, doc.Books)); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "refresh search index")
	}

	return m.index.Search(ctx, search.Params{
		Username:  username,
		Query:     query,
		Limit:     limit,
		Highlight: true,
	})
}
