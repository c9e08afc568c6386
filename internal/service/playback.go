package service

import (
	"context"

	"github.com/icberg-810202/tilecatread/internal/cache"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/playback"
)

// PlaybackSettings returns the current user's splash settings.
func (m *Manager) PlaybackSettings(ctx context.Context) (*domain.PlaybackSettings, error) {
	username, err := m.sessionUser()
	if err != nil {
		return nil, err
	}
	return m.settings.Load(username), nil
}

// SetPlaybackMode switches the current user's splash mode.
func (m *Manager) SetPlaybackMode(ctx context.Context, mode string) (*domain.PlaybackSettings, error) {
	username, err := m.sessionUser()
	if err != nil {
		return nil, err
	}
	parsed, ok := domain.ParseMode(mode)
	if !ok {
		return nil, domainerrors.Validationf("unknown playback mode %q", mode)
	}
	return m.settings.Update(username, func(s *domain.PlaybackSettings) {
		s.SetMode(parsed)
	}), nil
}

// ToggleQuoteSelection adds the quote to the splash selection, or removes it
// when already selected. Adding requires the quote to exist.
func (m *Manager) ToggleQuoteSelection(ctx context.Context, bookID, quoteID string) (bool, error) {
	username, err := m.sessionUser()
	if err != nil {
		return false, err
	}
	ref := domain.QuoteRef{BookID: bookID, QuoteID: quoteID}

	if !m.settings.Load(username).IsSelected(ref) {
		doc := m.fetch(ctx, username)
		b := doc.Book(bookID)
		if b == nil || b.Quote(quoteID) == nil {
			return false, domainerrors.NotFoundf("quote %s not found in book %s", quoteID, bookID)
		}
	}

	var selected bool
	m.settings.Update(username, func(s *domain.PlaybackSettings) {
		selected = s.Toggle(ref)
	})
	return selected, nil
}

// MigratePlaybackSettings converts the current user's positional quote refs
// into id refs against the books as they are now.
func (m *Manager) MigratePlaybackSettings(ctx context.Context) (playback.MigrationResult, error) {
	username, err := m.sessionUser()
	if err != nil {
		return playback.MigrationResult{}, err
	}
	if len(m.settings.Load(username).Legacy) == 0 {
		return playback.MigrationResult{}, nil
	}

	books := m.fetch(ctx, username).Books
	var res playback.MigrationResult
	m.settings.Update(username, func(s *domain.PlaybackSettings) {
		res = playback.MigrateLegacy(s, books)
	})
	m.logger.Info("playback settings migrated",
		"username", username,
		"migrated", res.Migrated,
		"dropped", res.Dropped)
	return res, nil
}

// Splash picks the quote to show on this device. It works without a
// session by falling back to the last user who logged in, and yields a
// built-in quote when there is no user or nothing to show.
func (m *Manager) Splash(ctx context.Context) (domain.SplashQuote, error) {
	if err := m.ready(); err != nil {
		return domain.SplashQuote{}, err
	}

	username := m.CurrentUser()
	if username == "" {
		m.cache.Load(cache.KeyLastLoginUser, &username)
	}

	var books []domain.Book
	if username != "" {
		if cached, ok := m.cachedBooks(username); ok {
			books = cached
		} else {
			books = m.fetch(ctx, username).Books
		}
	}
	return m.player.Next(username, m.DeviceID(), books), nil
}
