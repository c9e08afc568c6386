package playback

import (
	"github.com/icberg-810202/tilecatread/internal/domain"
)

// MigrationResult counts what MigrateLegacy did.
type MigrationResult struct {
	Migrated int `json:"migrated"`
	Dropped  int `json:"dropped"`
}

// MigrateLegacy resolves settings.Legacy index refs against books into id
// refs and clears Legacy. Refs that point nowhere, or whose quote is already
// selected, are dropped. Single mode keeps at most one selection.
func MigrateLegacy(settings *domain.PlaybackSettings, books []domain.Book) MigrationResult {
	var res MigrationResult
	for _, legacy := range settings.Legacy {
		ref, ok := resolveIndex(books, legacy)
		if !ok || settings.IsSelected(ref) {
			res.Dropped++
			continue
		}
		settings.SelectedQuotes = append(settings.SelectedQuotes, ref)
		res.Migrated++
	}
	settings.Legacy = nil

	if settings.Mode == domain.ModeSingle && len(settings.SelectedQuotes) > 1 {
		res.Dropped += len(settings.SelectedQuotes) - 1
		res.Migrated -= min(res.Migrated, len(settings.SelectedQuotes)-1)
		settings.SelectedQuotes = settings.SelectedQuotes[:1:1]
	}
	return res
}

func resolveIndex(books []domain.Book, legacy domain.LegacyQuoteRef) (domain.QuoteRef, bool) {
	if legacy.BookIndex < 0 || legacy.BookIndex >= len(books) {
		return domain.QuoteRef{}, false
	}
	b := books[legacy.BookIndex]
	if legacy.QuoteIndex < 0 || legacy.QuoteIndex >= len(b.Quotes) {
		return domain.QuoteRef{}, false
	}
	q := b.Quotes[legacy.QuoteIndex]
	if b.ID == "" || q.ID == "" {
		return domain.QuoteRef{}, false
	}
	return domain.QuoteRef{BookID: b.ID, QuoteID: q.ID}, true
}
