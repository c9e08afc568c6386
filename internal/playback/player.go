package playback

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/icberg-810202/tilecatread/internal/device"
	"github.com/icberg-810202/tilecatread/internal/domain"
)

// Player runs one splash-screen pick: it reads the user's settings and the
// device's book selection, asks Select for a quote, persists the advanced
// cursor and falls back to a default quote when there is nothing to show.
type Player struct {
	settings   *SettingsStore
	selections *device.SelectionStore
	logger     *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPlayer creates a Player. A nil rnd uses the global random source.
func NewPlayer(settings *SettingsStore, selections *device.SelectionStore, rnd *rand.Rand, logger *slog.Logger) *Player {
	return &Player{settings: settings, selections: selections, rnd: rnd, logger: logger}
}

// Next returns the quote to show for username on deviceID given books.
// An empty username always yields a default quote.
func (p *Player) Next(username, deviceID string, books []domain.Book) domain.SplashQuote {
	p.mu.Lock()
	defer p.mu.Unlock()

	if username == "" {
		return RandomDefault(p.rnd)
	}

	var picked Selection
	p.settings.Update(username, func(s *domain.PlaybackSettings) {
		picked = Select(SelectInput{
			Mode:            s.Mode,
			SelectedQuotes:  s.SelectedQuotes,
			Books:           books,
			SelectedBookIDs: p.selections.Get(deviceID).SelectedBookIDs,
			Cursor:          s.CurrentIndex,
			Rand:            p.rnd,
		})
		s.CurrentIndex = picked.NextCursor
	})

	if !picked.Found {
		p.logger.Debug("no personal quote available, using default", "username", username, "device_id", deviceID)
		return RandomDefault(p.rnd)
	}
	return picked.Candidate.Splash()
}
