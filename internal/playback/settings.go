package playback

import (
	"encoding/json"
	"log/slog"
	"math"
	"sync"

	"github.com/icberg-810202/tilecatread/internal/cache"
	"github.com/icberg-810202/tilecatread/internal/domain"
)

const settingsKeyPrefix = "playback_settings:"

// storedSettings is the cached shape. Entries of selectedQuotes may be id
// refs or legacy index refs, and currentIndex may hold anything.
type storedSettings struct {
	Mode           string            `json:"mode"`
	SelectedQuotes []json.RawMessage `json:"selectedQuotes"`
	CurrentIndex   json.RawMessage   `json:"currentIndex"`
}

type storedRef struct {
	BookID     string `json:"bookId"`
	QuoteID    string `json:"quoteId"`
	BookIndex  *int   `json:"bookIndex"`
	QuoteIndex *int   `json:"quoteIndex"`
}

// SettingsStore keeps PlaybackSettings per username in the local cache.
type SettingsStore struct {
	cache  *cache.Cache
	logger *slog.Logger
	mu     sync.Mutex
}

// NewSettingsStore creates a store on c.
func NewSettingsStore(c *cache.Cache, logger *slog.Logger) *SettingsStore {
	return &SettingsStore{cache: c, logger: logger}
}

func settingsKey(username string) string {
	return settingsKeyPrefix + username
}

// Load returns username's settings, or the defaults when nothing usable is
// stored. Legacy index refs are returned in Legacy and never mixed into
// SelectedQuotes.
func (s *SettingsStore) Load(username string) *domain.PlaybackSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(username)
}

func (s *SettingsStore) load(username string) *domain.PlaybackSettings {
	var raw storedSettings
	if !s.cache.Load(settingsKey(username), &raw) {
		return domain.DefaultPlaybackSettings()
	}

	settings := domain.DefaultPlaybackSettings()
	if raw.Mode != "" {
		settings.Mode = domain.PlaybackMode(raw.Mode)
	}
	settings.CurrentIndex = parseCursor(raw.CurrentIndex)

	for _, item := range raw.SelectedQuotes {
		var ref storedRef
		if err := json.Unmarshal(item, &ref); err != nil {
			s.logger.Warn("dropping unreadable quote reference", "username", username, "error", err)
			continue
		}
		switch {
		case ref.BookID != "" && ref.QuoteID != "":
			settings.SelectedQuotes = append(settings.SelectedQuotes, domain.QuoteRef{BookID: ref.BookID, QuoteID: ref.QuoteID})
		case ref.BookIndex != nil && ref.QuoteIndex != nil:
			settings.Legacy = append(settings.Legacy, domain.LegacyQuoteRef{BookIndex: *ref.BookIndex, QuoteIndex: *ref.QuoteIndex})
		default:
			s.logger.Warn("dropping incomplete quote reference", "username", username, "ref", string(item))
		}
	}
	if len(settings.Legacy) > 0 {
		s.logger.Info("playback settings contain legacy index references", "username", username, "count", len(settings.Legacy))
	}
	return settings
}

// parseCursor accepts any non-negative integral JSON number. Everything else
// reads as 0.
func parseCursor(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// Save stores settings for username. Unmigrated legacy refs are written back
// after the id refs so they survive until migration.
func (s *SettingsStore) Save(username string, settings *domain.PlaybackSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(username, settings)
}

func (s *SettingsStore) save(username string, settings *domain.PlaybackSettings) {
	refs := make([]any, 0, len(settings.SelectedQuotes)+len(settings.Legacy))
	for _, r := range settings.SelectedQuotes {
		refs = append(refs, r)
	}
	for _, r := range settings.Legacy {
		refs = append(refs, r)
	}
	s.cache.Save(settingsKey(username), map[string]any{
		"mode":           settings.Mode,
		"selectedQuotes": refs,
		"currentIndex":   settings.CurrentIndex,
	})
}

// Update loads username's settings, applies fn and saves the result while
// holding the store lock.
func (s *SettingsStore) Update(username string, fn func(*domain.PlaybackSettings)) *domain.PlaybackSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.load(username)
	fn(settings)
	s.save(username, settings)
	return settings
}

// Reset removes username's settings.
func (s *SettingsStore) Reset(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(settingsKey(username))
}
