package domain

import "slices"

// PlaybackMode controls how the splash screen picks a quote.
type PlaybackMode string

// Playback modes.
const (
	ModeSequential PlaybackMode = "sequential"
	ModeRandom     PlaybackMode = "random"
	ModeSingle     PlaybackMode = "single"
)

// ParseMode validates a mode name.
func ParseMode(s string) (PlaybackMode, bool) {
	switch m := PlaybackMode(s); m {
	case ModeSequential, ModeRandom, ModeSingle:
		return m, true
	default:
		return "", false
	}
}

// QuoteRef addresses a quote by stable ids.
type QuoteRef struct {
	BookID  string `json:"bookId"`
	QuoteID string `json:"quoteId"`
}

// LegacyQuoteRef addresses a quote by position. Positions shift when books
// or quotes are deleted, so these refs are only read for migration.
type LegacyQuoteRef struct {
	BookIndex  int `json:"bookIndex"`
	QuoteIndex int `json:"quoteIndex"`
}

// PlaybackSettings is the per-user splash configuration kept on the device.
type PlaybackSettings struct {
	Mode           PlaybackMode `json:"mode"`
	SelectedQuotes []QuoteRef   `json:"selectedQuotes"`
	CurrentIndex   int          `json:"currentIndex"`

	// Legacy holds positional refs found in stored settings that have not
	// been migrated yet. It is never persisted back.
	Legacy []LegacyQuoteRef `json:"-"`
}

// DefaultPlaybackSettings returns the settings used when none are stored.
func DefaultPlaybackSettings() *PlaybackSettings {
	return &PlaybackSettings{
		Mode:           ModeSequential,
		SelectedQuotes: []QuoteRef{},
	}
}

// IsSelected reports whether ref is in the selection.
func (p *PlaybackSettings) IsSelected(ref QuoteRef) bool {
	for _, r := range p.SelectedQuotes {
		if r == ref {
			return true
		}
	}
	return false
}

// SetMode switches mode. Switching to sequential resets the cursor;
// switching to single keeps only the first selected quote.
func (p *PlaybackSettings) SetMode(mode PlaybackMode) {
	p.Mode = mode
	switch mode {
	case ModeSequential:
		p.CurrentIndex = 0
	case ModeSingle:
		if len(p.SelectedQuotes) > 1 {
			p.SelectedQuotes = p.SelectedQuotes[:1:1]
		}
	}
}

// Toggle adds ref if absent and removes it if present. In single mode an
// added ref replaces the selection. It reports whether ref is selected
// afterwards.
func (p *PlaybackSettings) Toggle(ref QuoteRef) bool {
	for i, r := range p.SelectedQuotes {
		if r == ref {
			p.SelectedQuotes = append(p.SelectedQuotes[:i:i], p.SelectedQuotes[i+1:]...)
			return false
		}
	}
	if p.Mode == ModeSingle {
		p.SelectedQuotes = []QuoteRef{ref}
	} else {
		p.SelectedQuotes = append(p.SelectedQuotes, ref)
	}
	return true
}

// DeselectBook removes every selected ref into bookID and reports how many
// were removed.
func (p *PlaybackSettings) DeselectBook(bookID string) int {
	before := len(p.SelectedQuotes)
	p.SelectedQuotes = slices.DeleteFunc(p.SelectedQuotes, func(r QuoteRef) bool { return r.BookID == bookID })
	return before - len(p.SelectedQuotes)
}

// DefaultQuote is a built-in splash quote shown when the user has nothing
// selected.
type DefaultQuote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// SplashQuote is what the splash screen renders.
type SplashQuote struct {
	Text     string `json:"text"`
	Page     string `json:"page,omitempty"`
	BookID   string `json:"bookId,omitempty"`
	QuoteID  string `json:"quoteId,omitempty"`
	BookName string `json:"bookName,omitempty"`
	Author   string `json:"author"`
	Default  bool   `json:"default"`
}
