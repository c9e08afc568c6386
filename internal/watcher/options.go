package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures a Watcher.
type Options struct {
	// Extensions limits events to files with these suffixes, e.g. ".json".
	// Empty accepts every file.
	Extensions     []string
	IgnorePatterns []string
	SettleDelay    time.Duration
	IgnoreHidden   bool
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 200 * time.Millisecond
	}

	// nil means "use defaults"; an explicit empty slice keeps IgnoreHidden as given
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			"*.tmp",
			"*.part",
			"*.crdownload",
			"~*",
		}
		o.IgnoreHidden = true
	}
}

// shouldIgnore reports whether path is filtered out.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if o.IgnoreHidden && strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	if len(o.Extensions) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range o.Extensions {
		if ext == strings.ToLower(want) {
			return false
		}
	}
	return true
}
