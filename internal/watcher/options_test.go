package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.True(t, opts.IgnoreHidden)
	assert.Equal(t, 200*time.Millisecond, opts.SettleDelay)
	assert.Contains(t, opts.IgnorePatterns, "*.part")
}

func TestOptions_CustomValues(t *testing.T) {
	opts := Options{
		IgnoreHidden:   false,
		SettleDelay:    50 * time.Millisecond,
		IgnorePatterns: []string{"*.bak"},
	}
	opts.setDefaults()

	assert.False(t, opts.IgnoreHidden)
	assert.Equal(t, 50*time.Millisecond, opts.SettleDelay)
	assert.Equal(t, []string{"*.bak"}, opts.IgnorePatterns)
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{Extensions: []string{".json"}}
	opts.setDefaults()

	tests := []struct {
		path   string
		ignore bool
	}{
		{"/inbox/backup.json", false},
		{"/inbox/BACKUP.JSON", false},
		{"/inbox/.backup.json", true},
		{"/inbox/backup.json.part", true},
		{"/inbox/backup.tmp", true},
		{"/inbox/notes.txt", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignore, opts.shouldIgnore(tt.path))
		})
	}
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "ready", EventReady.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "unknown", EventType(9).String())
}
