package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Hello  ", "Hello"},
		{"", ""},
		{"if x<y and y>z then x<z", "if x<y and y>z then x<z"},
		{"Use <b>bold</b> wisely", "Use <b>bold</b> wisely"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"a\x00b", "ab"},
		{"two  spaces\ninside", "two  spaces\ninside"},
		// e + combining acute composes to a single rune
		{"café", "café"},
		{"未经审视的人生不值得度过。", "未经审视的人生不值得度过。"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTags_KeepOrderAndSpelling(t *testing.T) {
	got := Tags([]string{" stoic ", "Go", "", "go", "GO", "<i>virtue</i>"})
	assert.Equal(t, []string{"stoic", "Go", "go", "GO", "<i>virtue</i>"}, got)
}

func TestTags_NeverNil(t *testing.T) {
	assert.NotNil(t, Tags(nil))
	assert.Empty(t, Tags([]string{"  ", "\x00"}))
}

func TestFold(t *testing.T) {
	assert.Equal(t, Fold("STOIC"), Fold("stoic"))
	assert.Equal(t, Fold("Straße"), Fold("STRASSE"))
}
