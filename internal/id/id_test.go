package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		v, err := Generate("quote")
		require.NoError(t, err)
		assert.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
	assert.Len(t, seen, 1000)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{BookPrefix, QuotePrefix} {
		t.Run(prefix, func(t *testing.T) {
			v, err := Generate(prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(v, prefix+"-"))
			tail := strings.TrimPrefix(v, prefix+"-")
			assert.Len(t, tail, 21)
			for _, c := range tail {
				assert.True(t,
					(c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
						(c >= '0' && c <= '9') || c == '_' || c == '-',
					"character %c should be URL-safe", c)
			}
		})
	}
}

func TestNewDeviceID(t *testing.T) {
	a := NewDeviceID()
	b := NewDeviceID()

	assert.True(t, strings.HasPrefix(a, "device-"))
	assert.Len(t, a, len("device-")+36)
	assert.NotEqual(t, a, b)
}
