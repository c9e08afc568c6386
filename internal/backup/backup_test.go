package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/logger"
)

func TestFilename(t *testing.T) {
	at := time.UnixMilli(1717000000123)
	assert.Equal(t, "tilecatread_backup_alice_1717000000123.json", Filename("alice", at))
	assert.True(t, IsBackupFile(Filename("alice", at)))
	assert.False(t, IsBackupFile("notes.json"))
}

func TestNewEnvelope_DropsPasswordHash(t *testing.T) {
	doc := currentDoc()
	env := NewEnvelope(doc, t1)

	assert.Equal(t, "alice", env.Username)
	assert.Equal(t, FormatVersion, env.Version)
	assert.Empty(t, env.Data.PasswordHash)
	assert.Equal(t, "hash", doc.PasswordHash, "source document is not modified")
	assert.Equal(t, Counts{Books: 2, Quotes: 0, Devices: 1}, env.Counts)
}

func TestEncodeParse_RoundTrip(t *testing.T) {
	doc := currentDoc()
	doc.Books[0].Quotes = []domain.Quote{{ID: "q1", Text: "Hello", Tags: []string{}}}

	data, err := Encode(NewEnvelope(doc, t1))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"exportDate": "2024-01-01T01:00:00Z"`)

	env, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "alice", env.Username)
	assert.True(t, env.ExportDate.Equal(t1))
	require.Len(t, env.Data.Books, 2)
	assert.Equal(t, "Hello", env.Data.Books[0].Quotes[0].Text)
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "<html>"},
		{"missing username", `{"data": {"books": []}}`},
		{"blank username", `{"username": "  ", "data": {"books": []}}`},
		{"missing data", `{"username": "alice"}`},
		{"null data", `{"username": "alice", "data": null}`},
		{"future version", `{"version": "9", "username": "alice", "data": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrFormat)
		})
	}
}

func TestParse_AcceptsLegacyExport(t *testing.T) {
	// early exports had no version, free-form dates and string quotes
	payload := `{
		"username": "alice",
		"exportDate": "yesterday",
		"data": {"books": [{"name": "Old", "author": "A", "quotes": ["first", {"text": "second"}]}]}
	}`

	env, err := Parse([]byte(payload))
	require.NoError(t, err)
	assert.True(t, env.ExportDate.IsZero())
	require.Len(t, env.Data.Books, 1)
	assert.Equal(t, "first", env.Data.Books[0].Quotes[0].Text)
	assert.Equal(t, []string{}, env.Data.Books[0].Quotes[1].Tags)
	assert.NotNil(t, env.Data.DeviceSelections)
}

func TestDir_WriteListReadDelete(t *testing.T) {
	dir := NewDir(filepath.Join(t.TempDir(), "exports"), logger.Discard())

	list, err := dir.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	path, err := dir.Write(NewEnvelope(currentDoc(), t1), t1)
	require.NoError(t, err)
	assert.Equal(t, Filename("alice", t1), filepath.Base(path))

	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir.Path(), "notes.json"), []byte("{}"), 0o600))

	list, err = dir.List()
	require.NoError(t, err)
	require.Len(t, list, 1)

	env, err := dir.Read(list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", env.Username)

	require.NoError(t, dir.Delete(list[0].ID))
	assert.ErrorIs(t, dir.Delete(list[0].ID), ErrBackupNotFound)
	_, err = dir.Read(list[0].ID)
	assert.ErrorIs(t, err, ErrBackupNotFound)
}
