package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument_EmptyShape(t *testing.T) {
	doc := NewDocument("alice")

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.JSONEq(t, `{"username":"alice","books":[],"deviceSelections":{}}`, string(data))
	assert.False(t, doc.Registered())
}

func TestDocument_NormalizeFillsNilCollections(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"username":"bob","books":[{"id":"b1","name":"N","quotes":null}]}`), &doc))

	doc.Normalize()

	assert.NotNil(t, doc.DeviceSelections)
	assert.NotNil(t, doc.Books[0].Quotes)
}

func TestQuote_UnmarshalLegacyString(t *testing.T) {
	var b Book
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b1","name":"N","quotes":["plain text",{"id":"q1","text":"object"}]}`), &b))

	require.Len(t, b.Quotes, 2)
	assert.Equal(t, "plain text", b.Quotes[0].Text)
	assert.Empty(t, b.Quotes[0].ID)
	assert.Equal(t, []string{}, b.Quotes[0].Tags)
	assert.Equal(t, "q1", b.Quotes[1].ID)
}

func TestDocument_EnsureUniqueIDs_FillsMissing(t *testing.T) {
	doc := &Document{Books: []Book{
		{Name: "A", Quotes: []Quote{{Text: "x"}, {ID: "q-keep", Text: "y"}}},
		{ID: "b-keep", Name: "B"},
	}}
	n := 0
	gen := func(prefix string) (string, error) {
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}

	changed, err := doc.EnsureUniqueIDs(gen)
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, "book-1", doc.Books[0].ID)
	assert.Equal(t, "quote-2", doc.Books[0].Quotes[0].ID)
	assert.Equal(t, "q-keep", doc.Books[0].Quotes[1].ID)
	assert.Equal(t, "b-keep", doc.Books[1].ID)

	changed, err = doc.EnsureUniqueIDs(gen)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDocument_EnsureUniqueIDs_ReplacesDuplicates(t *testing.T) {
	doc := &Document{Books: []Book{
		{ID: "dup", Name: "A", Quotes: []Quote{{ID: "q", Text: "x"}, {ID: "q", Text: "y"}}},
		{ID: "dup", Name: "B", Quotes: []Quote{{ID: "q", Text: "z"}}},
		{ID: "book-2", Name: "C"},
	}}
	n := 0
	gen := func(prefix string) (string, error) {
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}

	changed, err := doc.EnsureUniqueIDs(gen)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, "dup", doc.Books[0].ID)
	assert.Equal(t, "q", doc.Books[0].Quotes[0].ID)
	assert.Equal(t, "quote-1", doc.Books[0].Quotes[1].ID)
	// book-2 is already taken by the third book
	assert.Equal(t, "book-3", doc.Books[1].ID)
	assert.Equal(t, "q", doc.Books[1].Quotes[0].ID, "quote ids only need to be unique within a book")
	assert.Equal(t, "book-2", doc.Books[2].ID)

	assert.Equal(t, 0, doc.FindBook("dup"))
	assert.Equal(t, 1, doc.FindBook("book-3"))

	changed, err = doc.EnsureUniqueIDs(gen)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDocument_FindBookAndQuote(t *testing.T) {
	doc := NewDocument("alice")
	doc.Books = append(doc.Books, Book{ID: "b1", Quotes: []Quote{{ID: "q1"}}})

	assert.Equal(t, 0, doc.FindBook("b1"))
	assert.Equal(t, -1, doc.FindBook("nope"))
	require.NotNil(t, doc.Book("b1"))
	assert.NotNil(t, doc.Book("b1").Quote("q1"))
	assert.Nil(t, doc.Book("b1").Quote("q2"))
	assert.Equal(t, 1, doc.QuoteCount())
}

func TestBook_Matches(t *testing.T) {
	b := Book{Name: "Meditations", Author: "Marcus Aurelius"}

	assert.True(t, b.Matches("medit"))
	assert.True(t, b.Matches("AURELIUS"))
	assert.True(t, b.Matches(""))
	assert.False(t, b.Matches("seneca"))
}

func TestNewDeviceSelection_Dedupes(t *testing.T) {
	now := time.Now()
	sel := NewDeviceSelection([]string{"b1", "", "b2", "b1"}, now)

	assert.Equal(t, []string{"b1", "b2"}, sel.SelectedBookIDs)
	assert.True(t, sel.Contains("b2"))
	assert.False(t, sel.Contains("b3"))
}
