package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icberg-810202/tilecatread/internal/domain"
)

func TestGroupByAuthor(t *testing.T) {
	groups := groupByAuthor([]domain.DefaultQuote{
		{Text: "a1", Author: "A"},
		{Text: "b1", Author: "B"},
		{Text: "a2", Author: "A"},
	})

	assert.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].author)
	assert.Equal(t, []string{"a1", "a2"}, groups[0].texts)
	assert.Equal(t, []string{"b1"}, groups[1].texts)
}
