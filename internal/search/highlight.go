package search

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	fragmentPolicyOnce sync.Once
	fragmentPolicy     *bluemonday.Policy
)

// markPolicy keeps only the <mark> elements Bleve wraps around matches.
func markPolicy() *bluemonday.Policy {
	fragmentPolicyOnce.Do(func() {
		fragmentPolicy = bluemonday.NewPolicy()
		fragmentPolicy.AllowElements("mark")
	})
	return fragmentPolicy
}

// PlainHighlight turns an HTML highlight fragment into plain text, with each
// match wrapped in before and after. Quote text in fragments is escaped by
// Bleve, so literal angle brackets in a quote come back unchanged.
func PlainHighlight(fragment, before, after string) string {
	if fragment == "" {
		return ""
	}
	clean := markPolicy().Sanitize(fragment)
	clean = strings.NewReplacer("<mark>", before, "</mark>", after).Replace(clean)
	return html.UnescapeString(clean)
}
