package retriever

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var strictPolicy = bluemonday.StrictPolicy()

// plainText strips markup from provider snippets (SerpAPI and DuckDuckGo
// return <b> highlights and entities) and collapses whitespace.
func plainText(s string) string {
	if s == "" {
		return ""
	}
	return collapseWhitespace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
