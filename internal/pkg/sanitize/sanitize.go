// Package sanitize cleans free-text user input before it is stored or sent upstream.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and HTML-escapes what is left.
var strict = bluemonday.StrictPolicy()

// Quotes are only dangerous inside attributes, and the output never lands in one.
var quotes = strings.NewReplacer("&#39;", "'", "&#34;", `"`)

// Text strips markup from s and escapes &, < and >.
func Text(s string) string {
	return quotes.Replace(strict.Sanitize(s))
}

// Trimmed is Text followed by whitespace trimming.
func Trimmed(s string) string {
	return strings.TrimSpace(Text(s))
}
