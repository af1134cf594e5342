package index

import (
	"strings"
	"unicode/utf8"
)

const snippetRadius = 60

// ftsQuery turns free text into an FTS5 query: every term is quoted, so
// ticket keys like T-101 are not read as operators, and prefix-matched.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}

// snippetAround cuts body down to the text surrounding the first
// case-insensitive occurrence of query. Without a match the head of body
// is returned.
func snippetAround(body, query string) string {
	lower := strings.ToLower(body)
	at := -1
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" && len(lower) == len(body) {
		at = strings.Index(lower, q)
	}
	if at < 0 {
		return clip(body, 0, 2*snippetRadius)
	}
	return clip(body, at-snippetRadius, at+len(query)+snippetRadius)
}

// clip returns body[from:to] widened to rune boundaries, with ellipses
// where text was cut.
func clip(body string, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(body) {
		to = len(body)
	}
	for from > 0 && !utf8.RuneStart(body[from]) {
		from--
	}
	for to < len(body) && !utf8.RuneStart(body[to]) {
		to++
	}
	out := strings.TrimSpace(body[from:to])
	if from > 0 {
		out = "..." + out
	}
	if to < len(body) {
		out += "..."
	}
	return out
}
