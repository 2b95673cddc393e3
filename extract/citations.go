package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// inlineLinkRe matches Markdown inline links: [text](url)
var inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// convertToCitations rewrites inline Markdown links as numbered
// reference-style citations and appends the reference list:
//
//	"see [Go](https://go.dev)"  →  "see [Go][1]\n\n---\n[1]: https://go.dev"
//
// A URL linked more than once keeps its first number. Text without
// links passes through untouched.
func convertToCitations(markdown string) string {
	matches := inlineLinkRe.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return markdown
	}

	numberOf := make(map[string]int)
	var order []string

	var out strings.Builder
	prev := 0
	for _, m := range matches {
		// m holds offset pairs: full match, link text, link URL.
		text := markdown[m[2]:m[3]]
		url := markdown[m[4]:m[5]]

		n, seen := numberOf[url]
		if !seen {
			n = len(order) + 1
			numberOf[url] = n
			order = append(order, url)
		}

		out.WriteString(markdown[prev:m[0]])
		fmt.Fprintf(&out, "[%s][%d]", text, n)
		prev = m[1]
	}
	out.WriteString(markdown[prev:])

	out.WriteString("\n\n---")
	for i, url := range order {
		fmt.Fprintf(&out, "\n[%d]: %s", i+1, url)
	}
	return out.String()
}
