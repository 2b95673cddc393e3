package simhash

import (
	"strings"

	"golang.org/x/net/html"
)

// shingleSize is the n-gram width over the tag sequence. Trigrams keep
// local structure (list items, table rows) distinguishable while
// absorbing single-tag churn.
const shingleSize = 3

// FingerprintDOM fingerprints the tag structure of an HTML document,
// ignoring text content and attributes. Two renders of the same page
// hash close together even when timestamps, view counters or rotating
// content differ between fetches.
func FingerprintDOM(htmlStr string) uint64 {
	tags := tagSequence(htmlStr)
	switch {
	case len(tags) == 0:
		return 0
	case len(tags) < shingleSize:
		// Too few tags to shingle; hash the tag sequence directly.
		return Fingerprint(strings.Join(tags, " "))
	}
	return Fingerprint(strings.Join(makeShingles(tags, shingleSize), " "))
}

// tagSequence tokenizes HTML and returns element names in document
// order. Closing tags carry no extra structure and are skipped.
func tagSequence(htmlStr string) []string {
	z := html.NewTokenizer(strings.NewReader(htmlStr))
	var tags []string

	for {
		tok := z.Next()
		if tok == html.ErrorToken {
			return tags
		}
		if tok == html.StartTagToken || tok == html.SelfClosingTagToken {
			name, _ := z.TagName()
			tags = append(tags, string(name))
		}
	}
}

// makeShingles joins consecutive runs of n tokens into single tokens.
func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}

	out := make([]string, len(tokens)-n+1)
	for i := range out {
		out[i] = strings.Join(tokens[i:i+n], "_")
	}
	return out
}
