package extract

import (
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the least TextContent (in bytes) readability
// must produce before its result is trusted. Shorter output usually
// means the algorithm latched onto a menu or a cookie banner.
const minContentLength = 50

// mainContent runs Mozilla Readability over rawHTML and reports
// whether its output passed validation. On any failure the raw markup
// comes back wrapped in an Article, so callers always have content to
// work with.
func mainContent(rawHTML string, sourceURL string) (readability.Article, bool) {
	article, err := readable(rawHTML, sourceURL)
	if err != nil {
		slog.Warn("readability fell back to raw HTML", "url", sourceURL, "reason", err)
		return readability.Article{
			Content: rawHTML,
			// Imperfect, but downstream must never see empty text.
			TextContent: rawHTML,
		}, false
	}
	return article, true
}

// readable is the failable inner step: parse the URL, run the
// algorithm, reject output below minContentLength.
func readable(rawHTML, sourceURL string) (readability.Article, error) {
	u, err := nurl.Parse(sourceURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("parse url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		return readability.Article{}, fmt.Errorf("extract: %w", err)
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		return readability.Article{}, fmt.Errorf("only %d chars extracted", len(article.TextContent))
	}
	return article, nil
}
