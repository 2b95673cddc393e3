package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"golang.org/x/net/html"
)

// snippetLength bounds the snippet in characters (runes, not bytes).
const snippetLength = 200

// maxImages caps how many image URLs are extracted per page.
const maxImages = 5

// Content is the structured extraction of one fetched page.
type Content struct {
	// Title is the page title, or "" when the page has none.
	Title string

	// Snippet is the first snippetLength characters of FullText,
	// with "..." appended when truncated.
	Snippet string

	// FullText is the visible page text: scripts, styles and head
	// content excluded, whitespace collapsed to single spaces.
	FullText string

	// Images holds up to maxImages absolute image URLs in document
	// order, deduplicated, with vector art and page furniture
	// (.svg, logo, icon) filtered out. Never nil.
	Images []string
}

// Extractor turns raw page markup into structured content. The
// Markdown converter is created once and reused across all requests
// (goroutine-safe).
type Extractor struct {
	mdConverter *converter.Converter
}

// New initialises an Extractor with a pre-configured Markdown converter.
func New() *Extractor {
	return &Extractor{
		mdConverter: newMarkdownConverter(),
	}
}

// Extract pulls the title, snippet, full text and image URLs out of
// raw markup. It never fails: malformed markup degrades to whatever
// the tokenizer can salvage, and empty input yields empty content.
func (e *Extractor) Extract(rawHTML, sourceURL string) *Content {
	content := &Content{Images: []string{}}
	if strings.TrimSpace(rawHTML) == "" {
		return content
	}

	content.FullText = visibleText(rawHTML)
	content.Snippet = snippet(content.FullText)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return content
	}

	content.Title = strings.TrimSpace(doc.Find("title").First().Text())
	content.Images = extractImages(doc, sourceURL)

	meta := ParseMeta(rawHTML)
	if content.Title == "" {
		content.Title = meta.Title
	}
	// A script-built shell can have no visible text yet still describe
	// itself; a meta description beats an empty snippet.
	if content.FullText == "" && meta.Description != "" {
		content.Snippet = snippet(meta.Description)
	}

	return content
}

// snippet bounds text to snippetLength characters, marking truncation.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}

// visibleText walks the markup with the HTML tokenizer and collects
// the text a reader would see: head, script, style, noscript and
// template subtrees are skipped, and all whitespace runs collapse to
// a single space.
func visibleText(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var sb strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "head", "script", "style", "noscript", "template":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "head", "script", "style", "noscript", "template":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				for _, field := range strings.Fields(string(tokenizer.Text())) {
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
					sb.WriteString(field)
				}
			}
		}
	}
}

// extractImages collects absolute image URLs in document order. The
// filters mirror what the result consumer wants: no data URIs, no
// vector art, no logos or icons, no duplicates, at most maxImages.
func extractImages(doc *goquery.Document, sourceURL string) []string {
	images := []string{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return images
	}

	seen := make(map[string]struct{})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if len(images) >= maxImages {
			return
		}
		src, _ := s.Attr("src")
		if src == "" {
			return
		}

		srcLower := strings.ToLower(src)
		if strings.HasSuffix(srcLower, ".svg") {
			return
		}
		if strings.Contains(srcLower, "logo") || strings.Contains(srcLower, "icon") {
			return
		}

		resolved, err := base.Parse(src)
		if err != nil || resolved.Scheme == "data" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}
		images = append(images, absURL)
	})

	return images
}
