package extract

import (
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// pruneScoreThreshold is the minimum weighted score a block element
// must reach to be retained as main content. Blocks scoring at or
// below this value are discarded as boilerplate (navigation, sidebars,
// footers, ads, etc.).
const pruneScoreThreshold = 0.0

// Signal weights for the pruning scorer.
const (
	wTextDensity   = 3.0
	wLinkDensity   = -2.0
	wTagWeight     = 1.5
	wClassIDWeight = 1.0
	wTextLength    = 0.5
)

// tagScores rewards semantic content containers and punishes known
// chrome elements. Tags not listed score zero.
var tagScores = map[string]float64{
	"article": 5, "main": 5, "section": 5,
	"nav": -5, "footer": -5, "aside": -5, "header": -5,
}

// positiveClassIDPatterns are substrings in class/id attributes that
// indicate main content areas.
var positiveClassIDPatterns = []string{
	"content", "article", "post", "entry", "body", "main", "text",
}

// negativeClassIDPatterns are substrings in class/id attributes that
// indicate non-content areas (boilerplate).
var negativeClassIDPatterns = []string{
	"sidebar", "ad", "widget", "nav", "menu", "comment", "footer",
	"header", "banner", "popup", "modal", "cookie", "social", "share",
	"related", "recommend", "promo",
}

// pruneContent keeps the block elements of <body> that score above
// pruneScoreThreshold and drops the rest. Scoring combines text
// density, link density, semantic tag weight, class/id hints and text
// length. When no block clears the bar the whole body is returned, so
// the Markdown path never renders an empty document.
func pruneContent(rawHTML, sourceURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return rawHTML, nil
	}

	var keep []string
	body.Children().Each(func(_ int, el *goquery.Selection) {
		if scoreElement(el) <= pruneScoreThreshold {
			return
		}
		if outer, err := goquery.OuterHtml(el); err == nil {
			keep = append(keep, outer)
		}
	})

	if len(keep) == 0 {
		inner, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return inner, nil
	}
	return strings.Join(keep, "\n"), nil
}

// scoreElement weighs a candidate block. Text density is visible text
// over total markup size; link density is anchor text over all text,
// so link farms score negative; length enters on a log scale so a long
// article beats a long sidebar without drowning the other signals.
func scoreElement(el *goquery.Selection) float64 {
	outer, err := goquery.OuterHtml(el)
	if err != nil {
		return 0
	}

	text := strings.TrimSpace(el.Text())

	var density float64
	if len(outer) > 0 {
		density = float64(len(text)) / float64(len(outer))
	}

	var anchorChars int
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		anchorChars += len(strings.TrimSpace(a.Text()))
	})
	var linkiness float64
	if len(text) > 0 {
		linkiness = float64(anchorChars) / float64(len(text))
	}

	return density*wTextDensity +
		linkiness*wLinkDensity +
		tagScores[goquery.NodeName(el)]*wTagWeight +
		classIDWeight(el)*wClassIDWeight +
		math.Log10(float64(len(text))+1)*wTextLength
}

// classIDWeight scans the element's class and id attributes for
// content and boilerplate hints, each direction counted at most once.
func classIDWeight(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	hints := strings.ToLower(class + " " + id)

	var score float64
	if containsAny(hints, positiveClassIDPatterns) {
		score += 3.0
	}
	if containsAny(hints, negativeClassIDPatterns) {
		score -= 3.0
	}
	return score
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// autoExtract runs both readability and pruning concurrently, then
// picks the result that extracted more meaningful text content.
func autoExtract(rawHTML, sourceURL string) readability.Article {
	var (
		article    readability.Article
		prunedHTML string
		pruneErr   error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		article, _ = mainContent(rawHTML, sourceURL)
	}()
	go func() {
		defer wg.Done()
		prunedHTML, pruneErr = pruneContent(rawHTML, sourceURL)
	}()
	wg.Wait()

	if pruneErr != nil {
		slog.Warn("auto extract: pruning failed, using readability result",
			"url", sourceURL, "error", pruneErr,
		)
		return article
	}

	prunedText := stripTags(prunedHTML)
	articleText := strings.TrimSpace(article.TextContent)

	// Prefer whichever side extracted more text, unless the longer side
	// is over 10x the shorter one: that usually means it swallowed
	// boilerplate, so the shorter result wins if it is substantial.
	useReadability := len(articleText) >= len(prunedText)
	if useReadability && len(prunedText) > minContentLength && len(articleText) > 10*len(prunedText) {
		useReadability = false
	} else if !useReadability && len(articleText) > minContentLength && len(prunedText) > 10*len(articleText) {
		useReadability = true
	}

	if useReadability {
		return article
	}

	// Pruned content wins; carry over the readability metadata.
	return readability.Article{
		Title:       article.Title,
		Byline:      article.Byline,
		Excerpt:     article.Excerpt,
		SiteName:    article.SiteName,
		Language:    article.Language,
		Content:     prunedHTML,
		TextContent: prunedText,
	}
}

// stripTags extracts visible text from an HTML fragment by parsing it
// with goquery. Returns trimmed plain text.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
