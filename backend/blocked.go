package backend

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// challengeMarkers are phrases that show up in bot-challenge
// interstitials (Cloudflare, PerimeterX, plain captcha walls) but
// rarely in real page copy.
var challengeMarkers = []string{
	"captcha",
	"verify you are human",
	"verify that you are human",
	"are you a robot",
	"checking your browser",
	"attention required",
	"ddos protection",
	"access denied",
	"enable javascript and cookies to continue",
}

// reNoscriptJS matches "please enable JavaScript"-style notices.
var reNoscriptJS = regexp.MustCompile(`(?i)(enable|requires?|turn on).{0,40}javascript`)

// Blocked reports whether the markup looks like a bot challenge or a
// JavaScript-required shell rather than real page content. It checks
// visible text only, so a script that merely mentions "captcha" does
// not trigger it.
func Blocked(htmlStr string) bool {
	if htmlStr == "" {
		return false
	}
	text := strings.ToLower(visibleText(htmlStr))
	for _, marker := range challengeMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	// A near-empty shell that demands JavaScript has nothing to
	// extract either way.
	if len(text) < 40 && reNoscriptJS.MatchString(htmlStr) {
		return true
	}
	return false
}

// Usable reports whether fetched content is worth keeping: non-empty
// and not a challenge page. The fallback chain escalates past
// unusable content.
func Usable(content string) bool {
	return content != "" && !Blocked(content)
}

// visibleText walks the markup with the HTML tokenizer and collects
// the text a reader would see, skipping head, script, style, noscript
// and template subtrees.
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
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
					sb.WriteString(text)
				}
			}
		}
	}
}
