package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

// Meta is page metadata drawn from Open Graph tags, with plain meta
// tag fallbacks for pages that never adopted OG markup.
type Meta struct {
	Title       string
	Description string
	SiteName    string
	Image       string
}

// ParseMeta reads Open Graph metadata from raw markup. Missing fields
// are backfilled from standard and Twitter meta tags.
func ParseMeta(rawHTML string) Meta {
	var m Meta

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(rawHTML)); err == nil {
		m.Title = og.Title
		m.Description = og.Description
		m.SiteName = og.SiteName
		if len(og.Images) > 0 && og.Images[0] != nil {
			m.Image = og.Images[0].URL
		}
	}

	if m.Title != "" && m.Description != "" {
		return m
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return m
	}
	if m.Title == "" {
		m.Title = strings.TrimSpace(doc.Find(`meta[name="twitter:title"]`).AttrOr("content", ""))
	}
	if m.Description == "" {
		m.Description = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	}
	if m.Description == "" {
		m.Description = strings.TrimSpace(doc.Find(`meta[name="twitter:description"]`).AttrOr("content", ""))
	}
	return m
}
