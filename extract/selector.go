package extract

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplyCSSSelector narrows rawHTML to the elements matching a CSS
// selector, concatenating their outer HTML in document order. A
// selector that matches nothing leaves the input unchanged so the
// caller still has a document to work with; a selector that does not
// parse is an error.
func ApplyCSSSelector(rawHTML string, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}

	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, node := range cascadia.QueryAll(root, sel) {
		if err := html.Render(&sb, node); err != nil {
			return "", err
		}
	}

	// Rendered output is empty only when nothing matched.
	if sb.Len() == 0 {
		return rawHTML, nil
	}
	return sb.String(), nil
}
