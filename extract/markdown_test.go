package extract

import (
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Relevance Scoring</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article class="post">
<h2>Weighting signals</h2>
<p>Relevance scoring blends lexical overlap with structural hints so that
short queries still separate useful pages from boilerplate. The weights were
tuned on a corpus of product documentation and news articles.</p>
<p>Read the <a href="https://go.dev/doc">language documentation</a> for
background on the tokenizer this pipeline builds on.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestMarkdown_ConvertsMainContent(t *testing.T) {
	md, err := New().Markdown(articlePage, "https://example.com/post", false)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(md, "Relevance scoring blends lexical overlap") {
		t.Errorf("markdown lost the article body:\n%s", md)
	}
	if !strings.Contains(md, "https://go.dev/doc") {
		t.Errorf("markdown lost the article link:\n%s", md)
	}
	if strings.Contains(md, "<p>") || strings.Contains(md, "<article") {
		t.Errorf("markdown still contains raw tags:\n%s", md)
	}
}

func TestMarkdown_EmptyInput(t *testing.T) {
	md, err := New().Markdown("   ", "https://example.com/", false)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if md != "" {
		t.Errorf("Markdown = %q, want empty for blank input", md)
	}
}

func TestMarkdown_CitationsMode(t *testing.T) {
	md, err := New().Markdown(articlePage, "https://example.com/post", true)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(md, "[1]: https://go.dev/doc") {
		t.Errorf("citations mode must list references at the end:\n%s", md)
	}
	if !strings.Contains(md, "][1]") {
		t.Errorf("citations mode must rewrite inline links to references:\n%s", md)
	}
}

func TestConvertToCitations(t *testing.T) {
	t.Run("numbers links and appends references", func(t *testing.T) {
		in := "See [Google](https://google.com) and [GitHub](https://github.com)."
		want := "See [Google][1] and [GitHub][2].\n\n---\n[1]: https://google.com\n[2]: https://github.com"
		if got := convertToCitations(in); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("duplicate urls share a number", func(t *testing.T) {
		in := "[a](https://x.test) then [b](https://x.test)"
		want := "[a][1] then [b][1]\n\n---\n[1]: https://x.test"
		if got := convertToCitations(in); got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("no links passes through", func(t *testing.T) {
		in := "Plain text, no links at all."
		if got := convertToCitations(in); got != in {
			t.Errorf("got %q, want input unchanged", got)
		}
	})
}

func TestApplyCSSSelector(t *testing.T) {
	const page = `<html><body><div id="main"><p>keep me</p></div><div id="side"><p>drop me</p></div></body></html>`

	t.Run("scopes to the matched element", func(t *testing.T) {
		got, err := ApplyCSSSelector(page, "#main")
		if err != nil {
			t.Fatalf("ApplyCSSSelector: %v", err)
		}
		if !strings.Contains(got, "keep me") {
			t.Errorf("result lost the selected content: %q", got)
		}
		if strings.Contains(got, "drop me") {
			t.Errorf("result kept unselected content: %q", got)
		}
	})

	t.Run("concatenates multiple matches in order", func(t *testing.T) {
		got, err := ApplyCSSSelector(page, "p")
		if err != nil {
			t.Fatalf("ApplyCSSSelector: %v", err)
		}
		if got != "<p>keep me</p><p>drop me</p>" {
			t.Errorf("got %q, want both paragraphs in document order", got)
		}
	})

	t.Run("no match returns the input unchanged", func(t *testing.T) {
		got, err := ApplyCSSSelector(page, ".missing")
		if err != nil {
			t.Fatalf("ApplyCSSSelector: %v", err)
		}
		if got != page {
			t.Errorf("got %q, want the original markup", got)
		}
	})

	t.Run("invalid selector errors", func(t *testing.T) {
		if _, err := ApplyCSSSelector(page, "[[["); err == nil {
			t.Error("want a parse error for a malformed selector")
		}
	})
}

func TestPruneContent_DropsBoilerplate(t *testing.T) {
	pruned, err := pruneContent(articlePage, "https://example.com/post")
	if err != nil {
		t.Fatalf("pruneContent: %v", err)
	}
	if !strings.Contains(pruned, "Relevance scoring blends lexical overlap") {
		t.Errorf("pruning dropped the article:\n%s", pruned)
	}
	if strings.Contains(pruned, "Home") {
		t.Errorf("pruning kept the navigation:\n%s", pruned)
	}
	if strings.Contains(pruned, "Copyright") {
		t.Errorf("pruning kept the footer:\n%s", pruned)
	}
}

func TestPruneContent_FallsBackToBody(t *testing.T) {
	// Every block scores at or below the threshold, so the whole body
	// comes back rather than nothing.
	const thin = `<html><body><nav><a href="/">Home</a><a href="/a">A</a><a href="/b">B</a></nav></body></html>`
	pruned, err := pruneContent(thin, "https://example.com/")
	if err != nil {
		t.Fatalf("pruneContent: %v", err)
	}
	if !strings.Contains(pruned, "Home") {
		t.Errorf("fallback must keep the body content:\n%s", pruned)
	}
}
