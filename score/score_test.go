package score

import (
	"context"
	"math"
	"testing"
)

func TestLexical_KnownRatios(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  float64
	}{
		// ratio = 2 * matched / (len(query) + len(text))
		{"identical", "hello", "hello", 1.0},
		{"no overlap", "xyz", "abc", 0.0},
		{"three char run", "bcde", "abcd", 0.75},
		{"single char of two", "ba", "ab", 0.5},
		{"prefix", "hello world", "hello", 2.0 * 5 / 16},
		{"case folded", "HELLO", "hello", 1.0},
	}

	sc := Lexical{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sc.Score(context.Background(), tt.text, tt.query)
			if got != Round8(tt.want) {
				t.Errorf("Score(%q, %q) = %v, want %v", tt.text, tt.query, got, Round8(tt.want))
			}
		})
	}
}

func TestLexical_EmptyQuery(t *testing.T) {
	sc := Lexical{}
	for _, q := range []string{"", "   ", "\t\n"} {
		if got := sc.Score(context.Background(), "some page text", q); got != 0 {
			t.Errorf("Score with query %q = %v, want 0", q, got)
		}
	}
}

func TestLexical_EmptyText(t *testing.T) {
	sc := Lexical{}
	if got := sc.Score(context.Background(), "", "budget laptops"); got != 0 {
		t.Errorf("Score against empty text = %v, want 0", got)
	}
}

func TestLexical_Deterministic(t *testing.T) {
	sc := Lexical{}
	text := "the gopher statue stands in the museum courtyard"
	query := "gopher museum"

	first := sc.Score(context.Background(), text, query)
	for i := 0; i < 10; i++ {
		if got := sc.Score(context.Background(), text, query); got != first {
			t.Fatalf("run %d: Score = %v, want %v (must be deterministic)", i, got, first)
		}
	}
}

func TestLexical_Bounds(t *testing.T) {
	sc := Lexical{}
	pairs := [][2]string{
		{"completely different content about gardening", "quantum computing"},
		{"almost the same sentence here", "almost the same sentence her"},
		{"a", "a much longer query than the text itself by far"},
		{"日本語のテキスト", "日本語"},
	}

	for _, p := range pairs {
		got := sc.Score(context.Background(), p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Score(%q, %q) = %v, out of [0, 1]", p[0], p[1], got)
		}
	}
}

func TestLexical_RelativeOrdering(t *testing.T) {
	sc := Lexical{}
	query := "golang concurrency patterns"

	relevant := sc.Score(context.Background(), "golang concurrency patterns explained with examples", query)
	unrelated := sc.Score(context.Background(), "seventeen recipes for winter soups", query)

	if relevant <= unrelated {
		t.Errorf("relevant page scored %v, unrelated %v; want relevant > unrelated", relevant, unrelated)
	}
}

func TestLexical_UnicodeCountsRunes(t *testing.T) {
	sc := Lexical{}
	// Identical multi-byte strings must score exactly 1; a byte-level
	// comparison would still pass here, but a rune-level mismatch in
	// lengths would not.
	if got := sc.Score(context.Background(), "héllo wörld", "héllo wörld"); got != 1.0 {
		t.Errorf("identical unicode strings = %v, want 1.0", got)
	}
}

func TestRound8(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.123456789, 0.12345679},
		{0.123456784, 0.12345678},
		{1.0, 1.0},
		{0.0, 0.0},
		{2.0 / 3.0, 0.66666667},
	}

	for _, tt := range tests {
		if got := Round8(tt.in); got != tt.want {
			t.Errorf("Round8(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLexical_RoundedToEightDecimals(t *testing.T) {
	sc := Lexical{}
	got := sc.Score(context.Background(), "abcdefghij", "abc")
	// 2*3/13 = 0.46153846153... must come back already rounded.
	if got != Round8(got) {
		t.Errorf("Score = %v, not rounded to 8 decimals", got)
	}
	if math.Abs(got-0.46153846) > 1e-12 {
		t.Errorf("Score = %v, want 0.46153846", got)
	}
}

func TestLongestMatch_PrefersEarliest(t *testing.T) {
	a := []rune("xx")
	b := []rune("axxbxx")
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	i, j, k := longestMatch(a, b2j, 0, len(a), 0, len(b))
	if k != 2 {
		t.Fatalf("match length = %d, want 2", k)
	}
	if i != 0 || j != 1 {
		t.Errorf("match at a[%d], b[%d]; want earliest occurrence a[0], b[1]", i, j)
	}
}

func TestMatchingChars_RecursesBothSides(t *testing.T) {
	// "abXcd" vs "abYcd": center match "ab" or "cd" first, then the
	// other side must still be found. (b2j indexes the second arg.)
	got := matchingChars([]rune("abXcd"), []rune("abYcd"))
	if got != 4 {
		t.Errorf("matched %d chars, want 4 (ab + cd)", got)
	}
}
