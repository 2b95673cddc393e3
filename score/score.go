package score

import (
	"context"
	"math"
	"strings"
)

// Scorer ranks extracted page text against a search query. Scores are
// in [0, 1] and deterministic for a given (text, query) pair.
type Scorer interface {
	Score(ctx context.Context, text, query string) float64
}

// Lexical scores by character-level sequence similarity: twice the
// number of matching characters divided by the total length of both
// strings (Ratcliff/Obershelp). It needs no network and is the
// default scorer.
type Lexical struct{}

// Score returns the similarity of text and query, rounded to 8
// decimal places. An empty or whitespace-only query scores 0.
func (Lexical) Score(_ context.Context, text, query string) float64 {
	if strings.TrimSpace(query) == "" {
		return 0
	}
	a := []rune(strings.ToLower(query))
	b := []rune(strings.ToLower(text))
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	matched := matchingChars(a, b)
	return Round8(2 * float64(matched) / float64(total))
}

// Round8 rounds v to 8 decimal places, the precision scores are
// reported at.
func Round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// matchingChars counts the characters covered by the recursive
// longest-match decomposition of a against b: find the longest common
// substring, then repeat on the pieces to its left and right.
func matchingChars(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	stack := []span{{0, len(a), 0, len(b)}}

	matched := 0
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, b2j, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		matched += k
		stack = append(stack,
			span{s.alo, i, s.blo, j},
			span{i + k, s.ahi, j + k, s.bhi})
	}
	return matched
}

// longestMatch finds the longest run of equal runes with
// a[besti:besti+bestk] == b[bestj:bestj+bestk], besti in [alo, ahi)
// and bestj in [blo, bhi). Ties prefer the earliest position in a.
// b2j indexes rune positions in b, ascending.
func longestMatch(a []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo

	// j2len[j] is the length of the matching run ending at a[i-1], b[j].
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestk
}
