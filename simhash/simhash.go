// Package simhash fingerprints page content so the pipeline can tell
// whether a refetched page actually changed. When the DOM structure of
// a refetch is within a few bits of the cached fingerprint, the
// previous extraction is reused instead of re-parsed.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// DefaultThreshold is the Hamming distance at or under which two
// fingerprints are treated as the same page.
const DefaultThreshold = 3

// Fingerprint computes a 64-bit SimHash over the whitespace-separated
// tokens of text. Near-identical inputs land within a small Hamming
// distance of each other; empty input maps to 0.
func Fingerprint(text string) uint64 {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	for _, token := range tokens {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		for i := range vector {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i, weight := range vector {
		if weight > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits
// of each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
