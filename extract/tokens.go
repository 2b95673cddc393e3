package extract

import "unicode/utf8"

// EstimateTokens approximates the token count of text at three runes
// per token, a middle ground between English (~4 chars/token) and CJK
// (~1.5). Non-empty text counts as at least one token.
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	switch {
	case runes == 0:
		return 0
	case runes < 3:
		return 1
	default:
		return runes / 3
	}
}
