package backend

import "math/rand/v2"

// Desktop Chrome identities rotated across outbound fetches, one per
// major platform. Rotation happens per request, not per attempt, so
// every tier trying the same URL presents the same identity.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// RandomUserAgent picks one of the rotated browser identities.
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}
