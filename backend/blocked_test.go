package backend

import "testing"

func TestBlocked(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			"captcha wall",
			`<html><body><h1>One more step</h1><p>Please verify that you are human. Captcha validation required.</p></body></html>`,
			true,
		},
		{
			"cloudflare interstitial",
			`<html><head><title>Just a moment...</title></head><body><p>Checking your browser before accessing example.com.</p><p>DDoS protection by Cloudflare</p></body></html>`,
			true,
		},
		{
			"access denied page",
			`<html><body><h1>Access denied</h1><p>You don't have permission to view this page.</p></body></html>`,
			true,
		},
		{
			"javascript shell",
			`<html><body><noscript>Please enable JavaScript to view this site.</noscript></body></html>`,
			true,
		},
		{
			"regular article",
			`<html><head><title>Weather</title></head><body><article><p>Tomorrow brings sunshine across the region with mild temperatures and light winds throughout the afternoon.</p></article></body></html>`,
			false,
		},
		{
			"tiny but honest page",
			`<html><body>hello world</body></html>`,
			false,
		},
		{
			"marker only inside a script",
			`<html><head><script>var captchaWidget = null;</script></head><body><p>An ordinary page about garden furniture with enough words to read.</p></body></html>`,
			false,
		},
		{
			"empty",
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Blocked(tt.html); got != tt.want {
				t.Errorf("Blocked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUsable(t *testing.T) {
	if Usable("") {
		t.Error("empty content must not be usable")
	}
	if Usable(`<html><body><p>Please verify that you are human. Captcha below.</p></body></html>`) {
		t.Error("a challenge page must not be usable")
	}
	if !Usable(`<html><body><p>A perfectly normal page with readable content.</p></body></html>`) {
		t.Error("a normal page must be usable")
	}
}
