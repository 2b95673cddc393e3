package backend

import (
	"testing"
	"time"
)

func TestFailureMemory_TripsAfterLimit(t *testing.T) {
	fm := NewFailureMemory(3, time.Minute)
	defer fm.Stop()

	for i := 0; i < 2; i++ {
		fm.MarkFailure("slow.example.com")
		if fm.Skip("slow.example.com") {
			t.Fatalf("tripped after %d failures, limit is 3", i+1)
		}
	}

	fm.MarkFailure("slow.example.com")
	if !fm.Skip("slow.example.com") {
		t.Error("three failures must trip the cooldown")
	}

	if fm.Skip("other.example.com") {
		t.Error("an unrelated domain must not be affected")
	}
}

func TestFailureMemory_SuccessClears(t *testing.T) {
	fm := NewFailureMemory(2, time.Minute)
	defer fm.Stop()

	fm.MarkFailure("flaky.example.com")
	fm.MarkFailure("flaky.example.com")
	if !fm.Skip("flaky.example.com") {
		t.Fatal("expected domain in cooldown")
	}

	fm.MarkSuccess("flaky.example.com")
	if fm.Skip("flaky.example.com") {
		t.Error("a success must clear the failure history")
	}
}

func TestFailureMemory_EntriesExpire(t *testing.T) {
	fm := NewFailureMemory(1, 15*time.Millisecond)
	defer fm.Stop()

	fm.MarkFailure("brief.example.com")
	if !fm.Skip("brief.example.com") {
		t.Fatal("expected domain in cooldown")
	}

	time.Sleep(30 * time.Millisecond)
	if fm.Skip("brief.example.com") {
		t.Error("the cooldown must lapse after the TTL")
	}
}

func TestFailureMemory_ExpiredEntryRestartsCount(t *testing.T) {
	fm := NewFailureMemory(2, 15*time.Millisecond)
	defer fm.Stop()

	fm.MarkFailure("comeback.example.com")
	time.Sleep(30 * time.Millisecond)

	// The earlier failure expired, so this is failure #1 again.
	fm.MarkFailure("comeback.example.com")
	if fm.Skip("comeback.example.com") {
		t.Error("failures across an expiry gap must not accumulate")
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/path?q=1", "example.com"},
		{"https://sub.example.com:8443/", "sub.example.com"},
		{"http://localhost:8050/render.html", "localhost"},
		{"not a url at all", "not a url at all"},
	}

	for _, tt := range tests {
		if got := domainOf(tt.in); got != tt.want {
			t.Errorf("domainOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
