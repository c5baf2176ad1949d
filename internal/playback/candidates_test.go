package playback

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func newTestResolver() *CandidateResolver {
	r := NewCandidateResolver("https://backend.example.com", "public", "arquivo")
	r.Now = func() time.Time { return time.UnixMilli(1712000000000) }
	return r
}

func TestCandidatesPrimaryFirst(t *testing.T) {
	r := newTestResolver()

	candidates := r.Candidates("chat-1/1712-voice.m4a", Hints{})

	if len(candidates) == 0 {
		t.Fatal("Expected at least one candidate")
	}
	expected := "https://backend.example.com/public/chat-1/1712-voice.m4a"
	if candidates[0] != expected {
		t.Errorf("Expected primary %s, got %s", expected, candidates[0])
	}
}

func TestCandidatesRestrictivePlatform(t *testing.T) {
	r := newTestResolver()

	candidates := r.Candidates("public/chat-1/1712-voice.m4a", Hints{Restrictive: true})

	// Primary carries the cache-busting timestamp.
	if !strings.Contains(candidates[0], "?t=1712000000000") {
		t.Errorf("Expected cache-busting primary, got %s", candidates[0])
	}

	// The prefix-stripped variant must be present.
	var foundStripped bool
	for _, candidate := range candidates {
		if strings.Contains(candidate, "/public/chat-1/") && !strings.Contains(candidate, "public/public/") {
			foundStripped = true
		}
	}
	if !foundStripped {
		t.Errorf("Expected prefix-stripped variant in %v", candidates)
	}
}

func TestCandidatesAltPrefixForUnprefixedPath(t *testing.T) {
	r := newTestResolver()

	candidates := r.Candidates("chat-1/1712-voice.m4a", Hints{})

	var foundAlt bool
	for _, candidate := range candidates {
		if strings.Contains(candidate, "/arquivo/") {
			foundAlt = true
		}
	}
	if !foundAlt {
		t.Errorf("Expected arquivo variant in %v", candidates)
	}
}

func TestCandidatesProtocolFlip(t *testing.T) {
	r := newTestResolver()

	url := "https://cdn.example.com/public/voice.m4a"
	candidates := r.Candidates(url, Hints{Restrictive: true})

	var foundFlip, foundBust bool
	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, "http://cdn.example.com/") {
			foundFlip = true
		}
		if candidate == fmt.Sprintf("%s?t=%d", url, int64(1712000000000)) {
			foundBust = true
		}
	}
	if !foundFlip {
		t.Errorf("Expected http variant of https primary in %v", candidates)
	}
	if !foundBust {
		t.Errorf("Expected cache-busting variant of absolute URL in %v", candidates)
	}
}

func TestCandidatesExtensionGuesses(t *testing.T) {
	r := newTestResolver()

	candidates := r.Candidates("chat-1/audio_1712000000000", Hints{})

	var foundMP3, foundWAV bool
	for _, candidate := range candidates {
		if strings.HasSuffix(candidate, ".mp3") {
			foundMP3 = true
		}
		if strings.HasSuffix(candidate, ".wav") {
			foundWAV = true
		}
	}
	if !foundMP3 || !foundWAV {
		t.Errorf("Expected .mp3 and .wav guesses for extension-less path, got %v", candidates)
	}

	// A path with a recognized extension gets no guesses.
	candidates = r.Candidates("chat-1/voice.m4a", Hints{})
	for _, candidate := range candidates {
		if strings.HasSuffix(candidate, ".m4a.mp3") || strings.HasSuffix(candidate, ".m4a.wav") {
			t.Errorf("Unexpected extension guess %s", candidate)
		}
	}
}

func TestCandidatesDeduplicated(t *testing.T) {
	r := newTestResolver()

	candidates := r.Candidates("public/chat-1/voice.m4a", Hints{Restrictive: true})

	seen := make(map[string]bool)
	for _, candidate := range candidates {
		if seen[candidate] {
			t.Errorf("Duplicate candidate %s", candidate)
		}
		seen[candidate] = true
	}
}

func TestCandidatesEmptyPath(t *testing.T) {
	r := newTestResolver()

	if candidates := r.Candidates("", Hints{}); len(candidates) != 0 {
		t.Errorf("Expected no candidates for empty path, got %v", candidates)
	}
}

func TestCandidatesDeterministic(t *testing.T) {
	r := newTestResolver()

	first := r.Candidates("chat-1/voice", Hints{Restrictive: true})
	second := r.Candidates("chat-1/voice", Hints{Restrictive: true})

	if len(first) != len(second) {
		t.Fatalf("Expected identical candidate counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Candidate %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}
