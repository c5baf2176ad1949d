package format

import (
	"testing"
)

func TestNegotiateDeterministic(t *testing.T) {
	hints := PlatformHints{Restrictive: true}

	first := Negotiate(hints)
	second := Negotiate(hints)

	if len(first) != len(second) {
		t.Fatalf("Expected identical lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Entry %d differs: '%s' vs '%s'", i, first[i], second[i])
		}
	}
}

func TestNegotiateRestrictiveOrder(t *testing.T) {
	list := Negotiate(PlatformHints{Restrictive: true})

	if list[0] != "audio/mp4" {
		t.Errorf("Expected restrictive list to start with audio/mp4, got '%s'", list[0])
	}

	mp4Index, webmIndex := -1, -1
	for i, mimeType := range list {
		if mimeType == "audio/mp4" {
			mp4Index = i
		}
		if mimeType == "audio/webm;codecs=opus" {
			webmIndex = i
		}
	}
	if mp4Index == -1 || webmIndex == -1 {
		t.Fatalf("Expected both mp4 and webm entries, got indices %d and %d", mp4Index, webmIndex)
	}
	if mp4Index > webmIndex {
		t.Errorf("Expected mp4 (%d) before webm opus (%d) on restrictive platforms", mp4Index, webmIndex)
	}
}

func TestNegotiateGeneralOrder(t *testing.T) {
	list := Negotiate(PlatformHints{Restrictive: false})

	if list[0] != "audio/webm;codecs=opus" {
		t.Errorf("Expected general list to start with webm opus, got '%s'", list[0])
	}
}

func TestNegotiateSentinelLast(t *testing.T) {
	for _, restrictive := range []bool{true, false} {
		list := Negotiate(PlatformHints{Restrictive: restrictive})
		if len(list) == 0 {
			t.Fatal("Expected non-empty list")
		}
		if list[len(list)-1] != FallbackMIME {
			t.Errorf("Expected sentinel last (restrictive=%v), got '%s'", restrictive, list[len(list)-1])
		}
		for i, mimeType := range list[:len(list)-1] {
			if mimeType == FallbackMIME {
				t.Errorf("Sentinel appeared at index %d before the end", i)
			}
		}
	}
}

func TestPreferenceListFirst(t *testing.T) {
	list := Negotiate(PlatformHints{Restrictive: true})

	selected := list.First(func(mimeType string) bool {
		return mimeType == "audio/webm"
	})
	if selected != "audio/webm" {
		t.Errorf("Expected audio/webm, got '%s'", selected)
	}

	selected = list.First(func(mimeType string) bool { return false })
	if selected != FallbackMIME {
		t.Errorf("Expected sentinel when nothing is supported, got '%s'", selected)
	}

	selected = list.First(nil)
	if selected != FallbackMIME {
		t.Errorf("Expected sentinel with nil probe, got '%s'", selected)
	}
}

func TestPreferenceListSupported(t *testing.T) {
	list := Negotiate(PlatformHints{Restrictive: false})

	supported := list.Supported(func(mimeType string) bool {
		return mimeType == "audio/webm" || mimeType == "audio/ogg"
	})
	if len(supported) != 2 {
		t.Fatalf("Expected 2 supported formats, got %d", len(supported))
	}
	if supported[0] != "audio/webm" || supported[1] != "audio/ogg" {
		t.Errorf("Expected preference order preserved, got %v", supported)
	}
}
