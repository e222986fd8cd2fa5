package langdetect

import "testing"

func TestDetectISO6391(t *testing.T) {
	if got := DetectISO6391("Severe traffic congestion reported near the Silk Board junction this morning"); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if got := DetectISO6391(""); got != "" {
		t.Fatalf("expected empty code for empty text, got %q", got)
	}
	if got := DetectISO6391("ok 12"); got != "" {
		t.Fatalf("expected empty code for short text, got %q", got)
	}
}
