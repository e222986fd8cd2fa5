package event

import "testing"

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want Severity
		ok   bool
	}{
		{"LOW", SeverityLow, true},
		{" moderate ", SeverityModerate, true},
		{"High", SeverityHigh, true},
		{"CRITICAL", SeverityCritical, true},
		{"catastrophic", SeverityLow, false},
		{"", SeverityLow, false},
	}

	for _, tc := range cases {
		got, ok := ParseSeverity(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseSeverity(%q) = %q,%v want %q,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want Category
		ok   bool
	}{
		{"TRAFFIC", CategoryTraffic, true},
		{" civic_issue ", CategoryCivicIssue, true},
		{"Weather", CategoryWeather, true},
		{"infrastructure", CategoryInfrastructure, true},
		{"unknown", CategoryUnknown, true},
		{"weatherish", CategoryUnknown, false},
		{"", CategoryUnknown, false},
	}

	for _, tc := range cases {
		got, ok := ParseCategory(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseCategory(%q) = %q,%v want %q,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	t.Parallel()

	if got := MaxSeverity(SeverityLow, SeverityCritical); got != SeverityCritical {
		t.Fatalf("expected CRITICAL, got %q", got)
	}
	if got := MaxSeverity(SeverityHigh, SeverityModerate); got != SeverityHigh {
		t.Fatalf("expected HIGH, got %q", got)
	}
	if got := MaxSeverity(SeverityLow, SeverityLow); got != SeverityLow {
		t.Fatalf("expected LOW, got %q", got)
	}
}

func TestParseSentiment(t *testing.T) {
	t.Parallel()

	if got, ok := ParseSentiment("negative"); !ok || got != SentimentNegative {
		t.Fatalf("ParseSentiment(negative) = %q,%v", got, ok)
	}
	if _, ok := ParseSentiment("meh"); ok {
		t.Fatalf("expected unknown sentiment to fail")
	}
}

func TestCategoryOrUnknown(t *testing.T) {
	t.Parallel()

	traffic := CategoryTraffic
	empty := Category("")

	if got := (&RawEvent{Category: &traffic}).CategoryOrUnknown(); got != CategoryTraffic {
		t.Fatalf("expected TRAFFIC, got %q", got)
	}
	if got := (&RawEvent{}).CategoryOrUnknown(); got != CategoryUnknown {
		t.Fatalf("expected UNKNOWN for nil category, got %q", got)
	}
	if got := (&RawEvent{Category: &empty}).CategoryOrUnknown(); got != CategoryUnknown {
		t.Fatalf("expected UNKNOWN for empty category, got %q", got)
	}
}

func TestLocationHasCoordinates(t *testing.T) {
	t.Parallel()

	lat, lon := 12.97, 77.60

	if (&Location{Latitude: &lat}).HasCoordinates() {
		t.Fatalf("latitude alone must not count as coordinates")
	}
	if !(&Location{Latitude: &lat, Longitude: &lon}).HasCoordinates() {
		t.Fatalf("expected both coordinates to count")
	}
	var nilLoc *Location
	if nilLoc.HasCoordinates() {
		t.Fatalf("nil location must report no coordinates")
	}
}
