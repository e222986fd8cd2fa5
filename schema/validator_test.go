package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/siddhi-labs/citypulse/internal/event"
)

func TestValidateRawEventPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"evt-001",
		"title":"Waterlogging near Silk Board",
		"description":"Underpass flooded after overnight rain",
		"category":"WEATHER",
		"severity":"HIGH",
		"timestamp":"2026-08-20T06:30:00Z",
		"location":{"latitude":12.9172,"longitude":77.6228,"area":"Silk Board"},
		"keywords":["flood","rain"],
		"confidence":0.85,
		"source":"citizen_app"
	}`)

	raw, err := ValidateRawEventPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if raw.ID != "evt-001" {
		t.Fatalf("expected id=evt-001, got %q", raw.ID)
	}
	if raw.Category == nil || *raw.Category != event.CategoryWeather {
		t.Fatalf("expected WEATHER category, got %v", raw.Category)
	}
	if raw.Location == nil || !raw.Location.HasCoordinates() {
		t.Fatalf("expected coordinates to survive decoding")
	}
}

func TestValidateRawEventPayload_MissingTitle(t *testing.T) {
	payload := json.RawMessage(`{"id":"evt-002"}`)

	if _, err := ValidateRawEventPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for missing title")
	}
}

func TestValidateRawEventPayload_WhitespaceTitle(t *testing.T) {
	payload := json.RawMessage(`{"id":"evt-003","title":"   "}`)

	_, err := ValidateRawEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only title")
	}
	if !strings.Contains(err.Error(), "title must not be blank") {
		t.Fatalf("expected title semantic error, got: %v", err)
	}
}

func TestValidateRawEventPayload_BadCategory(t *testing.T) {
	payload := json.RawMessage(`{"id":"evt-004","title":"Something","category":"ALIEN_INVASION"}`)

	if _, err := ValidateRawEventPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for unknown category")
	}
}

func TestValidateRawEventPayload_LatitudeWithoutLongitude(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"evt-005",
		"title":"Half a location",
		"location":{"latitude":12.9}
	}`)

	_, err := ValidateRawEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for lone latitude")
	}
	if !strings.Contains(err.Error(), "both latitude and longitude") {
		t.Fatalf("expected coordinate pairing error, got: %v", err)
	}
}

func TestValidateRawEventPayload_OutOfRangeLatitude(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"evt-006",
		"title":"Bad coordinates",
		"location":{"latitude":123.0,"longitude":77.6}
	}`)

	if _, err := ValidateRawEventPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for out-of-range latitude")
	}
}

func TestValidateRawEventPayload_FarFutureTimestamp(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"evt-007",
		"title":"From the future",
		"timestamp":"2099-01-01T00:00:00Z"
	}`)

	if _, err := ValidateRawEventPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for far-future timestamp")
	}
}

func TestValidateRawEventPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"id":"evt-008","title":"ok"} trailing`)

	if _, err := ValidateRawEventPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}

func TestValidateBatchPayload_PartialFailure(t *testing.T) {
	payload := json.RawMessage(`[
		{"id":"evt-100","title":"Valid report"},
		{"id":"evt-101"},
		{"id":"evt-102","title":"Another valid report"}
	]`)

	events, invalid, err := ValidateBatchPayload(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 valid events, got %d", len(events))
	}
	if len(invalid) != 1 {
		t.Fatalf("expected 1 invalid event, got %d", len(invalid))
	}
	if _, ok := invalid[1]; !ok {
		t.Fatalf("expected index 1 to be reported invalid, got %v", invalid)
	}
}

func TestValidateBatchPayload_NotAnArray(t *testing.T) {
	if _, _, err := ValidateBatchPayload(json.RawMessage(`{"id":"x"}`)); err == nil {
		t.Fatalf("expected error for non-array payload")
	}
}
