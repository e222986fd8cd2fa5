package event

import (
	"strings"
	"time"
)

// Category is the coarse event type reported by upstream sources.
type Category string

const (
	CategoryTraffic        Category = "TRAFFIC"
	CategoryCivicIssue     Category = "CIVIC_ISSUE"
	CategoryWeather        Category = "WEATHER"
	CategoryInfrastructure Category = "INFRASTRUCTURE"
	CategorySafety         Category = "SAFETY"
	CategoryCultural       Category = "CULTURAL"
	CategoryUnknown        Category = "UNKNOWN"
)

// ParseCategory matches raw text case-insensitively against the category
// enum. Unrecognized input yields UNKNOWN and ok=false.
func ParseCategory(raw string) (Category, bool) {
	category := Category(strings.ToUpper(strings.TrimSpace(raw)))
	switch category {
	case CategoryTraffic, CategoryCivicIssue, CategoryWeather,
		CategoryInfrastructure, CategorySafety, CategoryCultural, CategoryUnknown:
		return category, true
	default:
		return CategoryUnknown, false
	}
}

// Severity levels ordered LOW < MODERATE < HIGH < CRITICAL.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityModerate: 1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// ParseSeverity matches raw text case-insensitively against the severity
// enum. Unrecognized or empty input yields LOW and ok=false; callers log a
// warning instead of propagating an error.
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(raw))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityModerate:
		return SeverityModerate, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityCritical:
		return SeverityCritical, true
	default:
		return SeverityLow, false
	}
}

// MaxSeverity returns the higher of two severities by the defined ordering.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// Sentiment of an event's public perception.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// ParseSentiment matches raw text case-insensitively against the sentiment enum.
func ParseSentiment(raw string) (Sentiment, bool) {
	switch Sentiment(strings.ToUpper(strings.TrimSpace(raw))) {
	case SentimentPositive:
		return SentimentPositive, true
	case SentimentNeutral:
		return SentimentNeutral, true
	case SentimentNegative:
		return SentimentNegative, true
	default:
		return "", false
	}
}

// Location carries whatever positional detail the source provided. Area and
// coordinates are independently optional.
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Area      string   `json:"area,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// RawEvent is one independently-sourced report. Immutable once handed to the
// pipeline.
type RawEvent struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Content     string         `json:"content,omitempty"`
	Category    *Category      `json:"category,omitempty"`
	Severity    *Severity      `json:"severity,omitempty"`
	Timestamp   *time.Time     `json:"timestamp,omitempty"`
	Location    *Location      `json:"location,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Confidence  *float64       `json:"confidence,omitempty"`
	MediaURL    string         `json:"media_url,omitempty"`
	Source      string         `json:"source,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CategoryOrUnknown returns the event category, defaulting to UNKNOWN.
func (e *RawEvent) CategoryOrUnknown() Category {
	if e == nil || e.Category == nil || *e.Category == "" {
		return CategoryUnknown
	}
	return *e.Category
}

// AggregationMethod tags how a canonical event was produced.
type AggregationMethod string

const (
	AggregationAISynthesis    AggregationMethod = "ai_synthesis"
	AggregationManualFallback AggregationMethod = "manual_fallback"
	AggregationPassthrough    AggregationMethod = "passthrough"
)

// CanonicalEvent is the single record representing a cluster (or a singleton
// passed through unchanged).
type CanonicalEvent struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Content     string            `json:"content,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Category    *Category         `json:"category,omitempty"`
	Severity    *Severity         `json:"severity,omitempty"`
	Sentiment   *Sentiment        `json:"sentiment,omitempty"`
	Timestamp   *time.Time        `json:"timestamp,omitempty"`
	Location    *Location         `json:"location,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
	Confidence  float64           `json:"confidence"`
	MediaURL    string            `json:"media_url,omitempty"`
	MediaDesc   string            `json:"media_description,omitempty"`
	SourceIDs   []string          `json:"source_ids"`
	Method      AggregationMethod `json:"aggregation_method"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// EnrichmentInfo records which dimensions the enrichment stage resolved and how.
type EnrichmentInfo struct {
	EnrichedAt        time.Time `json:"enriched_at"`
	Method            string    `json:"enrichment_method"`
	Language          string    `json:"language,omitempty"`
	AIProcessedFields []string  `json:"ai_processed_fields"`
	FailedFields      []string  `json:"failed_fields,omitempty"`
}

// EnrichedEvent is a canonical event after the enrichment stage. Insights is
// the only genuinely free-form map; everything with a known shape is typed.
type EnrichedEvent struct {
	CanonicalEvent
	Enrichment EnrichmentInfo `json:"enrichment"`
	Insights   map[string]any `json:"insights,omitempty"`
}

// StoreResult is one store's half of a persistence outcome.
type StoreResult struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id,omitempty"`
	Err string `json:"error,omitempty"`
}

// PersistenceOutcome reports both store writes for one enriched event. The
// event counts as processed even when one or both writes fail.
type PersistenceOutcome struct {
	EventID   string      `json:"event_id"`
	DocStore  StoreResult `json:"doc_store"`
	Warehouse StoreResult `json:"warehouse"`
}
