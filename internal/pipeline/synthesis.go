package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/siddhi-labs/citypulse/internal/event"
)

const (
	maxCanonicalKeywords = 20
	defaultConfidence    = 0.5

	titleMinLength = 10
	titleMaxLength = 100
)

// Synthesize collapses one cluster into a canonical event. Singletons pass
// through unchanged; larger clusters get an AI summary, with a deterministic
// template when the summarization call fails. Synthesize never returns an
// error: every cluster produces an event.
func (s *Service) Synthesize(ctx context.Context, cluster *Cluster) event.CanonicalEvent {
	rep := cluster.Representative()
	if rep == nil {
		return event.CanonicalEvent{}
	}

	if cluster.Size() == 1 {
		return passthrough(rep)
	}

	canonical := aggregateCluster(cluster)

	contextText := fmt.Sprintf(
		"Summarize %d similar %s reports from the %s area into one canonical city event description.",
		cluster.Size(),
		canonical.categoryLabel(),
		canonical.areaLabel(),
	)

	text, err := s.gateway.Summarize(ctx, cluster.Events, contextText)
	if err != nil {
		s.metrics.fallbackUsed("synthesis")
		s.logger.Warn().
			Err(err).
			Int("cluster_size", cluster.Size()).
			Str("category", canonical.categoryLabel()).
			Msg("synthesis call failed; using manual fallback summary")
		return canonical.manualFallback(cluster.Size(), rep)
	}

	out := canonical.base
	out.Description = text
	out.Summary = text
	out.Title = extractTitle(text, rep.Title)
	out.Method = event.AggregationAISynthesis
	return out
}

// passthrough copies a singleton's fields verbatim: no field is invented and
// the source identifier is reused.
func passthrough(rep *event.RawEvent) event.CanonicalEvent {
	id := rep.ID
	if id == "" {
		id = uuid.NewString()
	}

	confidence := defaultConfidence
	if rep.Confidence != nil {
		confidence = *rep.Confidence
	}

	return event.CanonicalEvent{
		ID:          id,
		Title:       rep.Title,
		Description: rep.Description,
		Content:     rep.Content,
		Category:    rep.Category,
		Severity:    rep.Severity,
		Timestamp:   rep.Timestamp,
		Location:    rep.Location,
		Keywords:    append([]string(nil), rep.Keywords...),
		Confidence:  confidence,
		MediaURL:    rep.MediaURL,
		SourceIDs:   []string{rep.ID},
		Method:      event.AggregationPassthrough,
	}
}

type aggregated struct {
	base event.CanonicalEvent
}

func (a *aggregated) categoryLabel() string {
	if a.base.Category == nil {
		return string(event.CategoryUnknown)
	}
	return string(*a.base.Category)
}

func (a *aggregated) areaLabel() string {
	if a.base.Location != nil && strings.TrimSpace(a.base.Location.Area) != "" {
		return strings.TrimSpace(a.base.Location.Area)
	}
	return "unknown"
}

func (a *aggregated) manualFallback(size int, rep *event.RawEvent) event.CanonicalEvent {
	out := a.base
	out.Description = fmt.Sprintf(
		"Multiple %s reports in %s area. %d similar events aggregated.",
		a.categoryLabel(),
		a.areaLabel(),
		size,
	)
	out.Summary = out.Description
	out.Title = rep.Title
	out.Method = event.AggregationManualFallback
	return out
}

// aggregateCluster folds member fields: max severity, most recent timestamp,
// first available location, deduplicated keyword union, mean confidence.
func aggregateCluster(cluster *Cluster) *aggregated {
	rep := cluster.Representative()

	severity := event.SeverityLow
	hasSeverity := false
	var latest *time.Time
	var location *event.Location
	var keywords []string
	confidenceSum := 0.0
	sourceIDs := make([]string, 0, cluster.Size())
	mediaURL := ""

	for i := range cluster.Events {
		member := &cluster.Events[i]
		sourceIDs = append(sourceIDs, member.ID)

		if member.Severity != nil {
			severity = event.MaxSeverity(severity, *member.Severity)
			hasSeverity = true
		}
		if member.Timestamp != nil && !member.Timestamp.IsZero() {
			if latest == nil || member.Timestamp.After(*latest) {
				ts := *member.Timestamp
				latest = &ts
			}
		}
		if location == nil && member.Location != nil {
			location = member.Location
		}
		keywords = append(keywords, member.Keywords...)
		if member.Confidence != nil {
			confidenceSum += *member.Confidence
		} else {
			confidenceSum += defaultConfidence
		}
		if mediaURL == "" && member.MediaURL != "" {
			mediaURL = member.MediaURL
		}
	}

	base := event.CanonicalEvent{
		ID:         uuid.NewString(),
		Category:   rep.Category,
		Timestamp:  latest,
		Location:   location,
		Keywords:   capKeywords(dedupeKeywords(keywords)),
		Confidence: confidenceSum / float64(cluster.Size()),
		MediaURL:   mediaURL,
		SourceIDs:  sourceIDs,
	}
	if hasSeverity {
		sev := severity
		base.Severity = &sev
	}

	return &aggregated{base: base}
}

// extractTitle takes the first summary line whose length in runes sits
// strictly between the title bounds; otherwise the representative's title
// stands. Rune count, not bytes: summaries are not always ASCII.
func extractTitle(text, fallback string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		length := utf8.RuneCountInString(trimmed)
		if length > titleMinLength && length < titleMaxLength {
			return trimmed
		}
	}
	return fallback
}

func dedupeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		normalized := normalizeText(kw)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func capKeywords(keywords []string) []string {
	if len(keywords) > maxCanonicalKeywords {
		return keywords[:maxCanonicalKeywords]
	}
	return keywords
}
