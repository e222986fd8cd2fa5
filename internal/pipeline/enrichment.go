package pipeline

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/siddhi-labs/citypulse/internal/classify"
	"github.com/siddhi-labs/citypulse/internal/event"
	"github.com/siddhi-labs/citypulse/internal/globaltime"
	"github.com/siddhi-labs/citypulse/internal/langdetect"
)

// enrichmentMethod is bumped whenever the dimension set or merge semantics
// change, so stored events record which enrichment generation produced them.
const enrichmentMethod = "citypulse_enrichment_v1"

const (
	dimContent   = "content"
	dimSentiment = "sentiment"
	dimLocation  = "location"
	dimSeverity  = "severity"
	dimMedia     = "media"
	dimInsights  = "insights"
)

// dimOutcome is one dimension's classification result. Goroutines write to
// disjoint slots, so no lock is needed around the fan-out.
type dimOutcome struct {
	ran    bool
	failed bool
	result classify.Result
}

// Enrich fills every missing structured field of a canonical event with one
// classification call per dimension, all dimensions in parallel. A failed
// dimension leaves its field unresolved and never aborts the others; partial
// enrichment is the expected steady state when the service is flaky.
func (s *Service) Enrich(ctx context.Context, canonical event.CanonicalEvent) event.EnrichedEvent {
	var content, sentiment, location, severity, media, insights dimOutcome

	// Plain errgroup on purpose: a WithContext group would cancel siblings
	// on first failure, and the contract here is the opposite.
	var g errgroup.Group

	if needsContent(&canonical) {
		content.ran = true
		g.Go(func() error {
			content.result, content.failed = s.classifyDim(ctx, contentContext(&canonical), classify.TaskContentAnalysis)
			return nil
		})
	}
	if canonical.Sentiment == nil {
		sentiment.ran = true
		g.Go(func() error {
			sentiment.result, sentiment.failed = s.classifyDim(ctx, contentContext(&canonical), classify.TaskSentimentAnalysis)
			return nil
		})
	}
	if needsLocation(&canonical) {
		location.ran = true
		g.Go(func() error {
			location.result, location.failed = s.classifyDim(ctx, locationContext(&canonical), classify.TaskLocationInference)
			return nil
		})
	}
	if canonical.Severity == nil {
		severity.ran = true
		g.Go(func() error {
			severity.result, severity.failed = s.classifyDim(ctx, severityContext(&canonical), classify.TaskSeverityAssess)
			return nil
		})
	}
	if canonical.MediaURL != "" && canonical.MediaDesc == "" {
		media.ran = true
		g.Go(func() error {
			media.result, media.failed = s.classifyDim(ctx, canonical.MediaURL, classify.TaskMediaAnalysis)
			return nil
		})
	}

	// Insights always run, independently of the structured dimensions.
	insights.ran = true
	g.Go(func() error {
		insights.result, insights.failed = s.classifyDim(ctx, contentContext(&canonical), classify.TaskInsightGeneration)
		return nil
	})

	_ = g.Wait()

	enriched := event.EnrichedEvent{CanonicalEvent: canonical}
	enriched.Enrichment = event.EnrichmentInfo{
		EnrichedAt: globaltime.UTC(),
		Method:     enrichmentMethod,
		Language:   langdetect.DetectISO6391(contentContext(&canonical)),
	}

	aiFields := make([]string, 0, 6)
	failedFields := make([]string, 0, 6)
	record := func(dim string, outcome *dimOutcome, applied bool) {
		if !outcome.ran {
			return
		}
		if outcome.failed || !applied {
			failedFields = append(failedFields, dim)
			return
		}
		aiFields = append(aiFields, dim)
	}

	record(dimContent, &content, s.mergeContent(&enriched, &content))
	record(dimSentiment, &sentiment, mergeSentiment(&enriched, &sentiment))
	record(dimLocation, &location, mergeLocation(&enriched, &location))
	record(dimSeverity, &severity, s.mergeSeverity(&enriched, &severity))
	record(dimMedia, &media, mergeMedia(&enriched, &media))
	record(dimInsights, &insights, mergeInsights(&enriched, &insights))

	sort.Strings(aiFields)
	sort.Strings(failedFields)
	enriched.Enrichment.AIProcessedFields = aiFields
	enriched.Enrichment.FailedFields = failedFields

	return enriched
}

// classifyDim runs one dimension's call, absorbing the error into a flag.
func (s *Service) classifyDim(ctx context.Context, text string, task classify.TaskLabel) (classify.Result, bool) {
	result, err := s.classifyWithMetrics(ctx, text, task)
	if err != nil {
		s.logger.Debug().Err(err).Str("task", string(task)).Msg("enrichment dimension call failed")
		return classify.Result{}, true
	}
	return result, false
}

func needsContent(c *event.CanonicalEvent) bool {
	if c.Category == nil {
		return true
	}
	return strings.TrimSpace(c.Title) == "" || len(c.Keywords) == 0
}

func needsLocation(c *event.CanonicalEvent) bool {
	if c.Location == nil {
		return true
	}
	return strings.TrimSpace(c.Location.Area) == "" && !c.Location.HasCoordinates()
}

func contentContext(c *event.CanonicalEvent) string {
	return joinNonEmpty(c.Title, c.Description, c.Content)
}

func locationContext(c *event.CanonicalEvent) string {
	area := ""
	if c.Location != nil {
		area = strings.TrimSpace(c.Location.Area)
	}
	if area == "" {
		area = "unknown"
	}
	return joinNonEmpty(c.Title, c.Description, "current area: "+area)
}

func severityContext(c *event.CanonicalEvent) string {
	category := string(event.CategoryUnknown)
	if c.Category != nil {
		category = string(*c.Category)
	}
	return joinNonEmpty(c.Title, c.Description, "Category: "+category)
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

// Merge helpers: a field is only set when its call succeeded AND produced a
// non-null value, and a field that was already present is never overwritten.

func (s *Service) mergeContent(e *event.EnrichedEvent, outcome *dimOutcome) bool {
	if !outcome.ran || outcome.failed {
		return false
	}
	applied := false
	if e.Category == nil {
		if raw, ok := outcome.result.StringField("category"); ok {
			if category, known := event.ParseCategory(raw); known {
				e.Category = &category
				applied = true
			} else {
				s.logger.Warn().
					Str("event_id", e.ID).
					Str("raw_category", raw).
					Msg("unrecognized category from classification; leaving unset")
			}
		}
	}
	if len(e.Keywords) == 0 {
		if kws := outcome.result.StringsField("keywords"); len(kws) > 0 {
			e.Keywords = capKeywords(dedupeKeywords(kws))
			applied = true
		}
	}
	if strings.TrimSpace(e.Title) == "" {
		if title, ok := outcome.result.StringField("title"); ok {
			e.Title = title
			applied = true
		}
	}
	return applied
}

func mergeSentiment(e *event.EnrichedEvent, outcome *dimOutcome) bool {
	if !outcome.ran || outcome.failed || e.Sentiment != nil {
		return false
	}
	raw, ok := outcome.result.StringField("sentiment")
	if !ok {
		return false
	}
	sentiment, ok := event.ParseSentiment(raw)
	if !ok {
		return false
	}
	e.Sentiment = &sentiment
	return true
}

func mergeLocation(e *event.EnrichedEvent, outcome *dimOutcome) bool {
	if !outcome.ran || outcome.failed {
		return false
	}
	area, areaOK := outcome.result.StringField("area")
	address, addressOK := outcome.result.StringField("address")
	if !areaOK && !addressOK {
		return false
	}

	// Write into a copy: the location pointer may still be shared with the
	// caller's raw input, which must stay untouched.
	loc := event.Location{}
	if e.Location != nil {
		loc = *e.Location
	}
	applied := false
	if areaOK && strings.TrimSpace(loc.Area) == "" {
		loc.Area = area
		applied = true
	}
	if addressOK && strings.TrimSpace(loc.Address) == "" {
		loc.Address = address
		applied = true
	}
	if applied {
		e.Location = &loc
	}
	return applied
}

func (s *Service) mergeSeverity(e *event.EnrichedEvent, outcome *dimOutcome) bool {
	if !outcome.ran || outcome.failed || e.Severity != nil {
		return false
	}
	raw, _ := outcome.result.StringField("severity")
	severity, ok := event.ParseSeverity(raw)
	if !ok {
		// Unmatched severity text degrades to LOW rather than erroring.
		s.logger.Warn().
			Str("event_id", e.ID).
			Str("raw_severity", raw).
			Msg("unrecognized severity from classification; defaulting to LOW")
	}
	e.Severity = &severity
	return true
}

func mergeMedia(e *event.EnrichedEvent, outcome *dimOutcome) bool {
	if !outcome.ran || outcome.failed || e.MediaDesc != "" {
		return false
	}
	description, ok := outcome.result.StringField("description")
	if !ok {
		return false
	}
	e.MediaDesc = description
	return true
}

func mergeInsights(e *event.EnrichedEvent, outcome *dimOutcome) bool {
	if !outcome.ran || outcome.failed || len(outcome.result.Fields) == 0 {
		return false
	}
	if e.Insights == nil {
		e.Insights = make(map[string]any, len(outcome.result.Fields))
	}
	for key, value := range outcome.result.Fields {
		e.Insights[key] = value
	}
	return true
}
