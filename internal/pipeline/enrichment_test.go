package pipeline

import (
	"context"
	"reflect"
	"testing"

	"github.com/siddhi-labs/citypulse/internal/classify"
	"github.com/siddhi-labs/citypulse/internal/event"
)

func TestEnrich_FillsMissingFields(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		classifyFn: func(_ string, task classify.TaskLabel) (classify.Result, error) {
			switch task {
			case classify.TaskContentAnalysis:
				return confidentResult(0.9, map[string]any{
					"category": "traffic",
					"keywords": []any{"jam", "silk board"},
				}), nil
			case classify.TaskSentimentAnalysis:
				return confidentResult(0.9, map[string]any{"sentiment": "negative"}), nil
			case classify.TaskLocationInference:
				return confidentResult(0.9, map[string]any{"area": "Silk Board", "address": "Hosur Road junction"}), nil
			case classify.TaskSeverityAssess:
				return confidentResult(0.9, map[string]any{"severity": "high"}), nil
			case classify.TaskInsightGeneration:
				return confidentResult(0.9, map[string]any{"expected_duration": "2h"}), nil
			default:
				t.Errorf("unexpected task %q", task)
				return classify.Result{}, nil
			}
		},
	}
	svc := newTestService(gw, &fakeDocStore{}, &fakeWarehouse{})

	canonical := event.CanonicalEvent{
		ID:          "c1",
		Description: "Long queues reported at the junction",
	}
	got := svc.Enrich(context.Background(), canonical)

	if got.Category == nil || *got.Category != event.CategoryTraffic {
		t.Fatalf("expected inferred TRAFFIC category, got %v", got.Category)
	}
	if !reflect.DeepEqual(got.Keywords, []string{"jam", "silk board"}) {
		t.Fatalf("unexpected keywords: %v", got.Keywords)
	}
	if got.Sentiment == nil || *got.Sentiment != event.SentimentNegative {
		t.Fatalf("expected NEGATIVE sentiment, got %v", got.Sentiment)
	}
	if got.Location == nil || got.Location.Area != "Silk Board" || got.Location.Address != "Hosur Road junction" {
		t.Fatalf("unexpected location: %+v", got.Location)
	}
	if got.Severity == nil || *got.Severity != event.SeverityHigh {
		t.Fatalf("expected HIGH severity, got %v", got.Severity)
	}
	if got.Insights["expected_duration"] != "2h" {
		t.Fatalf("unexpected insights: %v", got.Insights)
	}
	if got.Enrichment.Method == "" || got.Enrichment.EnrichedAt.IsZero() {
		t.Fatalf("expected enrichment provenance to be stamped: %+v", got.Enrichment)
	}
	if len(got.Enrichment.FailedFields) != 0 {
		t.Fatalf("expected no failed fields, got %v", got.Enrichment.FailedFields)
	}
	want := []string{"content", "insights", "location", "sentiment", "severity"}
	if !reflect.DeepEqual(got.Enrichment.AIProcessedFields, want) {
		t.Fatalf("unexpected processed fields: %v", got.Enrichment.AIProcessedFields)
	}
}

func TestEnrich_NeverOverwritesExistingFields(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		classifyFn: func(_ string, task classify.TaskLabel) (classify.Result, error) {
			return confidentResult(0.9, map[string]any{
				"category":  "weather",
				"sentiment": "positive",
				"severity":  "critical",
				"area":      "Somewhere Else",
			}), nil
		},
	}
	svc := newTestService(gw, &fakeDocStore{}, &fakeWarehouse{})

	sentiment := event.SentimentNegative
	severity := event.SeverityLow
	canonical := event.CanonicalEvent{
		ID:        "c1",
		Title:     "Jam at Silk Board",
		Category:  categoryPtr(event.CategoryTraffic),
		Sentiment: &sentiment,
		Severity:  &severity,
		Location:  &event.Location{Area: "Silk Board"},
		Keywords:  []string{"jam"},
	}
	got := svc.Enrich(context.Background(), canonical)

	if *got.Category != event.CategoryTraffic {
		t.Fatalf("category was overwritten: %v", *got.Category)
	}
	if *got.Sentiment != event.SentimentNegative {
		t.Fatalf("sentiment was overwritten: %v", *got.Sentiment)
	}
	if *got.Severity != event.SeverityLow {
		t.Fatalf("severity was overwritten: %v", *got.Severity)
	}
	if got.Location.Area != "Silk Board" {
		t.Fatalf("area was overwritten: %q", got.Location.Area)
	}
}

func TestEnrich_SkipsResolvedDimensions(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		classifyFn: func(_ string, task classify.TaskLabel) (classify.Result, error) {
			return confidentResult(0.9, map[string]any{"note": "ok"}), nil
		},
	}
	svc := newTestService(gw, &fakeDocStore{}, &fakeWarehouse{})

	sentiment := event.SentimentNeutral
	severity := event.SeverityModerate
	canonical := event.CanonicalEvent{
		ID:        "c1",
		Title:     "Planned water outage",
		Category:  categoryPtr(event.CategoryCivicIssue),
		Sentiment: &sentiment,
		Severity:  &severity,
		Location:  &event.Location{Area: "Jayanagar"},
		Keywords:  []string{"water"},
	}
	svc.Enrich(context.Background(), canonical)

	// Only the always-on insight dimension should have fired.
	if got := len(gw.calls); got != 1 {
		t.Fatalf("expected a single classification call, got %d (%v)", got, gw.calls)
	}
	if gw.calls[0] != classify.TaskInsightGeneration {
		t.Fatalf("expected insight call, got %q", gw.calls[0])
	}
}

func TestEnrich_MediaDimensionRunsOnlyWithURL(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		classifyFn: func(_ string, task classify.TaskLabel) (classify.Result, error) {
			if task == classify.TaskMediaAnalysis {
				return confidentResult(0.9, map[string]any{"description": "flooded street, knee-deep water"}), nil
			}
			return confidentResult(0.9, map[string]any{}), nil
		},
	}
	svc := newTestService(gw, &fakeDocStore{}, &fakeWarehouse{})

	withMedia := event.CanonicalEvent{ID: "c1", Title: "Flooding", MediaURL: "https://example.com/1.jpg"}
	got := svc.Enrich(context.Background(), withMedia)
	if got.MediaDesc != "flooded street, knee-deep water" {
		t.Fatalf("expected media description, got %q", got.MediaDesc)
	}

	withoutMedia := event.CanonicalEvent{ID: "c2", Title: "Flooding"}
	svc.Enrich(context.Background(), withoutMedia)
	if gw.taskCalls(classify.TaskMediaAnalysis) != 1 {
		t.Fatalf("media analysis should only run when a url is present, got %d calls", gw.taskCalls(classify.TaskMediaAnalysis))
	}
}

func TestEnrich_UnknownCategoryStaysUnset(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		classifyFn: func(_ string, task classify.TaskLabel) (classify.Result, error) {
			if task == classify.TaskContentAnalysis {
				return confidentResult(0.9, map[string]any{"category": "weatherish"}), nil
			}
			return confidentResult(0.9, map[string]any{}), nil
		},
	}
	svc := newTestService(gw, &fakeDocStore{}, &fakeWarehouse{})

	canonical := event.CanonicalEvent{
		ID:       "c1",
		Title:    "Hailstorm over Whitefield",
		Keywords: []string{"hail"},
	}
	got := svc.Enrich(context.Background(), canonical)

	if got.Category != nil {
		t.Fatalf("category outside the enum must stay unset, got %v", *got.Category)
	}
	recorded := false
	for _, field := range got.Enrichment.FailedFields {
		if field == "content" {
			recorded = true
		}
	}
	if !recorded {
		t.Fatalf("content dimension should count as failed, got %v", got.Enrichment.FailedFields)
	}
}

func TestEnrich_UnrecognizedSeverityDefaultsToLow(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		classifyFn: func(_ string, task classify.TaskLabel) (classify.Result, error) {
			if task == classify.TaskSeverityAssess {
				return confidentResult(0.9, map[string]any{"severity": "catastrophic"}), nil
			}
			return confidentResult(0.9, map[string]any{}), nil
		},
	}
	svc := newTestService(gw, &fakeDocStore{}, &fakeWarehouse{})

	got := svc.Enrich(context.Background(), event.CanonicalEvent{ID: "c1", Title: "Building fire reported"})
	if got.Severity == nil || *got.Severity != event.SeverityLow {
		t.Fatalf("expected LOW default for unrecognized severity, got %v", got.Severity)
	}
}

func TestEnrich_FailedDimensionIsRecordedAndOthersProceed(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		classifyFn: func(_ string, task classify.TaskLabel) (classify.Result, error) {
			switch task {
			case classify.TaskSentimentAnalysis:
				return classify.Result{}, context.DeadlineExceeded
			case classify.TaskSeverityAssess:
				return confidentResult(0.9, map[string]any{"severity": "moderate"}), nil
			default:
				return confidentResult(0.9, map[string]any{"kind": "insight"}), nil
			}
		},
	}
	svc := newTestService(gw, &fakeDocStore{}, &fakeWarehouse{})

	canonical := event.CanonicalEvent{
		ID:       "c1",
		Title:    "Metro line disruption",
		Category: categoryPtr(event.CategoryInfrastructure),
		Keywords: []string{"metro"},
		Location: &event.Location{Area: "Majestic"},
	}
	got := svc.Enrich(context.Background(), canonical)

	if got.Sentiment != nil {
		t.Fatalf("failed sentiment call must leave the field unset, got %v", got.Sentiment)
	}
	if got.Severity == nil || *got.Severity != event.SeverityModerate {
		t.Fatalf("other dimensions must proceed, got severity %v", got.Severity)
	}
	if !reflect.DeepEqual(got.Enrichment.FailedFields, []string{"sentiment"}) {
		t.Fatalf("unexpected failed fields: %v", got.Enrichment.FailedFields)
	}
}
