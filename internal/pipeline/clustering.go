package pipeline

import (
	"context"

	"github.com/siddhi-labs/citypulse/internal/classify"
	"github.com/siddhi-labs/citypulse/internal/event"
)

// Cluster is an ordered, non-empty set of raw events believed to describe one
// real occurrence. Clusters are transient: they live for one pipeline run and
// are never persisted.
type Cluster struct {
	Events []event.RawEvent
}

// Representative returns the first member, which anchors all similarity
// comparisons for the cluster.
func (c *Cluster) Representative() *event.RawEvent {
	if c == nil || len(c.Events) == 0 {
		return nil
	}
	return &c.Events[0]
}

func (c *Cluster) Size() int {
	if c == nil {
		return 0
	}
	return len(c.Events)
}

// ClusterBucket assigns each event in the bucket to the first existing
// cluster whose representative passes the similarity test, or starts a new
// singleton cluster. O(events x clusters) rather than full pairwise, and
// order-dependent: a different arrival order can legally produce a different
// clustering for ambiguous inputs.
func (s *Service) ClusterBucket(ctx context.Context, bucket []event.RawEvent) []*Cluster {
	clusters := make([]*Cluster, 0, len(bucket))

	for i := range bucket {
		candidate := &bucket[i]
		assigned := false
		for _, cluster := range clusters {
			if s.isSimilar(ctx, cluster.Representative(), candidate) {
				cluster.Events = append(cluster.Events, *candidate)
				assigned = true
				break
			}
		}
		if !assigned {
			clusters = append(clusters, &Cluster{Events: []event.RawEvent{*candidate}})
		}
	}

	return clusters
}

// isSimilar applies the two-tier similarity test: cheap deterministic gates
// first, then one classification call, with a lexical fallback when that call
// fails. A failed call only affects this pair.
func (s *Service) isSimilar(ctx context.Context, a, b *event.RawEvent) bool {
	if a == nil || b == nil {
		return false
	}

	// Category gate: mismatched categories are never the same occurrence,
	// no matter how similar the text reads.
	if a.CategoryOrUnknown() != b.CategoryOrUnknown() {
		return false
	}

	if !locationsProximate(a.Location, b.Location, s.cfg.ProximityRadiusKM) {
		return false
	}
	if !timesProximate(a.Timestamp, b.Timestamp, s.cfg.TimeProximity) {
		return false
	}

	text := "similarity check: " + similarityContext(a) + " vs " + similarityContext(b)
	result, err := s.classifyWithMetrics(ctx, text, classify.TaskSimilarityCheck)
	if err != nil {
		s.metrics.fallbackUsed("clustering")
		score := lexicalSimilarity(a, b)
		similar := score >= s.cfg.FallbackSimilarity
		s.logger.Debug().
			Err(err).
			Str("event_a", a.ID).
			Str("event_b", b.ID).
			Float64("lexical_score", score).
			Bool("similar", similar).
			Msg("similarity check fell back to lexical heuristic")
		return similar
	}

	return result.ConfidenceOrZero() >= s.cfg.SimilarityConfidence
}
