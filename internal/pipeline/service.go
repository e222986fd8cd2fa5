// Package pipeline implements the event deduplication, clustering, and
// enrichment pipeline: raw reports in, deduplicated and enriched canonical
// events out, persisted to the document store and the analytical warehouse.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/siddhi-labs/citypulse/internal/classify"
	"github.com/siddhi-labs/citypulse/internal/event"
	"github.com/siddhi-labs/citypulse/internal/globaltime"
)

// Tunable defaults. Every threshold is a config knob so the heuristics stay
// independently testable.
const (
	DefaultBucketWindowHours    = 2
	DefaultProximityRadiusKM    = 2.0
	DefaultTimeProximity        = 4 * time.Hour
	DefaultSimilarityConfidence = 0.75
	DefaultFallbackSimilarity   = 0.75
	DefaultBatchChunkSize       = 20
	DefaultStoreWriteTimeout    = 30 * time.Second
)

// Config carries the pipeline thresholds. The AI similarity confidence and
// the lexical fallback threshold are deliberately separate knobs even though
// they share a default; they score different things.
type Config struct {
	BucketWindowHours    int
	ProximityRadiusKM    float64
	TimeProximity        time.Duration
	SimilarityConfidence float64
	FallbackSimilarity   float64
	BatchChunkSize       int
	StoreWriteTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		BucketWindowHours:    DefaultBucketWindowHours,
		ProximityRadiusKM:    DefaultProximityRadiusKM,
		TimeProximity:        DefaultTimeProximity,
		SimilarityConfidence: DefaultSimilarityConfidence,
		FallbackSimilarity:   DefaultFallbackSimilarity,
		BatchChunkSize:       DefaultBatchChunkSize,
		StoreWriteTimeout:    DefaultStoreWriteTimeout,
	}
}

func (c Config) withDefaults() Config {
	out := c
	if out.BucketWindowHours <= 0 {
		out.BucketWindowHours = DefaultBucketWindowHours
	}
	if out.ProximityRadiusKM <= 0 {
		out.ProximityRadiusKM = DefaultProximityRadiusKM
	}
	if out.TimeProximity <= 0 {
		out.TimeProximity = DefaultTimeProximity
	}
	if out.SimilarityConfidence <= 0 || out.SimilarityConfidence > 1 {
		out.SimilarityConfidence = DefaultSimilarityConfidence
	}
	if out.FallbackSimilarity <= 0 || out.FallbackSimilarity > 1 {
		out.FallbackSimilarity = DefaultFallbackSimilarity
	}
	if out.BatchChunkSize <= 0 {
		out.BatchChunkSize = DefaultBatchChunkSize
	}
	if out.StoreWriteTimeout <= 0 {
		out.StoreWriteTimeout = DefaultStoreWriteTimeout
	}
	return out
}

type Service struct {
	gateway   classify.Gateway
	docs      DocumentStore
	warehouse Warehouse
	logger    zerolog.Logger
	metrics   *Metrics
	cfg       Config
}

func NewService(
	gateway classify.Gateway,
	docs DocumentStore,
	warehouse Warehouse,
	logger zerolog.Logger,
	metrics *Metrics,
	cfg Config,
) *Service {
	return &Service{
		gateway:   gateway,
		docs:      docs,
		warehouse: warehouse,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg.withDefaults(),
	}
}

// Summary aggregates one batch run.
type Summary struct {
	InputCount  int     `json:"input_count"`
	OutputCount int     `json:"output_count"`
	DedupRatio  float64 `json:"dedup_ratio"`
}

// ProcessResult is the batch entry point's return value.
type ProcessResult struct {
	EnrichedEvents []event.EnrichedEvent      `json:"enriched_events"`
	Outcomes       []event.PersistenceOutcome `json:"outcomes"`
	Summary        Summary                    `json:"summary"`
}

// Process runs the full pipeline over one raw batch: group, cluster,
// synthesize, enrich, persist. Individual call failures are absorbed by the
// stage fallbacks; Process only errors when no work can run at all.
func (s *Service) Process(ctx context.Context, events []event.RawEvent) (ProcessResult, error) {
	if s == nil || s.gateway == nil || s.docs == nil || s.warehouse == nil {
		return ProcessResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	started := globaltime.Now()
	inputCount := len(events)
	if inputCount == 0 {
		return ProcessResult{Summary: Summary{}}, nil
	}

	clusters := s.clusterAll(ctx, events)

	canonical := make([]event.CanonicalEvent, len(clusters))
	s.forEachChunked(len(clusters), func(i int) {
		canonical[i] = s.Synthesize(ctx, clusters[i])
	})

	enriched := make([]event.EnrichedEvent, len(canonical))
	s.forEachChunked(len(canonical), func(i int) {
		enriched[i] = s.Enrich(ctx, canonical[i])
	})

	outcomes := make([]event.PersistenceOutcome, len(enriched))
	s.forEachChunked(len(enriched), func(i int) {
		outcomes[i] = s.persistOne(ctx, enriched[i])
	})

	outputCount := len(enriched)
	summary := Summary{
		InputCount:  inputCount,
		OutputCount: outputCount,
	}
	if inputCount > 0 {
		summary.DedupRatio = float64(inputCount-outputCount) / float64(inputCount)
	}

	elapsed := globaltime.Now().Sub(started)
	s.metrics.batchObserved(inputCount, outputCount, elapsed.Seconds())
	s.logger.Info().
		Int("input_count", inputCount).
		Int("output_count", outputCount).
		Float64("dedup_ratio", summary.DedupRatio).
		Dur("elapsed", elapsed).
		Msg("batch processed")

	return ProcessResult{
		EnrichedEvents: enriched,
		Outcomes:       outcomes,
		Summary:        summary,
	}, nil
}

// clusterAll groups the batch into buckets and clusters each bucket.
// Within a bucket assignment is strictly sequential (first-match-wins);
// buckets are independent and run concurrently up to the chunk bound.
func (s *Service) clusterAll(ctx context.Context, events []event.RawEvent) []*Cluster {
	buckets := Group(events, s.cfg.BucketWindowHours)

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	perBucket := make([][]*Cluster, len(keys))
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchChunkSize)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			perBucket[i] = s.ClusterBucket(ctx, buckets[key])
			return nil
		})
	}
	_ = g.Wait()

	var clusters []*Cluster
	for _, bucketClusters := range perBucket {
		for _, cluster := range bucketClusters {
			if cluster.Size() >= 2 {
				s.metrics.clusterFormed()
			}
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// forEachChunked runs fn for each index with bounded concurrency. Slots are
// disjoint, so callers write results without locking.
func (s *Service) forEachChunked(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchChunkSize)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// classifyWithMetrics wraps a gateway call with call/failure counters.
func (s *Service) classifyWithMetrics(ctx context.Context, text string, task classify.TaskLabel) (classify.Result, error) {
	s.metrics.classifyCalled(string(task))
	result, err := s.gateway.Classify(ctx, text, task)
	if err != nil {
		s.metrics.classifyFailed(string(task))
		return classify.Result{}, err
	}
	return result, nil
}
