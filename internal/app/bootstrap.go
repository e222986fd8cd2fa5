package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/siddhi-labs/citypulse/internal/classify"
	"github.com/siddhi-labs/citypulse/internal/config"
	"github.com/siddhi-labs/citypulse/internal/db"
	"github.com/siddhi-labs/citypulse/internal/pipeline"
	"github.com/siddhi-labs/citypulse/internal/store"
)

// buildPipeline assembles the classify gateway, both event stores and the
// pipeline service from loaded configuration. The returned pool must be
// closed by the caller.
func buildPipeline(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pipeline.Service, *db.Pool, error) {
	if cfg.WarehouseBucket == "" {
		return nil, nil, fmt.Errorf("CP_WAREHOUSE_BUCKET is required to run the pipeline")
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	warehouse, err := store.NewS3Warehouse(ctx, store.WarehouseConfig{
		Bucket:   cfg.WarehouseBucket,
		Region:   cfg.WarehouseRegion,
		Endpoint: cfg.WarehouseEndpoint,
		Prefix:   cfg.WarehousePrefix,
	})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("initialize warehouse: %w", err)
	}

	gateway := classify.NewHTTPGateway(cfg.ClassifyEndpoint, cfg.ClassifyTimeout)
	docs := store.NewDocStore(pool, cfg.DocRetention)
	metrics := pipeline.NewMetrics(prometheus.DefaultRegisterer)

	svc := pipeline.NewService(gateway, docs, warehouse, logger, metrics, pipeline.Config{
		BucketWindowHours:    cfg.BucketWindowHours,
		ProximityRadiusKM:    cfg.ProximityRadiusKM,
		TimeProximity:        cfg.TimeProximity,
		SimilarityConfidence: cfg.SimilarityConfidence,
		FallbackSimilarity:   cfg.FallbackSimilarity,
		BatchChunkSize:       cfg.BatchChunkSize,
		StoreWriteTimeout:    cfg.StoreWriteTimeout,
	})
	return svc, pool, nil
}
