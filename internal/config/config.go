package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"CP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"CP_DB_MAX_CONNS" default:"8"`

	// Document-store retention. Warehouse rows are append-only and never expire.
	DocRetention time.Duration `envconfig:"CP_DOC_RETENTION" default:"720h"`

	WarehouseBucket   string `envconfig:"CP_WAREHOUSE_BUCKET" default:""`
	WarehouseRegion   string `envconfig:"CP_WAREHOUSE_REGION" default:"ap-south-1"`
	WarehouseEndpoint string `envconfig:"CP_WAREHOUSE_ENDPOINT" default:""`
	WarehousePrefix   string `envconfig:"CP_WAREHOUSE_PREFIX" default:"events"`

	ClassifyEndpoint string        `envconfig:"CP_CLASSIFY_ENDPOINT" default:"http://127.0.0.1:8741"`
	ClassifyTimeout  time.Duration `envconfig:"CP_CLASSIFY_TIMEOUT" default:"30s"`

	// Per-write deadline for the document store and warehouse. Bounds each
	// store call independently of the batch-level context.
	StoreWriteTimeout time.Duration `envconfig:"CP_STORE_WRITE_TIMEOUT" default:"30s"`

	// Dedup heuristics. Thresholds are exposed so they stay independently
	// testable and tunable without a rebuild.
	BucketWindowHours    int           `envconfig:"CP_BUCKET_WINDOW_HOURS" default:"2"`
	ProximityRadiusKM    float64       `envconfig:"CP_PROXIMITY_RADIUS_KM" default:"2.0"`
	TimeProximity        time.Duration `envconfig:"CP_TIME_PROXIMITY" default:"4h"`
	SimilarityConfidence float64       `envconfig:"CP_SIMILARITY_CONFIDENCE" default:"0.75"`
	FallbackSimilarity   float64       `envconfig:"CP_FALLBACK_SIMILARITY" default:"0.75"`
	BatchChunkSize       int           `envconfig:"CP_BATCH_CHUNK_SIZE" default:"20"`

	HTTPHost string `envconfig:"CP_HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"CP_HTTP_PORT" default:"8080"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("CP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("CP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("CP_DB_MIN_CONNS (%d) cannot exceed CP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.DocRetention < time.Hour {
		return fmt.Errorf("CP_DOC_RETENTION must be >= 1h")
	}
	if c.BucketWindowHours < 1 || c.BucketWindowHours > 24 {
		return fmt.Errorf("CP_BUCKET_WINDOW_HOURS must be in [1,24]")
	}
	if c.ProximityRadiusKM <= 0 {
		return fmt.Errorf("CP_PROXIMITY_RADIUS_KM must be > 0")
	}
	if c.TimeProximity <= 0 {
		return fmt.Errorf("CP_TIME_PROXIMITY must be > 0")
	}
	if c.SimilarityConfidence <= 0 || c.SimilarityConfidence > 1 {
		return fmt.Errorf("CP_SIMILARITY_CONFIDENCE must be in (0,1]")
	}
	if c.FallbackSimilarity <= 0 || c.FallbackSimilarity > 1 {
		return fmt.Errorf("CP_FALLBACK_SIMILARITY must be in (0,1]")
	}
	if c.BatchChunkSize < 1 {
		return fmt.Errorf("CP_BATCH_CHUNK_SIZE must be >= 1")
	}
	if c.ClassifyTimeout <= 0 {
		return fmt.Errorf("CP_CLASSIFY_TIMEOUT must be > 0")
	}
	if c.StoreWriteTimeout <= 0 {
		return fmt.Errorf("CP_STORE_WRITE_TIMEOUT must be > 0")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("CP_HTTP_PORT must be a valid port")
	}
	return nil
}
