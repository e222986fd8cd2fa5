package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/siddhi-labs/citypulse/internal/event"
	"github.com/siddhi-labs/citypulse/internal/globaltime"
)

// WarehouseConfig holds the analytical warehouse settings.
type WarehouseConfig struct {
	Bucket string
	Region string
	// Endpoint is an optional custom endpoint (MinIO, LocalStack).
	Endpoint string
	Prefix   string
}

// ObjectPutter is the slice of the S3 client the warehouse needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Warehouse appends one JSON object per event under a date-partitioned
// prefix. Nothing here ever deletes or rewrites an object; downstream
// analytics own the read side.
type S3Warehouse struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Warehouse(ctx context.Context, cfg WarehouseConfig) (*S3Warehouse, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("warehouse bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewS3WarehouseWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewS3WarehouseWithClient wires a pre-configured client, used by tests.
func NewS3WarehouseWithClient(client ObjectPutter, cfg WarehouseConfig) *S3Warehouse {
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix == "" {
		prefix = "events"
	}
	return &S3Warehouse{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}
}

// Append writes the enriched event as one immutable JSON object and returns
// its object key.
func (w *S3Warehouse) Append(ctx context.Context, e event.EnrichedEvent) (string, error) {
	if w == nil || w.client == nil {
		return "", fmt.Errorf("warehouse is not initialized")
	}
	if e.ID == "" {
		return "", fmt.Errorf("event has no id")
	}

	body, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal event %s: %w", e.ID, err)
	}

	key := w.objectKey(&e)
	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return "", fmt.Errorf("put warehouse object %s: %w", key, err)
	}

	return key, nil
}

func (w *S3Warehouse) objectKey(e *event.EnrichedEvent) string {
	partition := globaltime.UTC()
	if e.Timestamp != nil && !e.Timestamp.IsZero() {
		partition = e.Timestamp.UTC()
	}
	return fmt.Sprintf("%s/dt=%s/%s.json", w.prefix, partition.Format("2006-01-02"), e.ID)
}
