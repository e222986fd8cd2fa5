// Package store implements the two persistence targets of the pipeline: the
// TTL-bound document store and the append-only analytical warehouse. The two
// share no transaction and fail independently.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/siddhi-labs/citypulse/internal/db"
	"github.com/siddhi-labs/citypulse/internal/event"
	"github.com/siddhi-labs/citypulse/internal/globaltime"
)

const DefaultDocRetention = 720 * time.Hour

// DocStore writes enriched events into Postgres with a retention horizon.
type DocStore struct {
	pool      *db.Pool
	retention time.Duration
}

func NewDocStore(pool *db.Pool, retention time.Duration) *DocStore {
	if retention <= 0 {
		retention = DefaultDocRetention
	}
	return &DocStore{
		pool:      pool,
		retention: retention,
	}
}

// Put upserts one event document. Re-processing the same event id refreshes
// the row and its expiry rather than duplicating it.
func (s *DocStore) Put(ctx context.Context, e event.EnrichedEvent) (string, error) {
	if s == nil || s.pool == nil {
		return "", fmt.Errorf("document store is not initialized")
	}
	if e.ID == "" {
		return "", fmt.Errorf("event has no id")
	}

	record, err := toEventDocument(&e, globaltime.UTC(), s.retention)
	if err != nil {
		return "", err
	}

	result := s.pool.GORM().WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "content", "summary", "category", "severity",
			"sentiment", "event_timestamp", "area", "address", "latitude",
			"longitude", "keywords", "confidence", "media_url",
			"media_description", "source_ids", "aggregation_method",
			"enrichment", "insights", "expires_at", "updated_at",
		}),
	}).Create(record)
	if result.Error != nil {
		return "", fmt.Errorf("upsert event document event_id=%s: %w", e.ID, result.Error)
	}

	return e.ID, nil
}

func toEventDocument(e *event.EnrichedEvent, now time.Time, retention time.Duration) (*db.EventDocument, error) {
	category := string(event.CategoryUnknown)
	if e.Category != nil {
		category = string(*e.Category)
	}
	severity := string(event.SeverityLow)
	if e.Severity != nil {
		severity = string(*e.Severity)
	}

	keywordsJSON, err := json.Marshal(e.Keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}
	sourceIDsJSON, err := json.Marshal(e.SourceIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal source ids: %w", err)
	}
	enrichmentJSON, err := json.Marshal(e.Enrichment)
	if err != nil {
		return nil, fmt.Errorf("marshal enrichment info: %w", err)
	}
	var insightsJSON json.RawMessage
	if len(e.Insights) > 0 {
		insightsJSON, err = json.Marshal(e.Insights)
		if err != nil {
			return nil, fmt.Errorf("marshal insights: %w", err)
		}
	}

	record := &db.EventDocument{
		EventID:           e.ID,
		Title:             e.Title,
		Description:       e.Description,
		Content:           e.Content,
		Summary:           e.Summary,
		Category:          category,
		Severity:          severity,
		EventTimestamp:    e.Timestamp,
		Keywords:          keywordsJSON,
		Confidence:        e.Confidence,
		SourceIDs:         sourceIDsJSON,
		AggregationMethod: string(e.Method),
		Enrichment:        enrichmentJSON,
		Insights:          insightsJSON,
		ExpiresAt:         now.Add(retention),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if e.Sentiment != nil {
		sentiment := string(*e.Sentiment)
		record.Sentiment = &sentiment
	}
	if e.Location != nil {
		if e.Location.Area != "" {
			area := e.Location.Area
			record.Area = &area
		}
		if e.Location.Address != "" {
			address := e.Location.Address
			record.Address = &address
		}
		record.Latitude = e.Location.Latitude
		record.Longitude = e.Location.Longitude
	}
	if e.MediaURL != "" {
		mediaURL := e.MediaURL
		record.MediaURL = &mediaURL
	}
	if e.MediaDesc != "" {
		mediaDescription := e.MediaDesc
		record.MediaDescription = &mediaDescription
	}

	return record, nil
}
