package db

import (
	"encoding/json"
	"time"
)

// EventDocument maps pulse.event_documents, the low-latency copy served to
// readers. Rows carry expires_at and are swept by an external TTL job; the
// pipeline only ever writes here.
type EventDocument struct {
	DocumentID        int64           `gorm:"column:document_id;primaryKey;autoIncrement"`
	EventID           string          `gorm:"column:event_id;type:text;not null;unique"`
	Title             string          `gorm:"column:title;type:text;not null"`
	Description       string          `gorm:"column:description;type:text;not null;default:''"`
	Content           string          `gorm:"column:content;type:text;not null;default:''"`
	Summary           string          `gorm:"column:summary;type:text;not null;default:''"`
	Category          string          `gorm:"column:category;type:text;not null"`
	Severity          string          `gorm:"column:severity;type:text;not null"`
	Sentiment         *string         `gorm:"column:sentiment;type:text"`
	EventTimestamp    *time.Time      `gorm:"column:event_timestamp;type:timestamptz"`
	Area              *string         `gorm:"column:area;type:text"`
	Address           *string         `gorm:"column:address;type:text"`
	Latitude          *float64        `gorm:"column:latitude;type:double precision"`
	Longitude         *float64        `gorm:"column:longitude;type:double precision"`
	Keywords          json.RawMessage `gorm:"column:keywords;type:jsonb"`
	Confidence        float64         `gorm:"column:confidence;type:double precision;not null;default:0"`
	MediaURL          *string         `gorm:"column:media_url;type:text"`
	MediaDescription  *string         `gorm:"column:media_description;type:text"`
	SourceIDs         json.RawMessage `gorm:"column:source_ids;type:jsonb;not null"`
	AggregationMethod string          `gorm:"column:aggregation_method;type:text;not null"`
	Enrichment        json.RawMessage `gorm:"column:enrichment;type:jsonb;not null"`
	Insights          json.RawMessage `gorm:"column:insights;type:jsonb"`
	ExpiresAt         time.Time       `gorm:"column:expires_at;type:timestamptz;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (EventDocument) TableName() string { return "pulse.event_documents" }
