package pipeline

import (
	"fmt"
	"strings"

	"github.com/siddhi-labs/citypulse/internal/event"
)

const (
	unknownAreaKey = "unknown_area"
	unknownTimeKey = "unknown_time"
)

// Group partitions a raw batch into coarse buckets keyed by
// category | normalized area | date + hour window. Clustering only ever
// compares events inside the same bucket, which bounds the pairwise work.
//
// Two reports of the same occurrence that land on opposite sides of a window
// or area-name boundary are never compared. That is an accepted
// precision/performance trade-off; widening the window multiplies comparison
// cost, so tune BucketWindowHours instead of special-casing boundaries here.
func Group(events []event.RawEvent, windowHours int) map[string][]event.RawEvent {
	if windowHours <= 0 {
		windowHours = DefaultBucketWindowHours
	}

	buckets := make(map[string][]event.RawEvent)
	for _, e := range events {
		key := bucketKey(&e, windowHours)
		buckets[key] = append(buckets[key], e)
	}
	return buckets
}

func bucketKey(e *event.RawEvent, windowHours int) string {
	category := string(e.CategoryOrUnknown())

	area := unknownAreaKey
	if e.Location != nil {
		if normalized := strings.ReplaceAll(normalizeText(e.Location.Area), " ", "_"); normalized != "" {
			area = normalized
		}
	}

	window := unknownTimeKey
	if e.Timestamp != nil && !e.Timestamp.IsZero() {
		ts := e.Timestamp.UTC()
		window = fmt.Sprintf("%s-%02d", ts.Format("2006-01-02"), ts.Hour()/windowHours)
	}

	return category + "|" + area + "|" + window
}
