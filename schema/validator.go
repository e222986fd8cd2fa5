// Package payloadschema validates raw event payloads at the ingest boundary.
// Invalid payloads are skipped by callers, never fatal to a batch.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/siddhi-labs/citypulse/internal/event"
)

//go:embed city_event.schema.json
var cityEventSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawEventPayload checks one raw event JSON object against the
// embedded schema and converts it into the pipeline's input type.
func ValidateRawEventPayload(payload json.RawMessage) (*event.RawEvent, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var raw event.RawEvent
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&raw); err != nil {
		return nil, err
	}

	return &raw, nil
}

// ValidateBatchPayload decodes a JSON array of raw events. Each invalid item
// is reported by index; valid items are still returned.
func ValidateBatchPayload(payload json.RawMessage) ([]event.RawEvent, map[int]error, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(payload), &items); err != nil {
		return nil, nil, fmt.Errorf("decode batch JSON array: %w", err)
	}

	events := make([]event.RawEvent, 0, len(items))
	invalid := make(map[int]error)
	for i, item := range items {
		raw, err := ValidateRawEventPayload(item)
		if err != nil {
			invalid[i] = err
			continue
		}
		events = append(events, *raw)
	}
	return events, invalid, nil
}

func validateSemantics(raw *event.RawEvent) error {
	if strings.TrimSpace(raw.ID) == "" {
		return fmt.Errorf("id must not be blank")
	}
	if strings.TrimSpace(raw.Title) == "" {
		return fmt.Errorf("title must not be blank")
	}
	if raw.Timestamp != nil && raw.Timestamp.After(time.Now().UTC().Add(24*time.Hour)) {
		return fmt.Errorf("timestamp is more than a day in the future")
	}
	if raw.Location != nil {
		hasLat := raw.Location.Latitude != nil
		hasLon := raw.Location.Longitude != nil
		if hasLat != hasLon {
			return fmt.Errorf("location must carry both latitude and longitude or neither")
		}
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("city_event.schema.json", strings.NewReader(cityEventSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("city_event.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
