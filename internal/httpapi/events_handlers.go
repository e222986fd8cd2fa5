package httpapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	payloadschema "github.com/siddhi-labs/citypulse/schema"
)

const maxBatchBodyBytes = 8 << 20

// handleProcessBatch accepts a JSON array of raw events, validates each item,
// and runs the pipeline over the valid ones. Invalid items are reported by
// index alongside the result, not rejected wholesale.
func (s *Server) handleProcessBatch(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBatchBodyBytes+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "failed to read request body", nil)
	}
	if len(body) > maxBatchBodyBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "batch body too large", nil)
	}

	events, invalid, err := payloadschema.ValidateBatchPayload(body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "request body must be a JSON array of events", nil)
	}

	rejected := make(map[int]string, len(invalid))
	for index, itemErr := range invalid {
		rejected[index] = itemErr.Error()
	}
	if len(rejected) > 0 {
		s.logger.Warn().Int("rejected", len(rejected)).Msg("batch contained invalid events")
	}

	result, err := s.svc.Process(c.Request().Context(), events)
	if err != nil {
		s.logger.Error().Err(err).Msg("batch processing failed")
		return internalError(c, "batch processing failed")
	}

	return success(c, map[string]any{
		"summary":         result.Summary,
		"outcomes":        result.Outcomes,
		"enriched_events": result.EnrichedEvents,
		"rejected":        rejected,
	})
}
