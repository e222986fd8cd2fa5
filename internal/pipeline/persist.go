package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/siddhi-labs/citypulse/internal/event"
)

// DocumentStore holds the low-latency, TTL-bound copy of each event.
type DocumentStore interface {
	Put(ctx context.Context, e event.EnrichedEvent) (string, error)
}

// Warehouse holds the append-only analytical copy. Rows written here are
// never deleted by this pipeline.
type Warehouse interface {
	Append(ctx context.Context, e event.EnrichedEvent) (string, error)
}

// persistOne issues both store writes concurrently. The writes share no
// transaction: each result is captured on its own, a failure in one never
// cancels or retries the other, and neither failure fails the event. An
// external reconciliation job owns retry.
//
// Each write carries its own deadline so a hung store connection cannot hold
// the batch for longer than the configured write timeout.
func (s *Service) persistOne(ctx context.Context, e event.EnrichedEvent) event.PersistenceOutcome {
	outcome := event.PersistenceOutcome{EventID: e.ID}

	var g errgroup.Group
	g.Go(func() error {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.StoreWriteTimeout)
		defer cancel()
		id, err := s.docs.Put(wctx, e)
		if err != nil {
			s.metrics.storeFailed("doc_store")
			s.logger.Warn().Err(err).Str("event_id", e.ID).Msg("document store write failed")
			outcome.DocStore = event.StoreResult{Err: err.Error()}
			return nil
		}
		outcome.DocStore = event.StoreResult{OK: true, ID: id}
		return nil
	})
	g.Go(func() error {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.StoreWriteTimeout)
		defer cancel()
		id, err := s.warehouse.Append(wctx, e)
		if err != nil {
			s.metrics.storeFailed("warehouse")
			s.logger.Warn().Err(err).Str("event_id", e.ID).Msg("warehouse append failed")
			outcome.Warehouse = event.StoreResult{Err: err.Error()}
			return nil
		}
		outcome.Warehouse = event.StoreResult{OK: true, ID: id}
		return nil
	})
	_ = g.Wait()

	return outcome
}
