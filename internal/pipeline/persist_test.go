package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/siddhi-labs/citypulse/internal/event"
)

// hangingDocStore never returns until the write context expires.
type hangingDocStore struct{}

func (hangingDocStore) Put(ctx context.Context, _ event.EnrichedEvent) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPersistOne_BoundsHungStoreWrites(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.StoreWriteTimeout = 20 * time.Millisecond
	svc := NewService(&fakeGateway{}, hangingDocStore{}, &fakeWarehouse{}, zerolog.Nop(), nil, cfg)

	start := time.Now()
	outcome := svc.persistOne(context.Background(), event.EnrichedEvent{
		CanonicalEvent: event.CanonicalEvent{ID: "e1"},
	})
	elapsed := time.Since(start)

	if outcome.DocStore.OK {
		t.Fatalf("expected hung doc store write to fail")
	}
	if !strings.Contains(outcome.DocStore.Err, "deadline") {
		t.Fatalf("expected a deadline error, got %q", outcome.DocStore.Err)
	}
	if !outcome.Warehouse.OK {
		t.Fatalf("warehouse write should succeed independently: %+v", outcome.Warehouse)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("write deadline did not bound the hung store, took %v", elapsed)
	}
}

func TestConfigWithDefaults_FillsStoreWriteTimeout(t *testing.T) {
	t.Parallel()

	got := Config{}.withDefaults()
	if got.StoreWriteTimeout != DefaultStoreWriteTimeout {
		t.Fatalf("expected default store write timeout, got %v", got.StoreWriteTimeout)
	}
}
