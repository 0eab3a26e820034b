package ingestion

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/ingestion/stub"
	"fx-impact-lab/internal/storage"
	"fx-impact-lab/internal/storage/memory"
)

// orderValidatingEventStore wraps an EventStore and validates ordering in InsertBulk.
// Returns ErrInvalidOrdering if events are not properly ordered.
type orderValidatingEventStore struct {
	storage.EventStore
}

func (s *orderValidatingEventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if err := ValidateEventOrdering(events); err != nil {
		return err
	}
	return s.EventStore.InsertBulk(ctx, events)
}

// orderValidatingPriceStore wraps a PriceSampleStore and validates ordering in InsertBulk.
type orderValidatingPriceStore struct {
	storage.PriceSampleStore
}

func (s *orderValidatingPriceStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) error {
	if err := ValidatePriceOrdering(samples); err != nil {
		return err
	}
	return s.PriceSampleStore.InsertBulk(ctx, samples)
}

func TestManager_IngestEvents_Ordering(t *testing.T) {
	events := []*domain.Event{
		{EventID: "e3", TimestampMs: 3000, Country: "US", Title: "CPI"},
		{EventID: "e1", TimestampMs: 1000, Country: "US", Title: "NFP"},
		{EventID: "e2", TimestampMs: 2000, Country: "US", Title: "PMI"},
	}

	mgr := NewManager(ManagerOptions{
		EventSource: stub.NewStubEventSource(events),
		EventStore:  &orderValidatingEventStore{EventStore: memory.NewEventStore()},
	})

	res, err := mgr.IngestEvents(context.Background(), 0, 10000)
	require.NoError(t, err, "Manager must sort before InsertBulk")
	assert.Equal(t, Result{Fetched: 3, Inserted: 3}, res)
}

func TestManager_IngestEvents_DuplicateRejection(t *testing.T) {
	events := []*domain.Event{{EventID: "e1", TimestampMs: 1000, Country: "US", Title: "NFP"}}
	store := memory.NewEventStore()
	mgr := NewManager(ManagerOptions{
		EventSource: stub.NewStubEventSource(events),
		EventStore:  store,
	})

	ctx := context.Background()
	_, err := mgr.IngestEvents(ctx, 0, 10000)
	require.NoError(t, err)

	_, err = mgr.IngestEvents(ctx, 0, 10000)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestManager_IngestEvents_SkipExisting(t *testing.T) {
	first := []*domain.Event{{EventID: "e1", TimestampMs: 1000, Country: "US", Title: "NFP"}}
	second := []*domain.Event{
		{EventID: "e1", TimestampMs: 1000, Country: "US", Title: "NFP"},
		{EventID: "e2", TimestampMs: 2000, Country: "US", Title: "CPI"},
	}
	store := memory.NewEventStore()
	ctx := context.Background()

	_, err := NewManager(ManagerOptions{EventSource: stub.NewStubEventSource(first), EventStore: store}).
		IngestEvents(ctx, 0, 10000)
	require.NoError(t, err)

	res, err := NewManager(ManagerOptions{
		EventSource:  stub.NewStubEventSource(second),
		EventStore:   store,
		SkipExisting: true,
	}).IngestEvents(ctx, 0, 10000)
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 2, Existing: 1, Inserted: 1}, res)

	stored, err := store.GetByTimeRange(ctx, 0, 10000)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestManager_IngestEvents_SourceError(t *testing.T) {
	boom := errors.New("boom")
	mgr := NewManager(ManagerOptions{
		EventSource: stub.NewStubEventSource(nil).WithError(boom),
		EventStore:  memory.NewEventStore(),
	})

	_, err := mgr.IngestEvents(context.Background(), 0, 10000)
	assert.ErrorIs(t, err, boom)
}

func TestManager_IngestPrices_SortsAndDedupes(t *testing.T) {
	samples := []*domain.PriceSample{
		{Symbol: "EURUSD", TimestampMs: 3000, Close: 1.3},
		{Symbol: "EURUSD", TimestampMs: 1000, Close: 1.1},
		{Symbol: "EURUSD", TimestampMs: 2000, Close: 1.2},
		{Symbol: "EURUSD", TimestampMs: 2000, Close: 1.25},
	}
	store := memory.NewPriceSampleStore()
	mgr := NewManager(ManagerOptions{
		PriceSource: stub.NewStubPriceSource(samples),
		PriceStore:  &orderValidatingPriceStore{PriceSampleStore: store},
	})

	ctx := context.Background()
	res, err := mgr.IngestPrices(ctx, 0, 10000)
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 4, Duplicates: 1, Inserted: 3}, res)

	stored, err := store.GetByTimeRange(ctx, "EURUSD", 0, 10000)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, 1.25, stored[1].Close)
}

func TestManager_IngestPrices_SkipExisting(t *testing.T) {
	store := memory.NewPriceSampleStore()
	ctx := context.Background()
	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceSample{
		{Symbol: "EURUSD", TimestampMs: 1000, Close: 1.1},
	}))

	mgr := NewManager(ManagerOptions{
		PriceSource: stub.NewStubPriceSource([]*domain.PriceSample{
			{Symbol: "EURUSD", TimestampMs: 1000, Close: 1.1},
			{Symbol: "EURUSD", TimestampMs: 2000, Close: 1.2},
		}),
		PriceStore:   store,
		SkipExisting: true,
	})

	res, err := mgr.IngestPrices(ctx, 0, 10000)
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 2, Existing: 1, Inserted: 1}, res)
}

func TestManager_NoSourceConfigured(t *testing.T) {
	mgr := NewManager(ManagerOptions{})

	res, err := mgr.IngestEvents(context.Background(), 0, 1)
	assert.NoError(t, err)
	assert.Zero(t, res.Inserted)

	res, err = mgr.IngestPrices(context.Background(), 0, 1)
	assert.NoError(t, err)
	assert.Zero(t, res.Inserted)
}

func TestManager_CSVSources(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.csv")
	pricesPath := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(eventsPath, []byte(eventsCSV), 0644))
	require.NoError(t, os.WriteFile(pricesPath, []byte(
		"ts_utc,close\n2024-06-07T12:30:00Z,1.0850\n2024-06-07T12:29:00Z,1.0849\n"), 0644))

	eventSource := NewCSVEventSource(eventsPath)
	priceSource := NewCSVPriceSource(pricesPath, "EURUSD")
	mgr := NewManager(ManagerOptions{
		EventSource: eventSource,
		PriceSource: priceSource,
		EventStore:  memory.NewEventStore(),
		PriceStore:  memory.NewPriceSampleStore(),
	})

	ctx := context.Background()
	evRes, err := mgr.IngestEvents(ctx, 0, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, 3, evRes.Inserted)
	assert.Equal(t, ParseStats{Rows: 5, Dropped: 2}, eventSource.Stats())

	pxRes, err := mgr.IngestPrices(ctx, 0, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, 2, pxRes.Inserted)
	assert.Equal(t, ParseStats{Rows: 2}, priceSource.Stats())
}

func TestCSVEventSource_MissingFile(t *testing.T) {
	_, err := NewCSVEventSource(filepath.Join(t.TempDir(), "missing.csv")).Fetch(context.Background(), 0, 1)
	assert.Error(t, err)
}
