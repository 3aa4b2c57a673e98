package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/carrier-dashboard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// blockingSource counts calls and blocks each one until release is closed.
type blockingSource struct {
	calls   atomic.Int32
	release chan struct{}
	records []models.Record
	err     error
}

func (s *blockingSource) Fetch(ctx context.Context) ([]models.Record, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return []models.Record{}, ctx.Err()
		}
	}
	if s.err != nil {
		return []models.Record{}, s.err
	}
	return s.records, nil
}

func TestProvider_DeduplicatesConcurrentFetches(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &blockingSource{
		release: make(chan struct{}),
		records: []models.Record{testutil.Carrier(1, "CARRIER", "OUT-OF-SERVICE", "2023-05-01")},
	}
	p := NewProvider(ProviderConfig{Source: src})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Snapshot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := p.Records(context.Background())
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, snap := range results {
		assert.Len(t, snap.Records, 1)
		assert.False(t, snap.Degraded)
	}
}

func TestProvider_CallerCancellationDoesNotCancelSharedFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &blockingSource{
		release: make(chan struct{}),
		records: []models.Record{testutil.Carrier(1, "BROKER", "", "2023-05-01")},
	}
	p := NewProvider(ProviderConfig{Source: src})

	done := make(chan models.Event, 1)
	unsubscribe := p.Subscribe(func(evt models.Event) { done <- evt })
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.Records(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(src.release)
	select {
	case evt := <-done:
		assert.Equal(t, models.EventRecordsRefreshed, evt.Type)
		info := evt.Payload.(models.RefreshInfo)
		assert.Equal(t, 1, info.Records)
		assert.False(t, info.Degraded)
	case <-time.After(2 * time.Second):
		t.Fatal("shared fetch never completed")
	}

	last, ok := p.Last()
	require.True(t, ok)
	assert.Len(t, last.Records, 1)
}

func TestProvider_DegradesToEmptyOnFailure(t *testing.T) {
	src := &blockingSource{err: ErrMalformed}
	p := NewProvider(ProviderConfig{Source: src})

	var events []models.Event
	p.Subscribe(func(evt models.Event) { events = append(events, evt) })

	snap, err := p.Records(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.True(t, errors.Is(snap.Err, ErrMalformed))
	assert.NotNil(t, snap.Records)
	assert.Empty(t, snap.Records)

	require.Len(t, events, 1)
	assert.True(t, events[0].Payload.(models.RefreshInfo).Degraded)
}

func TestProvider_ServesFromCache(t *testing.T) {
	cache, err := OpenCache("", time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	src := &blockingSource{records: []models.Record{testutil.Carrier(7, "CARRIER", "OUT-OF-SERVICE", "2023-01-01")}}
	p := NewProvider(ProviderConfig{Source: src, Cache: cache})

	first, err := p.Records(context.Background())
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := p.Records(context.Background())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, int32(1), src.calls.Load())

	_, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestProvider_CacheHitUpdatesLast(t *testing.T) {
	cache, err := OpenCache("", time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	records := []models.Record{testutil.Carrier(7, "CARRIER", "OUT-OF-SERVICE", "2023-01-01")}
	require.NoError(t, cache.Store(records))

	// A provider started over a warm cache has never fetched.
	src := &blockingSource{records: records}
	p := NewProvider(ProviderConfig{Source: src, Cache: cache})
	_, ok := p.Last()
	require.False(t, ok)

	snap, err := p.Records(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.FromCache)
	assert.Zero(t, src.calls.Load())

	last, ok := p.Last()
	require.True(t, ok)
	assert.True(t, last.FromCache)
	assert.False(t, last.Degraded)
	assert.Len(t, last.Records, 1)

	fetched, err := p.Refresh(context.Background())
	require.NoError(t, err)
	_, err = p.Records(context.Background())
	require.NoError(t, err)
	last, ok = p.Last()
	require.True(t, ok)
	assert.True(t, last.FromCache)
	assert.Equal(t, fetched.FetchedAt, last.FetchedAt)
}

func TestProvider_FailedFetchIsNotCached(t *testing.T) {
	cache, err := OpenCache("", time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	src := &blockingSource{err: ErrNetwork}
	p := NewProvider(ProviderConfig{Source: src, Cache: cache})

	_, err = p.Records(context.Background())
	require.NoError(t, err)
	_, err = p.Records(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestProvider_Unsubscribe(t *testing.T) {
	p := NewProvider(ProviderConfig{Source: &blockingSource{}})
	var count int
	unsubscribe := p.Subscribe(func(models.Event) { count++ })

	p.Notify(models.Event{Type: "x"})
	unsubscribe()
	p.Notify(models.Event{Type: "x"})

	assert.Equal(t, 1, count)
}
