package source

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carrier-dashboard/backend/internal/metrics"
	"github.com/carrier-dashboard/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RecordSource yields the upstream record collection.
type RecordSource interface {
	Fetch(ctx context.Context) ([]models.Record, error)
}

// Snapshot is the record collection served to the views.
type Snapshot struct {
	Records   []models.Record
	FetchedAt time.Time
	FromCache bool
	// Degraded is set when the upstream read failed and Records is the empty fallback.
	Degraded bool
	Err      error
}

// Provider is the single shared entry point to the record collection. It deduplicates
// concurrent fetches, optionally serves a cached payload, and notifies subscribers.
type Provider struct {
	source  RecordSource
	cache   *Cache
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
	group   singleflight.Group

	mu      sync.RWMutex
	subs    map[int]func(models.Event)
	nextSub int
	last    *Snapshot
}

// ProviderConfig configures a Provider. Cache and Metrics are optional.
type ProviderConfig struct {
	Source  RecordSource
	Cache   *Cache
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewProvider creates a provider over cfg.Source.
func NewProvider(cfg ProviderConfig) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		source:  cfg.Source,
		cache:   cfg.Cache,
		timeout: cfg.Timeout,
		logger:  logger.Named("provider"),
		metrics: cfg.Metrics,
		subs:    make(map[int]func(models.Event)),
	}
}

// Records returns the current collection, fetching it if no fresh cached copy exists.
// The only error returned is ctx's; upstream failures produce a degraded, empty snapshot.
func (p *Provider) Records(ctx context.Context) (Snapshot, error) {
	if p.cache != nil {
		records, ok, err := p.cache.Load()
		if err != nil {
			p.logger.Warn("payload cache read failed", zap.Error(err))
		}
		if ok {
			p.metrics.ObserveFetch(metrics.OutcomeCache, 0, len(records))
			snap := Snapshot{Records: records, FetchedAt: time.Now(), FromCache: true}
			p.mu.Lock()
			// A successful fetch filled the cache, so its time is the payload's age.
			if p.last != nil && !p.last.Degraded {
				snap.FetchedAt = p.last.FetchedAt
			}
			p.last = &snap
			p.mu.Unlock()
			return snap, nil
		}
	}
	return p.fetchShared(ctx)
}

// Refresh drops any cached payload and fetches again.
func (p *Provider) Refresh(ctx context.Context) (Snapshot, error) {
	if p.cache != nil {
		if err := p.cache.Invalidate(); err != nil {
			p.logger.Warn("payload cache invalidation failed", zap.Error(err))
		}
	}
	return p.fetchShared(ctx)
}

// Last returns the most recently served snapshot, fetched or cached, if any.
func (p *Provider) Last() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Snapshot{}, false
	}
	return *p.last, true
}

// fetchShared runs at most one upstream fetch at a time. The fetch is detached from the
// caller's cancellation so that one caller leaving does not fail the others.
func (p *Provider) fetchShared(ctx context.Context) (Snapshot, error) {
	ch := p.group.DoChan("records", func() (interface{}, error) {
		fetchCtx, cancel := p.fetchContext(ctx)
		defer cancel()

		records, err := p.source.Fetch(fetchCtx)
		snap := Snapshot{Records: records, FetchedAt: time.Now(), Err: err}
		if err != nil {
			snap.Records = []models.Record{}
			snap.Degraded = true
		} else if p.cache != nil {
			if cerr := p.cache.Store(records); cerr != nil {
				p.logger.Warn("payload cache write failed", zap.Error(cerr))
			}
		}
		if snap.Records == nil {
			snap.Records = []models.Record{}
		}

		p.mu.Lock()
		p.last = &snap
		p.mu.Unlock()

		info := models.RefreshInfo{Records: len(snap.Records), Degraded: snap.Degraded}
		if err != nil {
			info.Error = err.Error()
		}
		p.Notify(models.Event{Type: models.EventRecordsRefreshed, Timestamp: snap.FetchedAt, Payload: info})
		return snap, nil
	})

	select {
	case res := <-ch:
		return res.Val.(Snapshot), nil
	case <-ctx.Done():
		return Snapshot{Records: []models.Record{}}, ctx.Err()
	}
}

func (p *Provider) fetchContext(parent context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(parent)
	if p.timeout > 0 {
		return context.WithTimeout(base, p.timeout)
	}
	return context.WithCancel(base)
}

// Subscribe registers fn for every event and returns a function that removes it.
func (p *Provider) Subscribe(fn func(models.Event)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Notify delivers evt to all subscribers in registration order.
func (p *Provider) Notify(evt models.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	p.mu.RLock()
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(models.Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.subs[id])
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
