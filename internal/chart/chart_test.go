package chart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/carrier-dashboard/backend/internal/source"
	"github.com/carrier-dashboard/backend/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_CountsPerMonthAndEntity(t *testing.T) {
	records, _, err := source.DecodeRecords([]byte(testutil.CarrierJSON))
	require.NoError(t, err)

	got := NewAggregator("", nil, nil).Aggregate(records)
	want := []models.Bucket{
		{Month: "2023-05", Carrier: 3, Broker: 0},
		{Month: "2023-06", Carrier: 0, Broker: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_ExcludesOtherStatuses(t *testing.T) {
	records := []models.Record{
		testutil.Carrier(1, "CARRIER", "AUTHORIZED", "2023-05-01"),
		testutil.Carrier(2, "BROKER", "", "2023-05-02"),
		testutil.Carrier(3, "CARRIER", "out-of-service", "2023-05-03"),
	}
	assert.Empty(t, NewAggregator("", nil, nil).Aggregate(records))
}

func TestAggregate_OtherEntityTypesOpenAZeroBucket(t *testing.T) {
	records := []models.Record{
		testutil.Carrier(1, "SHIPPER", "OUT-OF-SERVICE", "2023-08-01"),
	}
	got := NewAggregator("", nil, nil).Aggregate(records)
	assert.Equal(t, []models.Bucket{{Month: "2023-08"}}, got)
}

func TestAggregate_SkipsUnusableTimestamps(t *testing.T) {
	records := []models.Record{
		testutil.Carrier(1, "CARRIER", "OUT-OF-SERVICE", "not a date"),
		testutil.Carrier(2, "CARRIER", "OUT-OF-SERVICE", ""),
		testutil.Record("operating_status", "OUT-OF-SERVICE", "entity_type", "CARRIER"),
		testutil.Carrier(4, "CARRIER", "OUT-OF-SERVICE", "2023-09-30"),
	}
	got := NewAggregator("", nil, nil).Aggregate(records)
	assert.Equal(t, []models.Bucket{{Month: "2023-09", Carrier: 1}}, got)
}

func TestAggregate_TimeZone(t *testing.T) {
	records := []models.Record{
		testutil.Carrier(1, "CARRIER", "OUT-OF-SERVICE", "2023-05-31T23:30:00Z"),
		testutil.Carrier(2, "CARRIER", "OUT-OF-SERVICE", "2023-05-31T23:30:00.000"),
	}
	tokyo := time.FixedZone("JST", 9*60*60)

	got := NewAggregator("", tokyo, nil).Aggregate(records)
	// The zoned timestamp moves into June; the naive one is read as local time.
	assert.Equal(t, []models.Bucket{
		{Month: "2023-05", Carrier: 1},
		{Month: "2023-06", Carrier: 1},
	}, got)
}

func TestAggregate_Idempotent(t *testing.T) {
	records, _, err := source.DecodeRecords([]byte(testutil.CarrierJSON))
	require.NoError(t, err)

	agg := NewAggregator("", nil, nil)
	first := agg.Aggregate(records)
	second := agg.Aggregate(records)

	sortBuckets := cmpopts.SortSlices(func(a, b models.Bucket) bool { return a.Month < b.Month })
	if diff := cmp.Diff(first, second, sortBuckets); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := NewAggregator("", nil, nil).Aggregate(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMerge(t *testing.T) {
	buckets := []models.Bucket{
		{Month: "2023-05", Carrier: 3},
		{Month: "2023-06", Broker: 1},
	}
	overrides := []models.Override{
		{Month: "2023-05", EntityType: models.EntityCarrier, Count: 10},
		{Month: "2023-04", EntityType: models.EntityBroker, Count: 2},
	}

	got := Merge(buckets, overrides)
	want := []models.ChartPoint{
		{Bucket: models.Bucket{Month: "2023-04", Broker: 2}, Overridden: []models.EntityType{models.EntityBroker}},
		{Bucket: models.Bucket{Month: "2023-05", Carrier: 10}, Overridden: []models.EntityType{models.EntityCarrier}},
		{Bucket: models.Bucket{Month: "2023-06", Broker: 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCreated(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2023-05-02T10:00:00.000", "2023-05"},
		{"2023-05-02T10:00:00", "2023-05"},
		{"2023-05-02 10:00:00", "2023-05"},
		{"2023-05-02", "2023-05"},
		{"2023-12", "2023-12"},
		{"2023-12-31T23:00:00-05:00", "2024-01"},
	}
	for _, tt := range tests {
		got, err := ParseCreated(tt.in, time.UTC)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.Format(MonthLayout), tt.in)
	}

	_, err := ParseCreated("yesterday", time.UTC)
	assert.Error(t, err)
}

func TestValidateOverride(t *testing.T) {
	assert.NoError(t, ValidateOverride("2023-05", models.EntityCarrier, 0))
	assert.ErrorIs(t, ValidateOverride("2023-13", models.EntityCarrier, 1), ErrInvalidMonth)
	assert.ErrorIs(t, ValidateOverride("2023-5", models.EntityCarrier, 1), ErrInvalidMonth)
	assert.ErrorIs(t, ValidateOverride("2023-05", "SHIPPER", 1), ErrInvalidEntity)
	assert.ErrorIs(t, ValidateOverride("2023-05", models.EntityBroker, -1), ErrInvalidCount)
}

type fakeProvider struct {
	mu      sync.Mutex
	records []models.Record
	err     error
	events  []models.Event
}

func (f *fakeProvider) Records(ctx context.Context) (source.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return source.Snapshot{Records: []models.Record{}, Degraded: true, Err: f.err}, nil
	}
	return source.Snapshot{Records: f.records}, nil
}

func (f *fakeProvider) Notify(evt models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

type memStore struct {
	items map[string]models.Override
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]models.Override)}
}

func (m *memStore) Upsert(ctx context.Context, o models.Override) (models.Override, error) {
	m.items[o.Month+"/"+string(o.EntityType)] = o
	return o, nil
}

func (m *memStore) List(ctx context.Context) ([]models.Override, error) {
	out := make([]models.Override, 0, len(m.items))
	for _, o := range m.items {
		out = append(out, o)
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, month string, entity models.EntityType) error {
	key := month + "/" + string(entity)
	if _, ok := m.items[key]; !ok {
		return errors.New("not found")
	}
	delete(m.items, key)
	return nil
}

func (m *memStore) Clear(ctx context.Context) (int64, error) {
	n := int64(len(m.items))
	m.items = make(map[string]models.Override)
	return n, nil
}

func TestService_OverrideSurvivesReaggregation(t *testing.T) {
	provider := &fakeProvider{records: []models.Record{
		testutil.Carrier(1, "CARRIER", "OUT-OF-SERVICE", "2023-05-01"),
		testutil.Carrier(2, "CARRIER", "OUT-OF-SERVICE", "2023-05-02"),
	}}
	svc := NewService(provider, newMemStore(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.SetOverride(ctx, "2023-05", models.EntityCarrier, 7)
	require.NoError(t, err)

	// Fresh data for the same bucket arrives.
	provider.mu.Lock()
	provider.records = append(provider.records, testutil.Carrier(3, "CARRIER", "OUT-OF-SERVICE", "2023-05-03"))
	provider.mu.Unlock()

	series, err := svc.Series(ctx)
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.Equal(t, 7, series.Points[0].Carrier)
	assert.Equal(t, []models.EntityType{models.EntityCarrier}, series.Points[0].Overridden)

	// Clearing restores the fresh value.
	require.NoError(t, svc.ClearOverride(ctx, "2023-05", models.EntityCarrier))
	series, err = svc.Series(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, series.Points[0].Carrier)
	assert.Empty(t, series.Points[0].Overridden)

	types := make([]string, len(provider.events))
	for i, e := range provider.events {
		types[i] = e.Type
	}
	assert.Equal(t, []string{models.EventOverrideSet, models.EventOverrideCleared}, types)
}

func TestService_RejectsInvalidOverride(t *testing.T) {
	store := newMemStore()
	svc := NewService(&fakeProvider{}, store, nil, nil, nil)

	_, err := svc.SetOverride(context.Background(), "May 2023", models.EntityCarrier, 1)
	assert.ErrorIs(t, err, ErrInvalidMonth)
	assert.Empty(t, store.items)
}

func TestService_DegradedSourceShowsOverridesOnly(t *testing.T) {
	store := newMemStore()
	svc := NewService(&fakeProvider{err: source.ErrMalformed}, store, nil, nil, nil)
	ctx := context.Background()

	series, err := svc.Series(ctx)
	require.NoError(t, err)
	assert.True(t, series.Degraded)
	assert.Empty(t, series.Points)
	assert.NotNil(t, series.Points)

	_, err = svc.SetOverride(ctx, "2023-01", models.EntityBroker, 4)
	require.NoError(t, err)
	series, err = svc.Series(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ChartPoint{{
		Bucket:     models.Bucket{Month: "2023-01", Broker: 4},
		Overridden: []models.EntityType{models.EntityBroker},
	}}, series.Points)
}

func TestService_ClearAll(t *testing.T) {
	store := newMemStore()
	svc := NewService(&fakeProvider{}, store, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.SetOverride(ctx, "2023-01", models.EntityBroker, 4)
	require.NoError(t, err)
	_, err = svc.SetOverride(ctx, "2023-01", models.EntityCarrier, 1)
	require.NoError(t, err)

	n, err := svc.ClearAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Empty(t, store.items)
}
