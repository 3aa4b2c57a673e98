package chart

import (
	"context"
	"errors"
	"fmt"

	"github.com/carrier-dashboard/backend/internal/metrics"
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/carrier-dashboard/backend/internal/source"
	"go.uber.org/zap"
)

var (
	ErrInvalidEntity = errors.New("chart: entity type must be CARRIER or BROKER")
	ErrInvalidCount  = errors.New("chart: count must be a non-negative integer")
)

// RecordProvider supplies the shared record collection.
type RecordProvider interface {
	Records(ctx context.Context) (source.Snapshot, error)
	Notify(evt models.Event)
}

// OverrideStore persists manual bucket overrides.
type OverrideStore interface {
	Upsert(ctx context.Context, o models.Override) (models.Override, error)
	List(ctx context.Context) ([]models.Override, error)
	Delete(ctx context.Context, month string, entity models.EntityType) error
	Clear(ctx context.Context) (int64, error)
}

// Series is the chart as served: fresh aggregation with overrides applied.
type Series struct {
	Points []models.ChartPoint `json:"points"`
	// Degraded is set when the upstream read failed and only overrides are shown.
	Degraded bool `json:"-"`
}

// Service serves the out-of-service chart.
type Service struct {
	provider   RecordProvider
	overrides  OverrideStore
	aggregator *Aggregator
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewService wires the chart to its record provider and override store.
func NewService(provider RecordProvider, overrides OverrideStore, aggregator *Aggregator, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if aggregator == nil {
		aggregator = NewAggregator("", nil, logger)
	}
	return &Service{
		provider:   provider,
		overrides:  overrides,
		aggregator: aggregator,
		logger:     logger.Named("chart"),
		metrics:    m,
	}
}

// Series aggregates the current records and applies stored overrides.
func (s *Service) Series(ctx context.Context) (Series, error) {
	snap, err := s.provider.Records(ctx)
	if err != nil {
		return Series{}, err
	}
	overrides, err := s.overrides.List(ctx)
	if err != nil {
		return Series{}, fmt.Errorf("listing overrides: %w", err)
	}
	return Series{
		Points:   Merge(s.aggregator.Aggregate(snap.Records), overrides),
		Degraded: snap.Degraded,
	}, nil
}

// Overrides lists the stored overrides.
func (s *Service) Overrides(ctx context.Context) ([]models.Override, error) {
	return s.overrides.List(ctx)
}

// SetOverride validates and stores an override for one bucket cell.
func (s *Service) SetOverride(ctx context.Context, month string, entity models.EntityType, count int) (models.Override, error) {
	if err := ValidateOverride(month, entity, count); err != nil {
		return models.Override{}, err
	}
	o, err := s.overrides.Upsert(ctx, models.Override{Month: month, EntityType: entity, Count: count})
	if err != nil {
		return models.Override{}, fmt.Errorf("storing override: %w", err)
	}
	s.metrics.OverrideOp("set")
	s.logger.Info("chart override set",
		zap.String("month", month),
		zap.String("entity_type", string(entity)),
		zap.Int("count", count))
	s.provider.Notify(models.Event{Type: models.EventOverrideSet, Payload: o})
	return o, nil
}

// ClearOverride removes the override of one bucket cell.
func (s *Service) ClearOverride(ctx context.Context, month string, entity models.EntityType) error {
	if !ValidMonth(month) {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	if !entity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntity, entity)
	}
	if err := s.overrides.Delete(ctx, month, entity); err != nil {
		return err
	}
	s.metrics.OverrideOp("clear")
	s.provider.Notify(models.Event{
		Type:    models.EventOverrideCleared,
		Payload: map[string]string{"month": month, "entityType": string(entity)},
	})
	return nil
}

// ClearAll removes every override and returns how many were removed.
func (s *Service) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.overrides.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing overrides: %w", err)
	}
	s.metrics.OverrideOp("clear_all")
	s.provider.Notify(models.Event{Type: models.EventOverrideCleared, Payload: map[string]int64{"removed": n}})
	return n, nil
}

// ValidateOverride checks the bucket key, entity type and count of an override.
func ValidateOverride(month string, entity models.EntityType, count int) error {
	if !ValidMonth(month) {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	if !entity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntity, entity)
	}
	if count < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	return nil
}
