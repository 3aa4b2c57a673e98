// Package chart builds the monthly out-of-service series and applies manual overrides to it.
package chart

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	"go.uber.org/zap"
)

// MonthLayout is the bucket key format.
const MonthLayout = "2006-01"

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ErrInvalidMonth reports a bucket key that is not YYYY-MM.
var ErrInvalidMonth = errors.New("chart: month must be YYYY-MM")

// ValidMonth reports whether s is a YYYY-MM key.
func ValidMonth(s string) bool {
	return monthPattern.MatchString(s)
}

// timestamp layouts accepted for created_dt, most specific first. Layouts without an offset
// are read in the aggregator's location.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	MonthLayout,
}

// ParseCreated parses a created_dt value in loc.
func ParseCreated(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Aggregator counts out-of-service carriers and brokers per month.
type Aggregator struct {
	sentinel string
	loc      *time.Location
	logger   *zap.Logger
}

// NewAggregator creates an aggregator. An empty sentinel means models.StatusOutOfService and
// a nil loc means UTC.
func NewAggregator(sentinel string, loc *time.Location, logger *zap.Logger) *Aggregator {
	if sentinel == "" {
		sentinel = models.StatusOutOfService
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{sentinel: sentinel, loc: loc, logger: logger.Named("chart")}
}

// Aggregate buckets the records whose operating_status equals the sentinel. The first record
// seen for a month creates the bucket with both counters at zero, so a month holding only
// other entity types still appears. Buckets come back in ascending month order.
func (a *Aggregator) Aggregate(records []models.Record) []models.Bucket {
	byMonth := make(map[string]*models.Bucket)
	skipped := 0
	for _, rec := range records {
		c := rec.Carrier()
		if c.OperatingStatus == nil || *c.OperatingStatus != a.sentinel {
			continue
		}
		var created string
		if c.CreatedDT != nil {
			created = *c.CreatedDT
		}
		t, err := ParseCreated(created, a.loc)
		if err != nil {
			skipped++
			a.logger.Debug("skipping record without a usable created_dt",
				zap.Int64("id", c.ID),
				zap.String("created_dt", created))
			continue
		}
		month := t.Format(MonthLayout)
		b, ok := byMonth[month]
		if !ok {
			b = &models.Bucket{Month: month}
			byMonth[month] = b
		}
		switch c.EntityType {
		case models.EntityCarrier:
			b.Carrier++
		case models.EntityBroker:
			b.Broker++
		}
	}
	if skipped > 0 {
		a.logger.Debug("records skipped during aggregation", zap.Int("skipped", skipped))
	}

	out := make([]models.Bucket, 0, len(byMonth))
	for _, b := range byMonth {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Merge lays overrides over fresh buckets. An override wins for its cell, and an override for
// a month missing from buckets creates that month.
func Merge(buckets []models.Bucket, overrides []models.Override) []models.ChartPoint {
	points := make(map[string]*models.ChartPoint, len(buckets))
	for _, b := range buckets {
		points[b.Month] = &models.ChartPoint{Bucket: b}
	}
	for _, o := range overrides {
		p, ok := points[o.Month]
		if !ok {
			p = &models.ChartPoint{Bucket: models.Bucket{Month: o.Month}}
			points[o.Month] = p
		}
		p.SetCount(o.EntityType, o.Count)
		p.Overridden = append(p.Overridden, o.EntityType)
	}

	out := make([]models.ChartPoint, 0, len(points))
	for _, p := range points {
		sort.Slice(p.Overridden, func(i, j int) bool { return p.Overridden[i] < p.Overridden[j] })
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
