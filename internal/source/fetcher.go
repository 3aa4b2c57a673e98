// Package source fetches carrier records from the upstream data endpoint and shares them
// between the dashboard views.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carrier-dashboard/backend/internal/metrics"
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultURL is the upstream carrier data endpoint.
const DefaultURL = "https://carrier-info-backend.onrender.com"

// Error kinds. Both are handled the same way by the views: empty dataset, logged diagnostic.
var (
	ErrNetwork   = errors.New("source: network failure")
	ErrMalformed = errors.New("source: malformed response")
)

// maxBodySize bounds the upstream body read.
const maxBodySize = 256 << 20

// Fetcher performs single best-effort reads of the upstream endpoint. No retry, no backoff.
type Fetcher struct {
	url     string
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher creates a fetcher for url. A zero timeout leaves requests unbounded.
func NewFetcher(url string, timeout time.Duration, logger *zap.Logger, opts ...FetcherOption) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the upstream endpoint.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch issues one GET and decodes the body. On any failure it logs a diagnostic and
// returns an empty, non-nil slice together with an error wrapping ErrNetwork or ErrMalformed.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.Record, error) {
	ctx, span := otel.Tracer("carrierdash/source").Start(ctx, "source.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", f.url))

	start := time.Now()
	records, err := f.fetch(ctx)
	elapsed := time.Since(start)

	if err != nil {
		outcome := metrics.OutcomeNetwork
		if errors.Is(err, ErrMalformed) {
			outcome = metrics.OutcomeMalformed
		}
		f.metrics.ObserveFetch(outcome, elapsed, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		f.logger.Warn("Error fetching data",
			zap.String("url", f.url),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return []models.Record{}, err
	}

	f.metrics.ObserveFetch(metrics.OutcomeOK, elapsed, len(records))
	span.SetAttributes(attribute.Int("records", len(records)))
	f.logger.Debug("Fetched records",
		zap.Int("records", len(records)),
		zap.Duration("elapsed", elapsed))
	return records, nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]models.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: unexpected status %s", ErrNetwork, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}

	records, skipped, err := DecodeRecords(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		f.logger.Warn("Skipped non-object array elements", zap.Int("skipped", skipped))
	}
	return records, nil
}

// DecodeRecords parses a JSON array of objects, keeping each object's key order.
// Elements that are not objects are skipped and counted.
func DecodeRecords(body []byte) ([]models.Record, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, 0, fmt.Errorf("%w: expected a JSON array, got %s", ErrMalformed, root.Type)
	}

	records := make([]models.Record, 0)
	skipped := 0
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			skipped++
			return true
		}
		var rec models.Record
		item.ForEach(func(key, value gjson.Result) bool {
			// Duplicate keys keep their first position and their last value.
			rec.Set(key.String(), models.ValueOf(value))
			return true
		})
		records = append(records, rec)
		return true
	})
	return records, skipped, nil
}

// EncodeRecords is the inverse of DecodeRecords.
func EncodeRecords(records []models.Record) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	return json.Marshal(records)
}
