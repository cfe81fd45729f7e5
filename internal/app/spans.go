package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/internal/domain/model"
	"github.com/cvector/cvec-go/internal/domain/span"
	"github.com/cvector/cvec-go/pkg/logger"
	"github.com/cvector/cvec-go/pkg/metrics"
)

const metricsDataPath = "/api/metrics/data"

// ChangeFetcher returns the value-change events of one series in ascending
// time order, restricted to startAt <= ts < endAt for non-nil bounds.
type ChangeFetcher interface {
	FetchChanges(ctx context.Context, name string, startAt, endAt *time.Time) ([]model.ValueChangeEvent, error)
}

// FetchChanges queries the store for the transitions of name. The store
// returns rows ordered by time; the order is checked by the span builder.
// A name containing a comma is rejected with ErrInvalidName.
func (c *Client) FetchChanges(ctx context.Context, name string, startAt, endAt *time.Time) ([]model.ValueChangeEvent, error) {
	if err := checkNames([]string{name}); err != nil {
		return nil, err
	}
	var points []model.MetricDataPoint
	err := c.transport.DoJSON(ctx, client.Request{
		Method: http.MethodGet,
		Path:   metricsDataPath,
		Query:  windowQuery(startAt, endAt, []string{name}),
	}, &points)
	if err != nil {
		return nil, fmt.Errorf("fetch changes of %q: %w", name, err)
	}

	events := make([]model.ValueChangeEvent, 0, len(points))
	for _, p := range points {
		if p.Name != name {
			continue
		}
		events = append(events, p.Event())
	}
	return events, nil
}

// GetSpans returns the constant-value spans of name, newest first. Missing
// bounds fall back to the client defaults; limit > 0 keeps the newest limit
// spans.
func (c *Client) GetSpans(ctx context.Context, name string, startAt, endAt *time.Time, limit int) ([]model.Span, error) {
	start := time.Now()
	startAt, endAt = c.window(startAt, endAt)

	events, err := c.fetcher.FetchChanges(ctx, name, startAt, endAt)
	if err != nil {
		return nil, err
	}

	spans, err := span.Build(events, name, startAt, endAt)
	if err != nil {
		if errors.Is(err, span.ErrContractViolation) {
			metrics.RecordContractViolation()
			c.logger.Error(ctx, "store returned events out of contract",
				logger.String("metric", name), logger.Error(err))
		}
		return nil, fmt.Errorf("build spans of %q: %w", name, err)
	}
	spans = span.Limit(spans, limit)

	metrics.RecordSpansBuilt(len(spans))
	metrics.RecordSpanQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	c.logger.Debug(ctx, "spans built",
		logger.String("metric", name),
		logger.Int("events", len(events)),
		logger.Int("spans", len(spans)),
		logger.Duration("took", time.Since(start)))
	return spans, nil
}

// GetSpansForMetrics runs GetSpans for every name with at most the configured
// number of queries in flight. The first error cancels the rest.
func (c *Client) GetSpansForMetrics(ctx context.Context, names []string, startAt, endAt *time.Time, limit int) (map[string][]model.Span, error) {
	out := make(map[string][]model.Span, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, name := range names {
		g.Go(func() error {
			spans, err := c.GetSpans(gctx, name, startAt, endAt, limit)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = spans
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
