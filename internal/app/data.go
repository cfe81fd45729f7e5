package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cvector/cvec-go/internal/adapters/arrowcodec"
	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/internal/domain/model"
	"github.com/cvector/cvec-go/pkg/logger"
	"github.com/cvector/cvec-go/pkg/metrics"
)

const (
	metricsListPath            = "/api/metrics/"
	metricsArrowPath           = "/api/metrics/data/arrow"
	modelingMetricsPath        = "/api/modeling/metrics"
	modelingDataPath           = "/api/modeling/metrics/data"
	modelingArrowPath          = "/api/modeling/metrics/data/arrow"
	modelingReadingsPath       = "/api/modeling/readings"
	modelingLatestReadingsPath = "/api/modeling/readings/latest"
)

// GetMetricData returns every data point in [startAt, endAt), optionally for
// the given names only. useArrow transfers the result as an Arrow file.
func (c *Client) GetMetricData(ctx context.Context, names []string, startAt, endAt *time.Time, useArrow bool) ([]model.MetricDataPoint, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	startAt, endAt = c.window(startAt, endAt)
	if useArrow {
		data, err := c.getArrow(ctx, metricsArrowPath, windowQuery(startAt, endAt, names))
		if err != nil {
			return nil, err
		}
		return arrowcodec.Decode(data)
	}
	return c.getPoints(ctx, metricsDataPath, windowQuery(startAt, endAt, names))
}

// GetMetricArrow is GetMetricData returning the raw Arrow IPC file.
func (c *Client) GetMetricArrow(ctx context.Context, names []string, startAt, endAt *time.Time) ([]byte, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	startAt, endAt = c.window(startAt, endAt)
	return c.getArrow(ctx, metricsArrowPath, windowQuery(startAt, endAt, names))
}

// GetMetrics lists metrics with at least one transition in [startAt, endAt);
// with no bounds every metric is returned.
func (c *Client) GetMetrics(ctx context.Context, startAt, endAt *time.Time) ([]model.Metric, error) {
	startAt, endAt = c.window(startAt, endAt)
	return c.getMetrics(ctx, metricsListPath, windowQuery(startAt, endAt, nil))
}

// AddMetricData uploads points, as JSON or as an Arrow file.
func (c *Client) AddMetricData(ctx context.Context, points []model.MetricDataPoint, useArrow bool) error {
	if points == nil {
		points = []model.MetricDataPoint{}
	}

	req := client.Request{Method: http.MethodPost}
	encoding := "json"
	if useArrow {
		data, err := arrowcodec.Encode(points)
		if err != nil {
			return err
		}
		req.Path = metricsArrowPath
		req.Body = data
		req.ContentType = client.ContentTypeArrow
		encoding = "arrow"
	} else {
		req.Path = metricsDataPath
		req.JSON = points
	}

	if err := c.transport.DoJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("add metric data: %w", err)
	}
	metrics.RecordPointsUploaded(encoding, len(points))
	c.logger.Debug(ctx, "metric data uploaded",
		logger.Int("points", len(points)), logger.String("encoding", encoding))
	return nil
}

// GetModelingMetrics lists modeling metrics with a transition in [startAt, endAt).
func (c *Client) GetModelingMetrics(ctx context.Context, startAt, endAt *time.Time) ([]model.Metric, error) {
	startAt, endAt = c.window(startAt, endAt)
	return c.getMetrics(ctx, modelingMetricsPath, windowQuery(startAt, endAt, nil))
}

// GetModelingMetricsData returns modeling data points in [startAt, endAt).
func (c *Client) GetModelingMetricsData(ctx context.Context, names []string, startAt, endAt *time.Time) ([]model.MetricDataPoint, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	startAt, endAt = c.window(startAt, endAt)
	return c.getPoints(ctx, modelingDataPath, windowQuery(startAt, endAt, names))
}

// GetModelingMetricsDataArrow is GetModelingMetricsData as a raw Arrow file.
func (c *Client) GetModelingMetricsDataArrow(ctx context.Context, names []string, startAt, endAt *time.Time) ([]byte, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	startAt, endAt = c.window(startAt, endAt)
	return c.getArrow(ctx, modelingArrowPath, windowQuery(startAt, endAt, names))
}

// GetModelingReadings returns downsampled readings of tagIDs between startAt
// and endAt. desiredPoints <= 0 uses model.DefaultDesiredPoints.
func (c *Client) GetModelingReadings(ctx context.Context, tagIDs []int, startAt, endAt time.Time, desiredPoints int) (*model.ModelingReadingsResponse, error) {
	if desiredPoints <= 0 {
		desiredPoints = model.DefaultDesiredPoints
	}
	if tagIDs == nil {
		tagIDs = []int{}
	}

	var out model.ModelingReadingsResponse
	err := c.transport.DoJSON(ctx, client.Request{
		Method: http.MethodPost,
		Path:   modelingReadingsPath,
		JSON: model.FetchModelingReadingsRequest{
			TagIDs:        tagIDs,
			StartDate:     startAt,
			EndDate:       endAt,
			DesiredPoints: desiredPoints,
		},
		Idempotent: true,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("get modeling readings: %w", err)
	}
	return &out, nil
}

// GetModelingLatestReadings returns the current value of each tag.
func (c *Client) GetModelingLatestReadings(ctx context.Context, tagIDs []int) (*model.LatestReadingsResponse, error) {
	if tagIDs == nil {
		tagIDs = []int{}
	}

	var out model.LatestReadingsResponse
	err := c.transport.DoJSON(ctx, client.Request{
		Method:     http.MethodPost,
		Path:       modelingLatestReadingsPath,
		JSON:       model.LatestReadingsRequest{TagIDs: tagIDs},
		Idempotent: true,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("get latest modeling readings: %w", err)
	}
	return &out, nil
}

func (c *Client) getPoints(ctx context.Context, path string, q url.Values) ([]model.MetricDataPoint, error) {
	points := []model.MetricDataPoint{}
	err := c.transport.DoJSON(ctx, client.Request{Method: http.MethodGet, Path: path, Query: q}, &points)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return points, nil
}

func (c *Client) getMetrics(ctx context.Context, path string, q url.Values) ([]model.Metric, error) {
	list := []model.Metric{}
	err := c.transport.DoJSON(ctx, client.Request{Method: http.MethodGet, Path: path, Query: q}, &list)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return list, nil
}

func (c *Client) getArrow(ctx context.Context, path string, q url.Values) ([]byte, error) {
	resp, err := c.transport.Do(ctx, client.Request{Method: http.MethodGet, Path: path, Query: q})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if !resp.IsArrow() {
		return nil, fmt.Errorf("%w: %s returned %q", ErrUnexpectedContent, path, resp.ContentType)
	}
	return resp.Body, nil
}
