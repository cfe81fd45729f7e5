package csvimport

import (
	"context"

	"github.com/cvector/cvec-go/internal/domain/model"
)

// Config holds the settings of one import.
type Config struct {
	Path     string // CSV file to read
	Prefix   string // optional metric name prefix, joined with "/"
	Host     string // store host, falls back to CVEC_HOST
	APIKey   string // API key, falls back to CVEC_API_KEY
	UseArrow bool   // upload as an Arrow file instead of JSON
}

// Uploader stores metric data points. *app.Client implements it.
type Uploader interface {
	AddMetricData(ctx context.Context, points []model.MetricDataPoint, useArrow bool) error
}

// Result summarises a parsed CSV file.
type Result struct {
	Metrics []string
	Points  []model.MetricDataPoint
	Rows    int
	Skipped int
}
