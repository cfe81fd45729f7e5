package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cvector/cvec-go/internal/domain/model"
	"github.com/cvector/cvec-go/pkg/logger"
	"github.com/cvector/cvec-go/pkg/metrics"
)

// timestampLayouts are tried in order. Fractional seconds are accepted after
// any seconds field. Values without a zone are read as UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"1/2/06 15:04",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
}

// ParseTimestamp parses s with the supported layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrBadTimestamp, s)
}

// ParseValue turns a cell into a data point payload. Finite numbers become
// value_double, anything else value_string; blank cells yield neither.
func ParseValue(s string) (*float64, *string) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return &f, nil
	}
	return nil, &s
}

// Parse reads a CSV with a header row. One column, matched case-insensitively,
// must be named timestamp; every other column is a metric. Rows with an
// unparsable timestamp are skipped with a warning.
func Parse(ctx context.Context, r io.Reader, prefix string) (*Result, error) {
	log := logger.GetOrNop()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyCSV, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	tsCol := -1
	for i, col := range header {
		if strings.EqualFold(col, "timestamp") {
			tsCol = i
			break
		}
	}
	if tsCol < 0 {
		return nil, ErrNoTimestampColumn
	}

	res := &Result{}
	cols := make([]int, 0, len(header)-1)
	names := make([]string, 0, len(header)-1)
	for i, col := range header {
		if i == tsCol {
			continue
		}
		cols = append(cols, i)
		res.Metrics = append(res.Metrics, col)
		if prefix != "" {
			col = prefix + "/" + col
		}
		names = append(names, col)
	}
	if len(cols) == 0 {
		return nil, ErrNoMetricColumns
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", res.Rows+1, err)
		}
		res.Rows++

		if tsCol >= len(rec) {
			res.Skipped++
			metrics.RecordCSVRowSkipped()
			log.Warn(ctx, "skipping row without timestamp", logger.Int("row", res.Rows))
			continue
		}
		ts, err := ParseTimestamp(rec[tsCol])
		if err != nil {
			res.Skipped++
			metrics.RecordCSVRowSkipped()
			log.Warn(ctx, "skipping row due to timestamp error",
				logger.Int("row", res.Rows), logger.Error(err))
			continue
		}

		for j, i := range cols {
			if i >= len(rec) {
				continue
			}
			dbl, str := ParseValue(rec[i])
			if dbl == nil && str == nil {
				continue
			}
			res.Points = append(res.Points, model.MetricDataPoint{
				Name:        names[j],
				Time:        ts,
				ValueDouble: dbl,
				ValueString: str,
			})
		}
	}
	return res, nil
}
