// Package arrowcodec converts metric data points to and from Arrow IPC files.
//
// The file layout is one record batch with the columns
// name (utf8), time (timestamp[us, UTC]), value_double (float64, nullable)
// and value_string (utf8, nullable).
package arrowcodec

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/cvector/cvec-go/internal/domain/model"
)

const (
	colName        = "name"
	colTime        = "time"
	colValueDouble = "value_double"
	colValueString = "value_string"
)

// Schema is the layout written by Encode.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: colName, Type: arrow.BinaryTypes.String},
	{Name: colTime, Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}},
	{Name: colValueDouble, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: colValueString, Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// Encode writes points as an Arrow IPC file. Times are truncated to microseconds.
func Encode(points []model.MetricDataPoint) ([]byte, error) {
	mem := memory.NewGoAllocator()

	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	names := b.Field(0).(*array.StringBuilder)
	times := b.Field(1).(*array.TimestampBuilder)
	doubles := b.Field(2).(*array.Float64Builder)
	strs := b.Field(3).(*array.StringBuilder)

	for _, p := range points {
		names.Append(p.Name)
		times.Append(arrow.Timestamp(p.Time.UnixMicro()))
		if p.ValueDouble != nil {
			doubles.Append(*p.ValueDouble)
		} else {
			doubles.AppendNull()
		}
		if p.ValueString != nil {
			strs.Append(*p.ValueString)
		} else {
			strs.AppendNull()
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return buf.Bytes(), nil
}

// Decode reads every record batch of an Arrow IPC file. Any timestamp unit
// is accepted; string columns may be utf8 or large_utf8.
func Decode(data []byte) ([]model.MetricDataPoint, error) {
	mem := memory.NewGoAllocator()

	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer r.Close()

	idx, err := columnIndices(r.Schema())
	if err != nil {
		return nil, err
	}

	var points []model.MetricDataPoint
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrRead, i, err)
		}
		batch, err := decodeRecord(rec, idx)
		if err != nil {
			return nil, err
		}
		points = append(points, batch...)
	}
	if points == nil {
		points = []model.MetricDataPoint{}
	}
	return points, nil
}

type indices struct {
	name, time, double, str int
}

func columnIndices(s *arrow.Schema) (indices, error) {
	find := func(name string) (int, error) {
		ix := s.FieldIndices(name)
		if len(ix) == 0 {
			return 0, fmt.Errorf("%w: missing column %q", ErrSchema, name)
		}
		return ix[0], nil
	}

	var (
		idx indices
		err error
	)
	if idx.name, err = find(colName); err != nil {
		return idx, err
	}
	if idx.time, err = find(colTime); err != nil {
		return idx, err
	}
	if idx.double, err = find(colValueDouble); err != nil {
		return idx, err
	}
	if idx.str, err = find(colValueString); err != nil {
		return idx, err
	}
	return idx, nil
}

func decodeRecord(rec arrow.Record, idx indices) ([]model.MetricDataPoint, error) {
	nameAt, err := stringColumn(rec.Column(idx.name), colName)
	if err != nil {
		return nil, err
	}
	strAt, err := stringColumn(rec.Column(idx.str), colValueString)
	if err != nil {
		return nil, err
	}

	tsCol, ok := rec.Column(idx.time).(*array.Timestamp)
	if !ok {
		return nil, fmt.Errorf("%w: column %q has type %s", ErrSchema, colTime, rec.Column(idx.time).DataType())
	}
	toTime, err := tsCol.DataType().(*arrow.TimestampType).GetToTimeFunc()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	dblAt, err := float64Column(rec.Column(idx.double), colValueDouble)
	if err != nil {
		return nil, err
	}

	n := int(rec.NumRows())
	points := make([]model.MetricDataPoint, n)
	for i := 0; i < n; i++ {
		p := &points[i]
		p.Name, _ = nameAt(i)
		if !tsCol.IsNull(i) {
			p.Time = toTime(tsCol.Value(i)).UTC()
		}
		if v, ok := dblAt(i); ok {
			p.ValueDouble = &v
		}
		if s, ok := strAt(i); ok {
			p.ValueString = &s
		}
	}
	return points, nil
}

// stringColumn returns an accessor yielding the value and whether it is non-null.
func stringColumn(col arrow.Array, name string) (func(int) (string, bool), error) {
	switch c := col.(type) {
	case *array.String:
		return func(i int) (string, bool) {
			if c.IsNull(i) {
				return "", false
			}
			return c.Value(i), true
		}, nil
	case *array.LargeString:
		return func(i int) (string, bool) {
			if c.IsNull(i) {
				return "", false
			}
			return c.Value(i), true
		}, nil
	case *array.Null:
		return func(int) (string, bool) { return "", false }, nil
	}
	return nil, fmt.Errorf("%w: column %q has type %s", ErrSchema, name, col.DataType())
}

// float64Column accepts an all-null column, which writers emit when no
// point carries a number.
func float64Column(col arrow.Array, name string) (func(int) (float64, bool), error) {
	switch c := col.(type) {
	case *array.Float64:
		return func(i int) (float64, bool) {
			if c.IsNull(i) {
				return 0, false
			}
			return c.Value(i), true
		}, nil
	case *array.Null:
		return func(int) (float64, bool) { return 0, false }, nil
	}
	return nil, fmt.Errorf("%w: column %q has type %s", ErrSchema, name, col.DataType())
}
