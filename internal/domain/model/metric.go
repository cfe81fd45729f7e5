package model

import "time"

// Metric describes a named series known to the store.
type Metric struct {
	ID      int        `json:"id"`
	Name    string     `json:"name"`
	BirthAt *time.Time `json:"birth_at"`
	DeathAt *time.Time `json:"death_at"`
}

// MetricDataPoint is one stored transition of a metric. At most one of
// ValueDouble and ValueString is set.
type MetricDataPoint struct {
	Name        string    `json:"name"`
	Time        time.Time `json:"time"`
	ValueDouble *float64  `json:"value_double"`
	ValueString *string   `json:"value_string"`
}

// NewNumberPoint builds a numeric data point.
func NewNumberPoint(name string, ts time.Time, v float64) MetricDataPoint {
	return MetricDataPoint{Name: name, Time: ts, ValueDouble: &v}
}

// NewTextPoint builds a string data point.
func NewTextPoint(name string, ts time.Time, v string) MetricDataPoint {
	return MetricDataPoint{Name: name, Time: ts, ValueString: &v}
}

// Value returns the point's payload as a Value. A double wins over a string
// if a malformed row carries both.
func (p MetricDataPoint) Value() Value {
	switch {
	case p.ValueDouble != nil:
		return Number(*p.ValueDouble)
	case p.ValueString != nil:
		return Text(*p.ValueString)
	default:
		return Null()
	}
}

// Event converts the point to a ValueChangeEvent.
func (p MetricDataPoint) Event() ValueChangeEvent {
	return ValueChangeEvent{TS: p.Time, Value: p.Value()}
}
