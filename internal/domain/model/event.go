// Package model contains the domain models exchanged with the store.
package model

import "time"

// ValueChangeEvent is one detected transition of a named series.
// Stores report by exception, so consecutive events hold different values.
type ValueChangeEvent struct {
	TS    time.Time
	Value Value
}

// Span is an interval during which a series held one constant value.
//
// RawStartAt and RawEndAt are derived from observed data only: RawEndAt is
// the timestamp of the next change, or nil when the value is still current.
// StartAt and EndAt are the same interval clipped to the query window.
type Span struct {
	ID         any        `json:"id"`
	Name       string     `json:"name"`
	Value      Value      `json:"value"`
	RawStartAt time.Time  `json:"raw_start_at"`
	RawEndAt   *time.Time `json:"raw_end_at"`
	StartAt    time.Time  `json:"start_at"`
	EndAt      *time.Time `json:"end_at"`
	Metadata   any        `json:"metadata"`
}

// Open reports whether the span has no observed end.
func (s Span) Open() bool { return s.RawEndAt == nil }
