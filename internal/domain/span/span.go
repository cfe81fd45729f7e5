// Package span derives constant-value intervals from value-change events.
package span

import (
	"fmt"
	"time"

	"github.com/cvector/cvec-go/internal/domain/model"
)

// Build converts the events of one series into spans, newest first.
//
// events must be strictly ascending by TS and lie within [startAt, endAt)
// for whichever bounds are non-nil; filtering is the fetcher's job and a
// violation returns ErrContractViolation. An empty input yields an empty
// result: nothing is known about the value before the first event.
//
// RawEndAt of each span is the TS of the following event, nil for the last.
// It never comes from endAt; the window-clipped end is reported in EndAt.
func Build(events []model.ValueChangeEvent, name string, startAt, endAt *time.Time) ([]model.Span, error) {
	if err := validate(events, startAt, endAt); err != nil {
		return nil, err
	}

	spans := make([]model.Span, len(events))
	for i, ev := range events {
		// fill from the back so the result comes out newest first
		s := &spans[len(events)-1-i]
		s.Name = name
		s.Value = ev.Value
		s.RawStartAt = ev.TS
		if i+1 < len(events) {
			next := events[i+1].TS
			s.RawEndAt = &next
		}
		s.StartAt = clipStart(ev.TS, startAt)
		s.EndAt = clipEnd(s.RawEndAt, endAt)
	}
	return spans, nil
}

func validate(events []model.ValueChangeEvent, startAt, endAt *time.Time) error {
	if startAt != nil && endAt != nil && endAt.Before(*startAt) {
		return fmt.Errorf("%w: window end %s before start %s", ErrContractViolation,
			endAt.Format(time.RFC3339Nano), startAt.Format(time.RFC3339Nano))
	}
	for i, ev := range events {
		if startAt != nil && ev.TS.Before(*startAt) {
			return fmt.Errorf("%w: event %d at %s before window start %s", ErrContractViolation,
				i, ev.TS.Format(time.RFC3339Nano), startAt.Format(time.RFC3339Nano))
		}
		if endAt != nil && !ev.TS.Before(*endAt) {
			return fmt.Errorf("%w: event %d at %s not before window end %s", ErrContractViolation,
				i, ev.TS.Format(time.RFC3339Nano), endAt.Format(time.RFC3339Nano))
		}
		if i > 0 && !events[i-1].TS.Before(ev.TS) {
			return fmt.Errorf("%w: event %d at %s not after event %d at %s", ErrContractViolation,
				i, ev.TS.Format(time.RFC3339Nano), i-1, events[i-1].TS.Format(time.RFC3339Nano))
		}
	}
	return nil
}

func clipStart(raw time.Time, startAt *time.Time) time.Time {
	if startAt != nil && raw.Before(*startAt) {
		return *startAt
	}
	return raw
}

// clipEnd returns min(raw or endAt, endAt); with no window end it is raw.
func clipEnd(raw, endAt *time.Time) *time.Time {
	switch {
	case endAt != nil && (raw == nil || raw.After(*endAt)):
		end := *endAt
		return &end
	case raw != nil:
		end := *raw
		return &end
	default:
		return nil
	}
}

// Limit keeps the newest n spans of a newest-first list; n <= 0 keeps all.
func Limit(spans []model.Span, n int) []model.Span {
	if n <= 0 || n >= len(spans) {
		return spans
	}
	return spans[:n]
}
