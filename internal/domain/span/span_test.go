package span_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/cvector/cvec-go/internal/domain/model"
	"github.com/cvector/cvec-go/internal/domain/span"
	. "github.com/smartystreets/goconvey/convey"
)

func at(h, m int) time.Time {
	return time.Date(2024, 5, 1, h, m, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestBuild(t *testing.T) {
	Convey("Given a machine state series", t, func() {
		events := []model.ValueChangeEvent{
			{TS: at(10, 0), Value: model.Text("offline")},
			{TS: at(10, 5), Value: model.Text("starting")},
			{TS: at(10, 10), Value: model.Text("running")},
		}

		Convey("When building without a window", func() {
			spans, err := span.Build(events, "press/state", nil, nil)

			Convey("Then spans come back newest first, chained by raw bounds", func() {
				So(err, ShouldBeNil)
				So(spans, ShouldHaveLength, 3)

				So(spans[0].Value, ShouldResemble, model.Text("running"))
				So(spans[0].RawStartAt, ShouldEqual, at(10, 10))
				So(spans[0].RawEndAt, ShouldBeNil)

				So(spans[1].Value, ShouldResemble, model.Text("starting"))
				So(spans[1].RawStartAt, ShouldEqual, at(10, 5))
				So(*spans[1].RawEndAt, ShouldEqual, at(10, 10))

				So(spans[2].Value, ShouldResemble, model.Text("offline"))
				So(spans[2].RawStartAt, ShouldEqual, at(10, 0))
				So(*spans[2].RawEndAt, ShouldEqual, at(10, 5))
			})

			Convey("Then every span carries the series name and reserved nils", func() {
				for _, s := range spans {
					So(s.Name, ShouldEqual, "press/state")
					So(s.ID, ShouldBeNil)
					So(s.Metadata, ShouldBeNil)
				}
			})

			Convey("Then the derived fields equal the raw ones", func() {
				So(spans[0].EndAt, ShouldBeNil)
				So(*spans[1].EndAt, ShouldEqual, at(10, 10))
				So(spans[2].StartAt, ShouldEqual, at(10, 0))
			})
		})

		Convey("When building with a window end", func() {
			spans, err := span.Build(events, "press/state", ptr(at(9, 0)), ptr(at(11, 0)))

			Convey("Then the raw end of the newest span stays open", func() {
				So(err, ShouldBeNil)
				So(spans[0].RawEndAt, ShouldBeNil)
			})

			Convey("Then the clipped end of the newest span is the window end", func() {
				So(*spans[0].EndAt, ShouldEqual, at(11, 0))
				So(*spans[1].EndAt, ShouldEqual, at(10, 10))
			})
		})

		Convey("When the first event sits exactly on the window start", func() {
			spans, err := span.Build(events, "press/state", ptr(at(10, 0)), nil)

			Convey("Then it is included unclipped", func() {
				So(err, ShouldBeNil)
				So(spans, ShouldHaveLength, 3)
				So(spans[2].RawStartAt, ShouldEqual, at(10, 0))
				So(spans[2].StartAt, ShouldEqual, at(10, 0))
			})
		})
	})

	Convey("Given a single numeric event and no bounds", t, func() {
		spans, err := span.Build([]model.ValueChangeEvent{{TS: at(9, 0), Value: model.Number(1.0)}}, "flow", nil, nil)

		Convey("Then one open span is returned", func() {
			So(err, ShouldBeNil)
			So(spans, ShouldHaveLength, 1)
			So(spans[0].Value, ShouldResemble, model.Number(1.0))
			So(spans[0].RawEndAt, ShouldBeNil)
		})
	})

	Convey("Given no events", t, func() {
		spans, err := span.Build(nil, "flow", ptr(at(9, 0)), ptr(at(10, 0)))

		Convey("Then an empty, non-nil list is returned", func() {
			So(err, ShouldBeNil)
			So(spans, ShouldNotBeNil)
			So(spans, ShouldBeEmpty)
		})
	})
}

func TestBuildContractViolations(t *testing.T) {
	Convey("Given malformed event lists", t, func() {
		Convey("When events are out of order", func() {
			_, err := span.Build([]model.ValueChangeEvent{
				{TS: at(10, 5), Value: model.Number(1)},
				{TS: at(10, 0), Value: model.Number(2)},
			}, "x", nil, nil)
			So(errors.Is(err, span.ErrContractViolation), ShouldBeTrue)
		})

		Convey("When two events share a timestamp", func() {
			_, err := span.Build([]model.ValueChangeEvent{
				{TS: at(10, 0), Value: model.Number(1)},
				{TS: at(10, 0), Value: model.Number(2)},
			}, "x", nil, nil)
			So(errors.Is(err, span.ErrContractViolation), ShouldBeTrue)
		})

		Convey("When an event precedes the window start", func() {
			_, err := span.Build([]model.ValueChangeEvent{{TS: at(8, 59), Value: model.Number(1)}}, "x", ptr(at(9, 0)), nil)
			So(errors.Is(err, span.ErrContractViolation), ShouldBeTrue)
		})

		Convey("When an event sits on the exclusive window end", func() {
			_, err := span.Build([]model.ValueChangeEvent{{TS: at(10, 0), Value: model.Number(1)}}, "x", nil, ptr(at(10, 0)))
			So(errors.Is(err, span.ErrContractViolation), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "window end")
		})

		Convey("When the window is inverted", func() {
			_, err := span.Build(nil, "x", ptr(at(10, 0)), ptr(at(9, 0)))
			So(errors.Is(err, span.ErrContractViolation), ShouldBeTrue)
		})
	})
}

func TestBuildProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(40)
		events := make([]model.ValueChangeEvent, n)
		ts := at(0, 0)
		for i := range events {
			ts = ts.Add(time.Duration(1+rng.Intn(3600)) * time.Second)
			if rng.Intn(2) == 0 {
				events[i] = model.ValueChangeEvent{TS: ts, Value: model.Number(rng.Float64())}
			} else {
				events[i] = model.ValueChangeEvent{TS: ts, Value: model.Text("s")}
			}
		}

		spans, err := span.Build(events, "prop", nil, nil)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}
		if len(spans) != len(events) {
			t.Fatalf("round %d: count %d != %d", round, len(spans), len(events))
		}
		if spans[0].RawEndAt != nil {
			t.Fatalf("round %d: newest span must be open", round)
		}
		for i := 1; i < len(spans); i++ {
			if !spans[i].RawStartAt.Before(spans[i-1].RawStartAt) {
				t.Fatalf("round %d: not strictly descending at %d", round, i)
			}
			if spans[i].RawEndAt == nil || !spans[i].RawEndAt.Equal(spans[i-1].RawStartAt) {
				t.Fatalf("round %d: gap or overlap between %d and %d", round, i, i-1)
			}
		}
		if !spans[len(spans)-1].RawStartAt.Equal(events[0].TS) {
			t.Fatalf("round %d: timeline must start at first event", round)
		}
	}
}

func TestLimit(t *testing.T) {
	Convey("Given three newest-first spans", t, func() {
		spans, err := span.Build([]model.ValueChangeEvent{
			{TS: at(10, 0), Value: model.Number(1)},
			{TS: at(10, 1), Value: model.Number(2)},
			{TS: at(10, 2), Value: model.Number(3)},
		}, "x", nil, nil)
		So(err, ShouldBeNil)

		Convey("When limiting to two", func() {
			out := span.Limit(spans, 2)
			So(out, ShouldHaveLength, 2)
			So(out[0].RawStartAt, ShouldEqual, at(10, 2))
		})

		Convey("When the limit is zero or larger than the list", func() {
			So(span.Limit(spans, 0), ShouldHaveLength, 3)
			So(span.Limit(spans, 10), ShouldHaveLength, 3)
		})
	})
}
