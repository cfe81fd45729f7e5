package app_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/internal/app"
	"github.com/cvector/cvec-go/internal/domain/model"
	"github.com/cvector/cvec-go/internal/domain/span"
	"github.com/cvector/cvec-go/internal/fakestore"
	"github.com/cvector/cvec-go/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func at(h, m int) time.Time {
	return time.Date(2024, 5, 1, h, m, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

// stubTransport fails every call; tests using it must not reach the network.
type stubTransport struct{}

func (stubTransport) Do(context.Context, client.Request) (*client.Response, error) {
	return nil, errors.New("unexpected request")
}

func (stubTransport) DoJSON(context.Context, client.Request, any) error {
	return errors.New("unexpected request")
}

func (stubTransport) CallRPC(context.Context, string, any, any) error {
	return errors.New("unexpected request")
}

func (stubTransport) QueryTable(context.Context, string, url.Values, any) error {
	return errors.New("unexpected request")
}

type window struct{ start, end *time.Time }

// fakeFetcher serves canned events per series and records the bounds it was
// asked for.
type fakeFetcher struct {
	mu     sync.Mutex
	events map[string][]model.ValueChangeEvent
	err    error
	asked  map[string]window
}

func (f *fakeFetcher) FetchChanges(_ context.Context, name string, startAt, endAt *time.Time) ([]model.ValueChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.asked == nil {
		f.asked = make(map[string]window)
	}
	f.asked[name] = window{startAt, endAt}
	if f.err != nil {
		return nil, f.err
	}
	return f.events[name], nil
}

func newFetcherClient(f *fakeFetcher, opts ...app.Option) *app.Client {
	opts = append([]app.Option{app.WithTransport(stubTransport{}), app.WithChangeFetcher(f)}, opts...)
	c, err := app.New(context.Background(), opts...)
	So(err, ShouldBeNil)
	return c
}

func TestNew(t *testing.T) {
	Convey("Given no host", t, func() {
		t.Setenv("CVEC_HOST", "")
		t.Setenv("CVEC_API_KEY", fakestore.APIKey)

		_, err := app.New(context.Background())
		So(errors.Is(err, app.ErrMissingHost), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "CVEC_HOST must be set")
	})

	Convey("Given no API key", t, func() {
		t.Setenv("CVEC_HOST", "tenant.cvector.app")
		t.Setenv("CVEC_API_KEY", "")

		_, err := app.New(context.Background())
		So(errors.Is(err, app.ErrMissingAPIKey), ShouldBeTrue)
	})

	Convey("Given a reachable store", t, func() {
		srv := fakestore.New()
		defer srv.Close()

		Convey("host and key are read from the environment", func() {
			t.Setenv("CVEC_HOST", srv.URL)
			t.Setenv("CVEC_API_KEY", fakestore.APIKey)

			c, err := app.New(context.Background())
			So(err, ShouldBeNil)
			So(c.Host(), ShouldEqual, srv.URL)
		})

		Convey("an invalid key fails the login", func() {
			_, err := app.New(context.Background(), app.WithHost(srv.URL), app.WithAPIKey("cva_nope"))
			So(errors.Is(err, client.ErrInvalidAPIKey), ShouldBeTrue)
		})
	})
}

func TestGetSpans(t *testing.T) {
	Convey("Given a machine state series", t, func() {
		f := &fakeFetcher{events: map[string][]model.ValueChangeEvent{
			"press/state": {
				{TS: at(10, 0), Value: model.Text("offline")},
				{TS: at(10, 5), Value: model.Text("starting")},
				{TS: at(10, 10), Value: model.Text("running")},
			},
			"press/temp": {
				{TS: at(9, 0), Value: model.Number(1.0)},
			},
		}}
		ctx := context.Background()

		Convey("spans come back newest first", func() {
			c := newFetcherClient(f)
			spans, err := c.GetSpans(ctx, "press/state", nil, nil, 0)
			So(err, ShouldBeNil)
			So(spans, ShouldHaveLength, 3)
			So(spans[0].Value, ShouldResemble, model.Text("running"))
			So(spans[0].RawEndAt, ShouldBeNil)
			So(*spans[1].RawEndAt, ShouldEqual, at(10, 10))
			So(spans[2].Value, ShouldResemble, model.Text("offline"))
			So(*spans[2].RawEndAt, ShouldEqual, at(10, 5))
		})

		Convey("a single event yields one open span", func() {
			c := newFetcherClient(f)
			spans, err := c.GetSpans(ctx, "press/temp", nil, nil, 0)
			So(err, ShouldBeNil)
			So(spans, ShouldHaveLength, 1)
			So(spans[0].RawEndAt, ShouldBeNil)
			So(spans[0].Value, ShouldResemble, model.Number(1.0))
		})

		Convey("an unknown series yields no spans", func() {
			c := newFetcherClient(f)
			spans, err := c.GetSpans(ctx, "press/none", nil, nil, 0)
			So(err, ShouldBeNil)
			So(spans, ShouldBeEmpty)
		})

		Convey("limit keeps the newest spans", func() {
			c := newFetcherClient(f)
			spans, err := c.GetSpans(ctx, "press/state", nil, nil, 2)
			So(err, ShouldBeNil)
			So(spans, ShouldHaveLength, 2)
			So(spans[0].RawStartAt, ShouldEqual, at(10, 10))
			So(spans[1].RawStartAt, ShouldEqual, at(10, 5))
		})

		Convey("client default bounds apply when none are passed", func() {
			c := newFetcherClient(f, app.WithDefaultStartAt(at(8, 0)), app.WithDefaultEndAt(at(12, 0)))
			spans, err := c.GetSpans(ctx, "press/state", nil, nil, 0)
			So(err, ShouldBeNil)
			So(*f.asked["press/state"].start, ShouldEqual, at(8, 0))
			So(*f.asked["press/state"].end, ShouldEqual, at(12, 0))

			Convey("the newest span stays raw-open but is clipped in EndAt", func() {
				So(spans[0].RawEndAt, ShouldBeNil)
				So(*spans[0].EndAt, ShouldEqual, at(12, 0))
			})
		})

		Convey("explicit bounds win over defaults", func() {
			c := newFetcherClient(f, app.WithDefaultStartAt(at(8, 0)))
			_, err := c.GetSpans(ctx, "press/state", ptr(at(9, 30)), nil, 0)
			So(err, ShouldBeNil)
			So(*f.asked["press/state"].start, ShouldEqual, at(9, 30))
			So(f.asked["press/state"].end, ShouldBeNil)
		})

		Convey("events outside the window are a contract violation", func() {
			c := newFetcherClient(f)
			_, err := c.GetSpans(ctx, "press/state", ptr(at(10, 1)), nil, 0)
			So(errors.Is(err, span.ErrContractViolation), ShouldBeTrue)
		})

		Convey("fetch errors are returned unchanged", func() {
			f.err = errors.New("store down")
			c := newFetcherClient(f)
			_, err := c.GetSpans(ctx, "press/state", nil, nil, 0)
			So(err, ShouldEqual, f.err)
		})
	})
}

func TestGetSpansForMetrics(t *testing.T) {
	Convey("Given many series", t, func() {
		f := &fakeFetcher{events: map[string][]model.ValueChangeEvent{}}
		var names []string
		for i := 0; i < 10; i++ {
			name := fmt.Sprintf("line/%d", i)
			names = append(names, name)
			f.events[name] = []model.ValueChangeEvent{
				{TS: at(10, 0), Value: model.Number(float64(i))},
				{TS: at(10, i+1), Value: model.Number(float64(i + 1))},
			}
		}
		c := newFetcherClient(f, app.WithConcurrency(3))

		Convey("every series is built", func() {
			got, err := c.GetSpansForMetrics(context.Background(), names, nil, nil, 0)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 10)
			for i, name := range names {
				So(got[name], ShouldHaveLength, 2)
				So(got[name][0].Value, ShouldResemble, model.Number(float64(i+1)))
			}
		})

		Convey("one failing series fails the call", func() {
			f.events["line/3"] = []model.ValueChangeEvent{
				{TS: at(10, 5), Value: model.Null()},
				{TS: at(10, 5), Value: model.Null()},
			}
			_, err := c.GetSpansForMetrics(context.Background(), names, nil, nil, 0)
			So(errors.Is(err, span.ErrContractViolation), ShouldBeTrue)
		})
	})
}
