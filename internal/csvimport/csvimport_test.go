package csvimport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/internal/domain/model"
)

type recordingUploader struct {
	points   []model.MetricDataPoint
	useArrow bool
	calls    int
	err      error
}

func (u *recordingUploader) AddMetricData(_ context.Context, points []model.MetricDataPoint, useArrow bool) error {
	u.calls++
	u.points = points
	u.useArrow = useArrow
	return u.err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	return path
}

func TestParseTimestamp(t *testing.T) {
	Convey("ParseTimestamp accepts the common layouts", t, func() {
		want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		for _, s := range []string{
			"2025-01-02 03:04:05",
			"2025-01-02T03:04:05",
			"2025-01-02T03:04:05Z",
			"01/02/2025 03:04:05",
			"2025-01-02T04:04:05+01:00",
		} {
			got, err := ParseTimestamp(s)
			So(err, ShouldBeNil)
			So(got.Equal(want), ShouldBeTrue)
		}

		got, err := ParseTimestamp("2025-01-02 03:04:05.250")
		So(err, ShouldBeNil)
		So(got.Equal(want.Add(250*time.Millisecond)), ShouldBeTrue)

		got, err = ParseTimestamp("1/2/25 03:04")
		So(err, ShouldBeNil)
		So(got.Equal(time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)), ShouldBeTrue)

		got, err = ParseTimestamp("2025-01-02")
		So(err, ShouldBeNil)
		So(got.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)

		_, err = ParseTimestamp("yesterday")
		So(errors.Is(err, ErrBadTimestamp), ShouldBeTrue)
	})
}

func TestParseValue(t *testing.T) {
	Convey("ParseValue", t, func() {
		d, s := ParseValue(" 1.5 ")
		So(*d, ShouldEqual, 1.5)
		So(s, ShouldBeNil)

		d, s = ParseValue("RUNNING")
		So(d, ShouldBeNil)
		So(*s, ShouldEqual, "RUNNING")

		d, s = ParseValue("NaN")
		So(d, ShouldBeNil)
		So(*s, ShouldEqual, "NaN")

		d, s = ParseValue("   ")
		So(d, ShouldBeNil)
		So(s, ShouldBeNil)
	})
}

func TestParse(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CSV with mixed values", t, func() {
		data := "Timestamp,rain_rate,state\n" +
			"2025-01-01 00:00:00,0.5,OPEN\n" +
			"not a time,1.0,CLOSED\n" +
			"2025-01-01 01:00:00,,CLOSED\n"

		Convey("every non-empty cell becomes a point", func() {
			res, err := Parse(ctx, strings.NewReader(data), "")
			So(err, ShouldBeNil)
			So(res.Metrics, ShouldResemble, []string{"rain_rate", "state"})
			So(res.Rows, ShouldEqual, 3)
			So(res.Skipped, ShouldEqual, 1)
			So(res.Points, ShouldHaveLength, 3)

			So(res.Points[0].Name, ShouldEqual, "rain_rate")
			So(*res.Points[0].ValueDouble, ShouldEqual, 0.5)
			So(*res.Points[1].ValueString, ShouldEqual, "OPEN")
			So(res.Points[2].Time.Equal(time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("a prefix is joined with a slash", func() {
			res, err := Parse(ctx, strings.NewReader(data), "sensors/b1")
			So(err, ShouldBeNil)
			So(res.Points[0].Name, ShouldEqual, "sensors/b1/rain_rate")
			So(res.Metrics[0], ShouldEqual, "rain_rate")
		})
	})

	Convey("Malformed files are rejected", t, func() {
		_, err := Parse(ctx, strings.NewReader(""), "")
		So(errors.Is(err, ErrEmptyCSV), ShouldBeTrue)

		_, err = Parse(ctx, strings.NewReader("time,a\n2025-01-01,1\n"), "")
		So(errors.Is(err, ErrNoTimestampColumn), ShouldBeTrue)

		_, err = Parse(ctx, strings.NewReader("timestamp\n2025-01-01\n"), "")
		So(errors.Is(err, ErrNoMetricColumns), ShouldBeTrue)
	})

	Convey("A byte order mark before the header is ignored", t, func() {
		res, err := Parse(ctx, strings.NewReader("\ufefftimestamp,a\n2025-01-01,1\n"), "")
		So(err, ShouldBeNil)
		So(res.Points, ShouldHaveLength, 1)
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CSV file", t, func() {
		path := writeCSV(t, "timestamp,a,b\n2025-01-01 00:00:00,1,x\n")
		up := &recordingUploader{}

		Convey("its points are uploaded", func() {
			err := Run(ctx, &Config{Path: path, Prefix: "p", UseArrow: true}, up)
			So(err, ShouldBeNil)
			So(up.calls, ShouldEqual, 1)
			So(up.useArrow, ShouldBeTrue)
			So(up.points, ShouldHaveLength, 2)
			So(up.points[1].Name, ShouldEqual, "p/b")
		})

		Convey("upload errors are returned", func() {
			up.err = &client.StatusError{Code: 500, CfID: "cf-9"}
			err := Run(ctx, &Config{Path: path}, up)
			So(err, ShouldNotBeNil)
			So(CfID(err), ShouldEqual, "cf-9")
		})
	})

	Convey("A file with only blank cells uploads nothing", t, func() {
		path := writeCSV(t, "timestamp,a\n2025-01-01,\n")
		up := &recordingUploader{}
		So(Run(ctx, &Config{Path: path}, up), ShouldBeNil)
		So(up.calls, ShouldEqual, 0)
	})

	Convey("Missing files and directories are rejected", t, func() {
		up := &recordingUploader{}
		err := Run(ctx, &Config{Path: filepath.Join(t.TempDir(), "nope.csv")}, up)
		So(errors.Is(err, ErrFileNotFound), ShouldBeTrue)

		err = Run(ctx, &Config{Path: t.TempDir()}, up)
		So(errors.Is(err, ErrNotAFile), ShouldBeTrue)
	})
}

func TestShowHelp(t *testing.T) {
	var buf bytes.Buffer
	ShowHelp(&buf)
	if !strings.Contains(buf.String(), "-prefix") {
		t.Errorf("help should document -prefix, got %q", buf.String())
	}
}
