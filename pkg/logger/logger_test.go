package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("Init installs a usable logger", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("Unknown formats are rejected", func() {
			So(InitWithFormat("xml"), ShouldNotBeNil)
		})

		Convey("Levels parse", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			So(SetLevelString("WARNING"), ShouldBeNil)
			So(SetLevelString(""), ShouldBeNil)
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}

func TestJSONOutput(t *testing.T) {
	Convey("Given a json logger on a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "json"), ShouldBeNil)
		ctx := context.Background()

		Convey("Fields, name and source are written", func() {
			Named("scoring").Named("batch").Info(ctx, "rescored",
				String("type", "MATHS"),
				Int("updated", 12),
				Float64("mean", 61.5),
				Bool("lowSample", true),
				Duration("took", 3*time.Millisecond),
				Error(errors.New("partial")),
			)

			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
			So(line["msg"], ShouldEqual, "rescored")
			So(line["logger"], ShouldEqual, "scoring.batch")
			So(line["type"], ShouldEqual, "MATHS")
			So(line["updated"], ShouldEqual, 12.0)
			So(line["lowSample"], ShouldEqual, true)
			So(line["error"], ShouldEqual, "partial")
			So(line["source"], ShouldContainSubstring, "logger_test.go")
		})

		Convey("Debug is filtered at info level", func() {
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "shown")
			So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
		})
	})
}

func TestDiscard(t *testing.T) {
	Convey("Discard accepts every call", t, func() {
		l := Discard().Named("x")
		So(func() {
			l.Info(context.Background(), "a")
			l.Warn(context.Background(), "b")
			l.Error(context.Background(), "c")
		}, ShouldNotPanic)
	})
}
