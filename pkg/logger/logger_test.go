package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func resetGlobal() {
	SetOutput(os.Stdout)
	_ = SetFormat(FormatText)
	_ = SetLevelString("info")
	_ = Init()
}

func TestLoggerInit(t *testing.T) {
	Convey("Given a freshly initialized logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get and Named should return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
			Named("test").Info(context.Background(), "test message", String("k", "v"))
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a json logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		SetOutput(&buf)
		So(SetFormat("JSON"), ShouldBeNil)
		So(SetLevelString("info"), ShouldBeNil)
		So(Init(), ShouldBeNil)
		defer resetGlobal()

		ctx := context.Background()
		Named("api").Named("emotions").Warn(ctx, "slow classifier",
			Duration("latency", 2*time.Second),
			Bool("degraded", true),
			Error(errors.New("boom")),
		)

		Convey("Then the record should carry the component and fields", func() {
			var rec map[string]any
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
			So(rec["level"], ShouldEqual, "WARN")
			So(rec["msg"], ShouldEqual, "slow classifier")
			So(rec["component"], ShouldEqual, "api.emotions")
			So(rec["degraded"], ShouldEqual, true)
			So(rec["error"], ShouldEqual, "boom")
			So(rec["source"], ShouldContainSubstring, "logger_test.go")
		})

		Convey("Then records below the level should be dropped", func() {
			buf.Reset()
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "shown")
			So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
		})
	})
}

func TestLoggerSettings(t *testing.T) {
	Convey("Given invalid settings", t, func() {
		Convey("Then unknown levels and formats should be rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
			So(SetFormat("xml"), ShouldNotBeNil)
		})

		Convey("Then accepted spellings should parse", func() {
			So(SetLevelString(" Warning "), ShouldBeNil)
			So(SetLevelString(""), ShouldBeNil)
			So(SetFormat(""), ShouldBeNil)
		})
	})
}
