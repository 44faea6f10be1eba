package projection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/projection"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeRepo struct {
	history     map[string][]model.ProgressionPoint
	projections []model.ProjectionPoint
	err         error
}

func (f *fakeRepo) FetchProgressionHistory(_ context.Context, id string) ([]model.ProgressionPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[id], nil
}

func (f *fakeRepo) AppendProjectionPoint(_ context.Context, p model.ProjectionPoint) error {
	f.projections = append(f.projections, p)
	return nil
}

func points(student string, ssns ...float64) []model.ProgressionPoint {
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	out := make([]model.ProgressionPoint, len(ssns))
	for i, v := range ssns {
		out[i] = model.ProgressionPoint{StudentID: student, SSN: v, RecordedAt: base.AddDate(0, 0, 7*i)}
	}
	return out
}

func TestPredict(t *testing.T) {
	Convey("Given the fixed linear model", t, func() {
		Convey("Zero features yield the intercept", func() {
			So(projection.Predict(projection.Input{}), ShouldEqual, 5)
		})
		Convey("Extreme inputs clamp", func() {
			So(projection.Predict(projection.Input{SSN: 100, WeeklyHours: 100, Methodology: 100, Trend: 20}), ShouldEqual, 100)
			So(projection.Predict(projection.Input{Trend: -20}), ShouldEqual, 0)
		})
		Convey("Identical inputs give identical outputs", func() {
			in := projection.Input{SSN: 61.3, WeeklyHours: 4.5, Methodology: 57, Trend: -1.25}
			first := projection.Predict(in)
			for i := 0; i < 20; i++ {
				So(projection.Predict(in), ShouldEqual, first)
			}
		})
	})
}

func TestTrend(t *testing.T) {
	Convey("Trend is a clamped simple slope", t, func() {
		So(projection.Trend(nil), ShouldEqual, 0)
		So(projection.Trend([]float64{70}), ShouldEqual, 0)
		So(projection.Trend([]float64{50, 60, 70}), ShouldAlmostEqual, 20.0/3, 1e-12)
		So(projection.Trend([]float64{0, 0.5, 1}), ShouldAlmostEqual, 1.0/3, 1e-12)
		So(projection.Trend([]float64{0, 100}), ShouldEqual, 20)
		So(projection.Trend([]float64{100, 0}), ShouldEqual, -20)
	})
}

func TestStability(t *testing.T) {
	Convey("Given progression series", t, func() {
		Convey("Fewer than three points is neutral", func() {
			So(projection.Stability(nil), ShouldEqual, 50)
			So(projection.Stability([]float64{10, 90}), ShouldEqual, 50)
		})
		Convey("Monotonic series score above 70", func() {
			So(projection.Stability([]float64{40, 45, 50, 55, 60}), ShouldBeGreaterThan, 70)
			So(projection.Stability([]float64{80, 74, 69, 63, 58}), ShouldBeGreaterThan, 70)
		})
		Convey("A strict zig-zag scores below 50", func() {
			So(projection.Stability([]float64{50, 60, 50, 60, 50}), ShouldBeLessThan, 50)
		})
		Convey("A flat series is perfectly consistent", func() {
			So(projection.Stability([]float64{55, 55, 55, 55}), ShouldEqual, 100)
		})
	})
}

func TestConfidence(t *testing.T) {
	Convey("Given confidence inputs", t, func() {
		Convey("A regular five-point series", func() {
			conf, b := projection.Confidence(5, []float64{40, 45, 50, 55, 60})
			So(b.BilansNorm, ShouldEqual, 100)
			So(b.StabilityTrend, ShouldEqual, 100)
			So(b.DispersionInverse, ShouldEqual, 72)
			So(conf, ShouldEqual, 92)
		})
		Convey("A single point uses neutral defaults", func() {
			conf, b := projection.Confidence(1, []float64{60})
			So(b.BilansNorm, ShouldEqual, 20)
			So(b.StabilityTrend, ShouldEqual, 50)
			So(b.DispersionInverse, ShouldEqual, 50)
			So(conf, ShouldEqual, 38)
		})
		Convey("Large dispersion bottoms out", func() {
			_, b := projection.Confidence(8, []float64{0, 100, 0, 100})
			So(b.DispersionInverse, ShouldEqual, 0)
			So(b.BilansNorm, ShouldEqual, 100)
		})
	})
}

func TestEngineProject(t *testing.T) {
	Convey("Given an engine over stored history", t, func() {
		ctx := context.Background()
		at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		repo := &fakeRepo{history: map[string][]model.ProgressionPoint{
			"stu-1": points("stu-1", 50, 55, 60),
		}}
		engine := projection.NewEngine(repo,
			projection.WithClock(func() time.Time { return at }),
			projection.WithIDGenerator(func() string { return "proj-1" }),
		)

		Convey("A student without history yields nil", func() {
			r, err := engine.Project(ctx, "ghost", projection.Request{})
			So(err, ShouldBeNil)
			So(r, ShouldBeNil)
			So(repo.projections, ShouldBeEmpty)
		})

		Convey("Defaults fill missing features", func() {
			r, err := engine.Project(ctx, "stu-1", projection.Request{})
			So(err, ShouldBeNil)
			So(r.Input.SSN, ShouldEqual, 60)
			So(r.Input.WeeklyHours, ShouldEqual, 3)
			So(r.Input.Methodology, ShouldEqual, 50)
			So(r.Input.Trend, ShouldAlmostEqual, 10.0/3, 1e-12)
			So(r.SSNProjected, ShouldEqual, 62.3)
			So(r.ModelVersion, ShouldEqual, "ridge_v1")
			So(r.HistorySize, ShouldEqual, 3)
		})

		Convey("Every call appends a new projection", func() {
			hours := 6.0
			_, err := engine.Project(ctx, "stu-1", projection.Request{WeeklyHours: &hours})
			So(err, ShouldBeNil)
			_, err = engine.Project(ctx, "stu-1", projection.Request{})
			So(err, ShouldBeNil)
			So(repo.projections, ShouldHaveLength, 2)
			So(repo.projections[0].Input.WeeklyHours, ShouldEqual, 6)
			So(repo.projections[0].ID, ShouldEqual, "proj-1")
			So(repo.projections[0].CreatedAt, ShouldEqual, at)
		})

		Convey("Configured defaults apply", func() {
			custom := projection.NewEngine(repo, projection.WithDefaultWeeklyHours(5), projection.WithDefaultMethodology(70))
			r, err := custom.Project(ctx, "stu-1", projection.Request{})
			So(err, ShouldBeNil)
			So(r.Input.WeeklyHours, ShouldEqual, 5)
			So(r.Input.Methodology, ShouldEqual, 70)
		})

		Convey("Out of range features are rejected", func() {
			neg := -1.0
			_, err := engine.Project(ctx, "stu-1", projection.Request{WeeklyHours: &neg})
			So(errors.Is(err, projection.ErrInvalidInput), ShouldBeTrue)
			high := 101.0
			_, err = engine.Project(ctx, "stu-1", projection.Request{Methodology: &high})
			So(errors.Is(err, projection.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("A store failure propagates", func() {
			boom := errors.New("timeout")
			repo.err = boom
			_, err := engine.Project(ctx, "stu-1", projection.Request{})
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}
