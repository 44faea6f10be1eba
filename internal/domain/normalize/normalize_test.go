package normalize_test

import (
	"testing"

	"github.com/okian/nexus-ssn/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given the standardized score mapping", t, func() {
		Convey("A zero std always yields 50", func() {
			for _, raw := range []float64{-20, 0, 37, 100, 250} {
				So(normalize.Normalize(raw, 12, 0), ShouldEqual, 50)
			}
		})

		Convey("One std above the mean maps to 65", func() {
			So(normalize.Normalize(75, 60, 15), ShouldEqual, 65)
		})

		Convey("The cohort [40,60,80] maps 75 to about 63.8", func() {
			So(normalize.Normalize(75, 60, 16.33), ShouldAlmostEqual, 63.8, 0.05)
		})

		Convey("The output is monotonic and bounded", func() {
			prev := -1.0
			for raw := -100.0; raw <= 200; raw += 2.5 {
				got := normalize.Normalize(raw, 55, 12)
				So(got, ShouldBeGreaterThanOrEqualTo, 0)
				So(got, ShouldBeLessThanOrEqualTo, 100)
				So(got, ShouldBeGreaterThanOrEqualTo, prev)
				prev = got
			}
			So(normalize.Normalize(1e6, 50, 1), ShouldEqual, 100)
			So(normalize.Normalize(-1e6, 50, 1), ShouldEqual, 0)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Tier boundaries resolve upwards", t, func() {
		cases := map[float64]normalize.Tier{
			100:  normalize.TierExcellence,
			85:   normalize.TierExcellence,
			84.9: normalize.TierTresSolide,
			70:   normalize.TierTresSolide,
			69.9: normalize.TierStable,
			55:   normalize.TierStable,
			54.9: normalize.TierFragile,
			40:   normalize.TierFragile,
			39.9: normalize.TierPrioritaire,
			0:    normalize.TierPrioritaire,
		}
		for ssn, want := range cases {
			So(normalize.Classify(ssn), ShouldEqual, want)
		}
	})

	Convey("Labels map one to one", t, func() {
		So(normalize.Label(90), ShouldEqual, "Excellence")
		So(normalize.Label(72), ShouldEqual, "Très solide")
		So(normalize.Label(60), ShouldEqual, "Stable")
		So(normalize.Label(45), ShouldEqual, "Fragile")
		So(normalize.Label(10), ShouldEqual, "Prioritaire")

		tier, ok := normalize.ParseTier("stable")
		So(ok, ShouldBeTrue)
		So(tier.Label(), ShouldEqual, "Stable")
		_, ok = normalize.ParseTier("gold")
		So(ok, ShouldBeFalse)
	})
}

func TestPercentile(t *testing.T) {
	Convey("Given a distribution", t, func() {
		dist := []float64{30, 40, 50, 60, 70}

		Convey("An empty distribution is neutral", func() {
			So(normalize.Percentile(80, nil), ShouldEqual, 50)
		})
		Convey("The minimum sits at 0", func() {
			So(normalize.Percentile(30, dist), ShouldEqual, 0)
			So(normalize.Percentile(42, []float64{42}), ShouldEqual, 0)
		})
		Convey("A score above every element sits at 100", func() {
			So(normalize.Percentile(71, dist), ShouldEqual, 100)
		})
		Convey("Ties are not counted", func() {
			So(normalize.Percentile(50, dist), ShouldEqual, 40)
		})
	})
}
