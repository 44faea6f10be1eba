package seed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/nexus-ssn/internal/adapters/repository"
	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/seed"
	"github.com/okian/nexus-ssn/pkg/logger"
)

func init() {
	if err := logger.InitWithWriter(discard{}, "text"); err != nil {
		panic(err)
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestGenerate(t *testing.T) {
	Convey("Given the default seed config", t, func() {
		cfg := seed.DefaultConfig()

		Convey("Generation is deterministic", func() {
			a, b := seed.Generate(cfg), seed.Generate(cfg)
			So(len(a), ShouldEqual, cfg.Count)
			for i := range a {
				So(a[i].ID, ShouldEqual, b[i].ID)
				So(*a[i].GlobalScore, ShouldEqual, *b[i].GlobalScore)
				So(a[i].StudentID, ShouldEqual, b[i].StudentID)
			}
		})

		Convey("Scores stay within bounds and payloads carry methodology", func() {
			linked := 0
			for _, a := range seed.Generate(cfg) {
				So(a.Subject, ShouldEqual, "MATHS")
				So(*a.GlobalScore, ShouldBeBetweenOrEqual, 0, 100)
				So(a.Payload, ShouldNotBeNil)
				So(a.Payload.MethodologyScore, ShouldNotBeNil)
				if a.StudentID != "" {
					linked++
				}
			}
			So(linked, ShouldBeGreaterThan, 0)
			So(linked, ShouldBeLessThan, cfg.Count)
		})

		Convey("A different seed yields different ids", func() {
			other := cfg
			other.Seed = 7
			So(seed.Generate(other)[0].ID, ShouldNotEqual, seed.Generate(cfg)[0].ID)
		})

		Convey("Ungraded assessments have no score", func() {
			cfg.UngradedRatio = 1
			for _, a := range seed.Generate(cfg) {
				So(a.Graded(), ShouldBeFalse)
			}
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Seeded assessments land in the store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		cfg := seed.DefaultConfig()
		cfg.Count = 40

		n, err := seed.Load(ctx, store, seed.Generate(cfg))
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 40)

		scores, err := store.FetchRawScores(ctx, cohort.Key{Type: "MATHS"})
		So(err, ShouldBeNil)
		So(len(scores), ShouldEqual, 40)

		Convey("Loading twice stops at the first duplicate", func() {
			n, err := seed.Load(ctx, store, seed.Generate(cfg))
			So(err, ShouldNotBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestClientRecompute(t *testing.T) {
	Convey("Given a service answering recompute calls", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/cohorts/MATHS/recompute" {
				http.Error(w, `{"code":"not_found"}`, http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"updated":12,"cohort":{"mean":55.5,"std":9.1,"sampleSize":12,"isLowSample":true}}`))
		}))
		defer srv.Close()

		c := seed.NewClient(srv.URL, time.Second)

		Convey("The response is decoded", func() {
			res, err := c.Recompute(context.Background(), "MATHS")
			So(err, ShouldBeNil)
			So(res.Updated, ShouldEqual, 12)
			So(res.Cohort.Mean, ShouldEqual, 55.5)
			So(res.Cohort.IsLowSample, ShouldBeTrue)
		})

		Convey("A non-200 answer is an error", func() {
			_, err := c.Recompute(context.Background(), "NSI")
			So(err, ShouldNotBeNil)
		})
	})
}
