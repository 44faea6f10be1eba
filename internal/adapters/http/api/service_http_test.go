package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/nexus-ssn/internal/adapters/http/api"
	"github.com/okian/nexus-ssn/internal/adapters/repository"
	service "github.com/okian/nexus-ssn/internal/app"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/stage"
	"github.com/okian/nexus-ssn/internal/seed"
	"github.com/okian/nexus-ssn/pkg/logger"
)

func TestServiceOverHTTP(t *testing.T) {
	Convey("Given the real service on a seeded memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		items := seed.Generate(seed.DefaultConfig())
		_, err := seed.Load(ctx, store, items)
		So(err, ShouldBeNil)

		svc := service.New(store, service.WithLogger(logger.Discard()), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(context.Background()) })

		h := api.NewServer(svc, api.WithLogger(logger.Discard())).Handler()

		var linked model.Assessment
		for _, a := range items {
			if a.StudentID != "" && a.Graded() {
				linked = a
				break
			}
		}
		So(linked.ID, ShouldNotBeEmpty)

		Convey("Recompute then read the cohort back", func() {
			w := do(h, http.MethodPost, "/cohorts/MATHS/recompute", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["updated"], ShouldEqual, float64(len(items)))

			w = do(h, http.MethodGet, "/cohorts/MATHS", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["source"], ShouldEqual, service.SourceLocal)
			So(body["sampleSize"], ShouldEqual, float64(len(items)))
			So(body["isLowSample"], ShouldBeFalse)
		})

		Convey("An unknown cohort is 404", func() {
			So(do(h, http.MethodGet, "/cohorts/PHYSICS", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Scoring a missing assessment is 404", func() {
			So(do(h, http.MethodGet, "/assessments/missing/ssn", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodPost, "/assessments/missing/ssn?async=true", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Persisting an SSN makes a projection available", func() {
			path := fmt.Sprintf("/students/%s/projection", linked.StudentID)

			w := do(h, http.MethodPost, "/assessments/"+linked.ID+"/ssn", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			ssn := decode(w)["ssn"].(float64)
			So(ssn, ShouldBeBetweenOrEqual, 0, 100)

			w = do(h, http.MethodPost, path, `{"weeklyHours":4}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["studentId"], ShouldEqual, linked.StudentID)
			So(body["historySize"], ShouldBeGreaterThanOrEqualTo, 1)

			So(do(h, http.MethodPost, path, `{"weeklyHours":-1}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A student without history has no projection", func() {
			So(do(h, http.MethodPost, "/students/nobody/projection", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("A scored quiz can be stored and then standardized", func() {
			bank, err := stage.DefaultBank()
			So(err, ShouldBeNil)

			answers := make([]stage.Answer, 0, len(bank))
			for i, q := range bank {
				if q.Subject != stage.SubjectMaths {
					continue
				}
				st := stage.StatusCorrect
				if i%3 == 0 {
					st = stage.StatusIncorrect
				}
				answers = append(answers, stage.Answer{QuestionID: q.ID, Status: st})
			}
			req, err := json.Marshal(service.StageRequest{
				Subject:        stage.SubjectMaths,
				Answers:        answers,
				AssessmentID:   "quiz-1",
				AssessmentType: "MATHS",
			})
			So(err, ShouldBeNil)

			w := do(h, http.MethodPost, "/stage/score", string(req))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["globalScore"], ShouldBeGreaterThan, 0)

			w = do(h, http.MethodGet, "/assessments/quiz-1/ssn", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("and storing the same id twice is rejected", func() {
				w := do(h, http.MethodPost, "/stage/score", string(req))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("Unknown answer statuses are rejected", func() {
			w := do(h, http.MethodPost, "/stage/score", `{"answers":[{"questionId":"x","status":"maybe"}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(strings.Contains(w.Body.String(), "maybe"), ShouldBeTrue)
		})

		Convey("Stats report the running pool", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["started"], ShouldBeTrue)
			So(body["workers"], ShouldEqual, 2.0)
			So(body["assessments"], ShouldEqual, float64(len(items)))
		})
	})
}
