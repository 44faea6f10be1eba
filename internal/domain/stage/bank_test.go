package stage_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/nexus-ssn/internal/domain/stage"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadBank(t *testing.T) {
	Convey("Given question bank documents", t, func() {
		Convey("The embedded bank loads and validates", func() {
			qs, err := stage.DefaultBank()
			So(err, ShouldBeNil)
			So(len(qs), ShouldBeGreaterThan, 10)

			subjects := map[stage.Subject]bool{}
			for _, q := range qs {
				subjects[q.Subject] = true
			}
			So(subjects[stage.SubjectMaths], ShouldBeTrue)
			So(subjects[stage.SubjectNSI], ShouldBeTrue)
		})

		Convey("A well formed document loads", func() {
			doc := `
questions:
  - id: q1
    subject: NSI
    category: Données
    competence: Appliquer
    weight: 2
    nsiErrorType: logic
    label: Jointure
`
			qs, err := stage.LoadBank(strings.NewReader(doc))
			So(err, ShouldBeNil)
			So(qs, ShouldHaveLength, 1)
			So(qs[0].Competence, ShouldEqual, stage.Appliquer)
			So(qs[0].NSIErrorType, ShouldEqual, stage.NSILogic)
		})

		Convey("Weight order is only enforced inside a category", func() {
			doc := "questions:\n" +
				"  - {id: a1, subject: MATHS, category: A, competence: Restituer, weight: 5}\n" +
				"  - {id: b1, subject: MATHS, category: B, competence: Raisonner, weight: 2}\n" +
				"  - {id: a2, subject: MATHS, category: A, competence: Restituer, weight: 1}\n" +
				"  - {id: a3, subject: MATHS, category: A, competence: Raisonner, weight: 6}\n"
			qs, err := stage.LoadBank(strings.NewReader(doc))
			So(err, ShouldBeNil)
			So(qs, ShouldHaveLength, 4)
		})

		Convey("An empty document is rejected", func() {
			_, err := stage.LoadBank(strings.NewReader(""))
			So(errors.Is(err, stage.ErrEmptyBank), ShouldBeTrue)

			_, err = stage.LoadBank(strings.NewReader("questions: []\n"))
			So(errors.Is(err, stage.ErrEmptyBank), ShouldBeTrue)
		})

		Convey("Invalid questions are rejected", func() {
			bad := []struct{ name, doc string }{
				{"duplicate id", "questions:\n  - {id: q, subject: MATHS, category: A, competence: Restituer, weight: 1}\n  - {id: q, subject: MATHS, category: A, competence: Restituer, weight: 1}\n"},
				{"unknown subject", "questions:\n  - {id: q, subject: PHYS, category: A, competence: Restituer, weight: 1}\n"},
				{"unknown level", "questions:\n  - {id: q, subject: MATHS, category: A, competence: Memoriser, weight: 1}\n"},
				{"zero weight", "questions:\n  - {id: q, subject: MATHS, category: A, competence: Restituer, weight: 0}\n"},
				{"unknown field", "questions:\n  - {id: q, subject: MATHS, category: A, competence: Restituer, weight: 1, points: 4}\n"},
				{"missing category", "questions:\n  - {id: q, subject: MATHS, competence: Restituer, weight: 1}\n"},
				{"basic heavier than expert", "questions:\n  - {id: q1, subject: MATHS, category: A, competence: Restituer, weight: 3}\n  - {id: q2, subject: MATHS, category: A, competence: Raisonner, weight: 2}\n"},
				{"equal weights across levels", "questions:\n  - {id: q1, subject: MATHS, category: A, competence: Appliquer, weight: 2}\n  - {id: q2, subject: MATHS, category: A, competence: Raisonner, weight: 2}\n"},
			}
			for _, tc := range bad {
				Convey(tc.name, func() {
					_, err := stage.LoadBank(strings.NewReader(tc.doc))
					So(errors.Is(err, stage.ErrInvalidBank), ShouldBeTrue)
				})
			}
		})
	})
}
