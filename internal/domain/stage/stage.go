// Package stage scores diagnostic quizzes: weighted questions answered
// correct, incorrect or "ne sait pas" (NSP).
package stage

import (
	"math"
	"time"

	"github.com/okian/nexus-ssn/internal/domain/model"
)

// Subject of a question.
type Subject string

// Supported subjects.
const (
	SubjectMaths Subject = "MATHS"
	SubjectNSI   Subject = "NSI"
)

// Competence is the skill level a question tests, from basic to expert.
type Competence string

// Competence levels.
const (
	Restituer Competence = "Restituer" // basic recall
	Appliquer Competence = "Appliquer" // application
	Raisonner Competence = "Raisonner" // expert reasoning
)

// Rank orders competences; zero for unknown values.
func (c Competence) Rank() int {
	switch c {
	case Restituer:
		return 1
	case Appliquer:
		return 2
	case Raisonner:
		return 3
	default:
		return 0
	}
}

// Status is the outcome of one answer.
type Status string

// Answer outcomes. NSP means the question was not attempted.
const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusNSP       Status = "nsp"
)

// Valid reports whether s is a known outcome.
func (s Status) Valid() bool {
	return s == StatusCorrect || s == StatusIncorrect || s == StatusNSP
}

// NSIErrorType classifies what an incorrect NSI answer reveals.
type NSIErrorType string

// NSI error types.
const (
	NSISyntax     NSIErrorType = "syntax"
	NSILogic      NSIErrorType = "logic"
	NSIConceptual NSIErrorType = "conceptual"
)

// Question is one item of a question bank.
type Question struct {
	ID           string       `yaml:"id" json:"id"`
	Subject      Subject      `yaml:"subject" json:"subject"`
	Category     string       `yaml:"category" json:"category"`
	Competence   Competence   `yaml:"competence" json:"competence"`
	Weight       int          `yaml:"weight" json:"weight"`
	NSIErrorType NSIErrorType `yaml:"nsiErrorType,omitempty" json:"nsiErrorType,omitempty"`
	Label        string       `yaml:"label" json:"label"`
}

// Answer is a student's answer to one question.
type Answer struct {
	QuestionID       string `json:"questionId"`
	Status           Status `json:"status"`
	TimeSpentSeconds int    `json:"timeSpentSeconds,omitempty"`
}

// CategoryScore aggregates one category.
type CategoryScore struct {
	Category       string  `json:"category"`
	Subject        Subject `json:"subject"`
	Precision      float64 `json:"precision"`
	Confidence     float64 `json:"confidence"`
	NSPRate        float64 `json:"nspRate"`
	TotalQuestions int     `json:"totalQuestions"`
	Attempted      int     `json:"attemptedQuestions"`
	Correct        int     `json:"correctAnswers"`
	Incorrect      int     `json:"incorrectAnswers"`
	NSP            int     `json:"nspAnswers"`
	WeightedScore  int     `json:"weightedScore"`
	WeightedMax    int     `json:"weightedMax"`
	Tag            Tag     `json:"tag"`
}

// RadarPoint is one axis of the radar chart.
type RadarPoint struct {
	Subject    string  `json:"subject"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// NSIErrorBreakdown counts incorrect NSI answers by error type.
type NSIErrorBreakdown struct {
	Syntax     int `json:"syntaxErrors"`
	Logic      int `json:"logicErrors"`
	Conceptual int `json:"conceptualErrors"`
	Total      int `json:"totalErrors"`
}

// Result is the full scoring of a quiz.
type Result struct {
	GlobalScore     float64            `json:"globalScore"`
	ConfidenceIndex float64            `json:"confidenceIndex"`
	PrecisionIndex  float64            `json:"precisionIndex"`
	RadarData       []RadarPoint       `json:"radarData"`
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`
	CategoryScores  []CategoryScore    `json:"categoryScores"`
	NSIErrors       *NSIErrorBreakdown `json:"nsiErrors"`
	BasesFragiles   []FragileFlag      `json:"basesFragiles"`
	DiagnosticText  string             `json:"diagnosticText"`
	LucidityText    string             `json:"lucidityText"`
	TotalQuestions  int                `json:"totalQuestions"`
	TotalAttempted  int                `json:"totalAttempted"`
	TotalCorrect    int                `json:"totalCorrect"`
	TotalNSP        int                `json:"totalNSP"`
	ScoredAt        time.Time          `json:"scoredAt"`
}

// Payload converts the result into the payload read by the composite scorer.
func (r Result) Payload() *model.ResultPayload {
	precision := r.PrecisionIndex
	categories := make(map[string]float64, len(r.CategoryScores))
	for _, c := range r.CategoryScores {
		categories[c.Category] = c.Precision
	}
	return model.NewResultPayload(&precision, categories)
}

type tally struct {
	total, attempted, correct, incorrect, nsp int
	weightCorrect, weightTotal                int
}

func (t *tally) add(q Question, s Status) {
	t.total++
	t.weightTotal += q.Weight
	switch s {
	case StatusCorrect:
		t.attempted++
		t.correct++
		t.weightCorrect += q.Weight
	case StatusIncorrect:
		t.attempted++
		t.incorrect++
	default:
		t.nsp++
	}
}

// Score evaluates answers against questions. Unanswered questions count as
// NSP. ScoredAt is left zero for the caller to stamp.
func Score(answers []Answer, questions []Question) Result {
	byID := indexAnswers(answers)

	order := make([]string, 0)
	perCategory := make(map[string][]Question)
	for _, q := range questions {
		if _, seen := perCategory[q.Category]; !seen {
			order = append(order, q.Category)
		}
		perCategory[q.Category] = append(perCategory[q.Category], q)
	}

	res := Result{
		RadarData:      []RadarPoint{},
		Strengths:      []string{},
		Weaknesses:     []string{},
		CategoryScores: []CategoryScore{},
		BasesFragiles:  []FragileFlag{},
	}

	var global tally
	for _, category := range order {
		qs := perCategory[category]
		var t tally
		for _, q := range qs {
			s := byID[q.ID]
			t.add(q, s)
			global.add(q, s)
		}

		precision := percent(t.weightCorrect, t.weightTotal)
		confidence := percent(t.attempted, t.total)
		nspRate := percent(t.nsp, t.total)

		flag := DetectBasesFragiles(answers, questions, category)
		if flag != nil {
			res.BasesFragiles = append(res.BasesFragiles, *flag)
		}
		tag := CategoryTag(precision, confidence, nspRate, flag != nil)

		res.CategoryScores = append(res.CategoryScores, CategoryScore{
			Category:       category,
			Subject:        qs[0].Subject,
			Precision:      precision,
			Confidence:     confidence,
			NSPRate:        nspRate,
			TotalQuestions: t.total,
			Attempted:      t.attempted,
			Correct:        t.correct,
			Incorrect:      t.incorrect,
			NSP:            t.nsp,
			WeightedScore:  t.weightCorrect,
			WeightedMax:    t.weightTotal,
			Tag:            tag,
		})
		res.RadarData = append(res.RadarData, RadarPoint{Subject: category, Score: precision, Confidence: confidence})

		switch {
		case isStrength(tag, precision, confidence):
			res.Strengths = append(res.Strengths, category)
		case isWeakness(tag, precision):
			res.Weaknesses = append(res.Weaknesses, category)
		}
	}

	res.GlobalScore = percent(global.weightCorrect, global.weightTotal)
	res.ConfidenceIndex = percent(global.attempted, global.total)
	res.PrecisionIndex = percent(global.correct, global.attempted)
	res.TotalQuestions = global.total
	res.TotalAttempted = global.attempted
	res.TotalCorrect = global.correct
	res.TotalNSP = global.nsp
	res.NSIErrors = NSIErrors(answers, questions)
	res.DiagnosticText = DiagnosticText(res.GlobalScore, res.ConfidenceIndex, res.Strengths, res.Weaknesses, res.BasesFragiles)
	res.LucidityText = LucidityText(res.ConfidenceIndex, res.PrecisionIndex)
	return res
}

// NSIErrors counts incorrect NSI answers per error type. It returns nil
// when no NSI question is present.
func NSIErrors(answers []Answer, questions []Question) *NSIErrorBreakdown {
	byID := indexAnswers(answers)
	var out *NSIErrorBreakdown
	for _, q := range questions {
		if q.Subject != SubjectNSI {
			continue
		}
		if out == nil {
			out = &NSIErrorBreakdown{}
		}
		if byID[q.ID] != StatusIncorrect {
			continue
		}
		switch q.NSIErrorType {
		case NSISyntax:
			out.Syntax++
		case NSILogic:
			out.Logic++
		case NSIConceptual:
			out.Conceptual++
		default:
			continue
		}
		out.Total++
	}
	return out
}

func indexAnswers(answers []Answer) map[string]Status {
	byID := make(map[string]Status, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a.Status
	}
	return byID
}

// percent returns 100*num/den rounded, or 0 for an empty denominator.
func percent(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return math.Round(100 * float64(num) / float64(den))
}
