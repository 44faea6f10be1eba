// Package scoring computes the composite standardized score (SSN) of an
// assessment and persists it.
package scoring

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/normalize"
)

// Composite weights. They sum to 1 and are not configurable.
const (
	WeightDisciplinary = 0.6
	WeightMethodology  = 0.2
	WeightRigor        = 0.2
)

// NeutralComponent is used when a sub-score cannot be found.
const NeutralComponent = 50.0

const defaultBatchConcurrency = 4

// Components is the per-assessment breakdown of the composite.
type Components struct {
	Disciplinary float64 `json:"disciplinary"`
	Methodology  float64 `json:"methodology"`
	Rigor        float64 `json:"rigor"`
}

// Result is the standardized score of one assessment.
type Result struct {
	AssessmentID string          `json:"assessmentId"`
	RawComposite float64         `json:"rawComposite"`
	SSN          float64         `json:"ssn"`
	Tier         normalize.Tier  `json:"tier"`
	Label        string          `json:"label"`
	Components   Components      `json:"components"`
	Cohort       cohort.Snapshot `json:"cohort"`
}

// BatchResult reports a population re-normalization.
type BatchResult struct {
	Updated int             `json:"updated"`
	Cohort  cohort.Snapshot `json:"cohort"`
}

// Repository is the persistence the scorer needs.
type Repository interface {
	// FetchAssessment returns nil when the assessment does not exist.
	FetchAssessment(ctx context.Context, id string) (*model.Assessment, error)
	// FetchAssessmentsNeedingRescoring returns graded assessments of a type.
	FetchAssessmentsNeedingRescoring(ctx context.Context, assessmentType string) ([]model.Assessment, error)
	WriteStandardizedScore(ctx context.Context, assessmentID string, ssn float64) error
	// ResolveLinkedStudent returns "" for assessments without a student.
	ResolveLinkedStudent(ctx context.Context, assessmentID string) (string, error)
	AppendProgressionPoint(ctx context.Context, p model.ProgressionPoint) error
}

// CohortProvider computes the reference snapshot of a cohort.
type CohortProvider interface {
	Compute(ctx context.Context, key cohort.Key) (cohort.Snapshot, error)
}

// Scorer runs the SSN pipeline.
type Scorer struct {
	repo             Repository
	cohorts          CohortProvider
	now              func() time.Time
	newID            func() string
	batchConcurrency int
}

// NewScorer creates a Scorer.
func NewScorer(repo Repository, cohorts CohortProvider, opts ...Option) *Scorer {
	s := &Scorer{
		repo:             repo,
		cohorts:          cohorts,
		now:              time.Now,
		newID:            uuid.NewString,
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractMethodology returns the methodology sub-score of the payload,
// else the confidence index, else the neutral 50.
func ExtractMethodology(p *model.ResultPayload, confidenceIndex *float64) float64 {
	if p != nil && p.MethodologyScore != nil {
		return *p.MethodologyScore
	}
	if confidenceIndex != nil {
		return *confidenceIndex
	}
	return NeutralComponent
}

// ExtractRigor returns the precision index of the payload, else 50.
func ExtractRigor(p *model.ResultPayload) float64 {
	if p != nil && p.PrecisionIndex != nil {
		return *p.PrecisionIndex
	}
	return NeutralComponent
}

// Composite is the weighted sum of c rounded to one decimal.
func Composite(c Components) float64 {
	return normalize.Round1(WeightDisciplinary*c.Disciplinary +
		WeightMethodology*c.Methodology +
		WeightRigor*c.Rigor)
}

// Score computes the result of a graded assessment against snap.
// The caller guarantees a.GlobalScore is set.
func Score(a model.Assessment, snap cohort.Snapshot) Result {
	c := Components{
		Disciplinary: component(*a.GlobalScore),
		Methodology:  component(ExtractMethodology(a.Payload, a.ConfidenceIndex)),
		Rigor:        component(ExtractRigor(a.Payload)),
	}
	raw := Composite(c)
	ssn := normalize.Normalize(raw, snap.Mean, snap.Std)
	tier := normalize.Classify(ssn)
	return Result{
		AssessmentID: a.ID,
		RawComposite: raw,
		SSN:          ssn,
		Tier:         tier,
		Label:        tier.Label(),
		Components:   c,
		Cohort:       snap,
	}
}

// ComputeForAssessment scores one assessment against a fresh snapshot of
// its cohort. It returns nil when the assessment is missing or ungraded.
func (s *Scorer) ComputeForAssessment(ctx context.Context, id string) (*Result, error) {
	a, err := s.repo.FetchAssessment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch assessment %s: %w", id, err)
	}
	if a == nil || !a.Graded() {
		return nil, nil
	}

	snap, err := s.cohorts.Compute(ctx, cohort.Key{Type: a.Subject})
	if err != nil {
		return nil, err
	}

	r := Score(*a, snap)
	return &r, nil
}

// ComputeAndPersist scores the assessment, writes the SSN back and appends
// a progression point when a student is linked.
func (s *Scorer) ComputeAndPersist(ctx context.Context, id string) (*Result, error) {
	r, err := s.ComputeForAssessment(ctx, id)
	if err != nil || r == nil {
		return r, err
	}

	if err := s.repo.WriteStandardizedScore(ctx, id, r.SSN); err != nil {
		return nil, fmt.Errorf("write ssn of %s: %w", id, err)
	}

	studentID, err := s.repo.ResolveLinkedStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve student of %s: %w", id, err)
	}
	if studentID == "" {
		return r, nil
	}

	point := model.ProgressionPoint{
		ID:         s.newID(),
		StudentID:  studentID,
		SSN:        r.SSN,
		RecordedAt: s.now(),
	}
	if err := s.repo.AppendProgressionPoint(ctx, point); err != nil {
		return nil, fmt.Errorf("append progression point for %s: %w", studentID, err)
	}
	return r, nil
}

// RecomputeBatch re-normalizes every graded assessment of assessmentType
// against one snapshot computed before the loop starts. Progression
// history is left untouched.
func (s *Scorer) RecomputeBatch(ctx context.Context, assessmentType string) (BatchResult, error) {
	snap, err := s.cohorts.Compute(ctx, cohort.Key{Type: assessmentType})
	if err != nil {
		return BatchResult{}, err
	}

	items, err := s.repo.FetchAssessmentsNeedingRescoring(ctx, assessmentType)
	if err != nil {
		return BatchResult{Cohort: snap}, fmt.Errorf("fetch assessments of %s: %w", assessmentType, err)
	}

	var updated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for _, a := range items {
		if !a.Graded() {
			continue
		}
		g.Go(func() error {
			r := Score(a, snap)
			if err := s.repo.WriteStandardizedScore(gctx, a.ID, r.SSN); err != nil {
				return fmt.Errorf("write ssn of %s: %w", a.ID, err)
			}
			updated.Add(1)
			return nil
		})
	}
	err = g.Wait()

	return BatchResult{Updated: int(updated.Load()), Cohort: snap}, err
}

func component(v float64) float64 {
	return normalize.Clamp(v, 0, 100)
}
