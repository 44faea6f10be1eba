// Package model contains domain records passed between layers.
package model

import "time"

// Assessment is a graded (or not yet graded) assessment as held by the
// persistence layer. The engine only ever writes back SSN.
type Assessment struct {
	ID              string         // assessment identifier
	Subject         string         // assessment type, the cohort key
	Version         string         // optional assessment version tag
	StudentID       string         // linked student, empty for anonymous/trial runs
	GlobalScore     *float64       // raw disciplinary score 0-100, nil until graded
	ConfidenceIndex *float64       // share of attempted questions 0-100
	Payload         *ResultPayload // decoded scoring result, nil when absent
	SSN             *float64       // last standardized score written by the engine
	CreatedAt       time.Time
}

// Graded reports whether the assessment carries a raw disciplinary score.
func (a Assessment) Graded() bool { return a.GlobalScore != nil }

// ProgressionPoint is one entry of a student's append-only SSN history.
type ProgressionPoint struct {
	ID         string
	StudentID  string
	SSN        float64
	RecordedAt time.Time
}

// ProjectionInput is the feature vector fed to the projection model.
type ProjectionInput struct {
	SSN         float64 `json:"ssn"`
	WeeklyHours float64 `json:"weeklyHours"`
	Methodology float64 `json:"methodology"`
	Trend       float64 `json:"trend"`
}

// ProjectionPoint is a persisted projection. Projections are never updated.
type ProjectionPoint struct {
	ID           string
	StudentID    string
	SSNProjected float64
	Confidence   int
	ModelVersion string
	Input        ProjectionInput
	CreatedAt    time.Time
}

// Float64 returns a pointer to v. Handy for optional scores.
func Float64(v float64) *float64 { return &v }
