package model

import "time"

// ScoringJob asks a worker to compute and persist the SSN of an assessment.
type ScoringJob struct {
	ID           string
	AssessmentID string
	EnqueuedAt   time.Time
}
