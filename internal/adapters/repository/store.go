// Package repository persists assessments and the SSN/projection histories
// the scoring engine reads and appends to.
package repository

import (
	"context"

	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/projection"
	"github.com/okian/nexus-ssn/internal/domain/scoring"
)

// Store is the persistence collaborator of the engine.
type Store interface {
	cohort.Source
	scoring.Repository
	projection.Repository

	// PutAssessment inserts a new assessment. Returns ErrDuplicate when the id exists.
	PutAssessment(ctx context.Context, a model.Assessment) error

	// FetchProjectionHistory returns persisted projections of a student, oldest first.
	FetchProjectionHistory(ctx context.Context, studentID string) ([]model.ProjectionPoint, error)

	// CountAssessments returns the number of stored assessments.
	CountAssessments(ctx context.Context) (int, error)

	Close() error
}

func matchesKey(a *model.Assessment, key cohort.Key) bool {
	if a.Subject != key.Type {
		return false
	}
	return key.Version == "" || a.Version == key.Version
}
