package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/model"
)

// MemoryStore keeps everything in process memory. Insertion order is preserved.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]*model.Assessment
	order       []string
	progression map[string][]model.ProgressionPoint
	projections map[string][]model.ProjectionPoint
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: make(map[string]*model.Assessment),
		progression: make(map[string][]model.ProgressionPoint),
		projections: make(map[string][]model.ProjectionPoint),
	}
}

// PutAssessment stores a copy of a.
func (s *MemoryStore) PutAssessment(_ context.Context, a model.Assessment) error {
	if a.ID == "" || a.Subject == "" {
		return fmt.Errorf("%w: id and subject are required", ErrInvalidAssessment)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assessments[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, a.ID)
	}
	cp := a
	s.assessments[a.ID] = &cp
	s.order = append(s.order, a.ID)
	return nil
}

// FetchAssessment returns nil when id is unknown.
func (s *MemoryStore) FetchAssessment(_ context.Context, id string) (*model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// FetchRawScores returns graded global scores of the cohort in insertion order.
func (s *MemoryStore) FetchRawScores(_ context.Context, key cohort.Key) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []float64
	for _, id := range s.order {
		a := s.assessments[id]
		if a.Graded() && matchesKey(a, key) {
			out = append(out, *a.GlobalScore)
		}
	}
	return out, nil
}

// FetchAssessmentsNeedingRescoring returns graded assessments of the type.
func (s *MemoryStore) FetchAssessmentsNeedingRescoring(_ context.Context, assessmentType string) ([]model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Assessment
	for _, id := range s.order {
		a := s.assessments[id]
		if a.Graded() && a.Subject == assessmentType {
			out = append(out, *a)
		}
	}
	return out, nil
}

// WriteStandardizedScore sets the SSN of an existing assessment.
func (s *MemoryStore) WriteStandardizedScore(_ context.Context, assessmentID string, ssn float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assessments[assessmentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, assessmentID)
	}
	a.SSN = model.Float64(ssn)
	return nil
}

// ResolveLinkedStudent returns "" for unknown or anonymous assessments.
func (s *MemoryStore) ResolveLinkedStudent(_ context.Context, assessmentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.assessments[assessmentID]; ok {
		return a.StudentID, nil
	}
	return "", nil
}

// AppendProgressionPoint appends to the student's history.
func (s *MemoryStore) AppendProgressionPoint(_ context.Context, p model.ProgressionPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progression[p.StudentID] = append(s.progression[p.StudentID], p)
	return nil
}

// FetchProgressionHistory returns a copy of the history, oldest first.
func (s *MemoryStore) FetchProgressionHistory(_ context.Context, studentID string) ([]model.ProgressionPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.progression[studentID]
	out := make([]model.ProgressionPoint, len(h))
	copy(out, h)
	return out, nil
}

// AppendProjectionPoint appends a projection.
func (s *MemoryStore) AppendProjectionPoint(_ context.Context, p model.ProjectionPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projections[p.StudentID] = append(s.projections[p.StudentID], p)
	return nil
}

// FetchProjectionHistory returns a copy of the projections, oldest first.
func (s *MemoryStore) FetchProjectionHistory(_ context.Context, studentID string) ([]model.ProjectionPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.projections[studentID]
	out := make([]model.ProjectionPoint, len(h))
	copy(out, h)
	return out, nil
}

// CountAssessments returns the number of stored assessments.
func (s *MemoryStore) CountAssessments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assessments), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
