package service

import (
	"context"

	"github.com/okian/nexus-ssn/internal/adapters/repository"
	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/pkg/metrics"
)

// instrumentedStore counts progression points as they are appended.
type instrumentedStore struct {
	repository.Store
}

func (s instrumentedStore) AppendProgressionPoint(ctx context.Context, p model.ProgressionPoint) error {
	if err := s.Store.AppendProgressionPoint(ctx, p); err != nil {
		return err
	}
	metrics.RecordProgressionPoint()
	return nil
}

// instrumentedCohorts records every snapshot computation.
type instrumentedCohorts struct {
	cache *cohort.Cache
}

func (c instrumentedCohorts) Compute(ctx context.Context, key cohort.Key) (cohort.Snapshot, error) {
	snap, err := c.cache.Compute(ctx, key)
	if err != nil {
		return snap, err
	}
	metrics.RecordCohortRecompute(key.Type, snap.SampleSize, snap.IsLowSample)
	return snap, nil
}
