package repository_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/nexus-ssn/internal/adapters/repository"
	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/scoring"
	"github.com/okian/nexus-ssn/pkg/logger"
)

func openSQLite(t *testing.T) *repository.SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "nexus.db")
	s, err := repository.Open(context.Background(), repository.DriverSQLite, dsn,
		repository.WithLogger(logger.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedMaths(t *testing.T, s *repository.SQLStore) {
	t.Helper()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, score := range []float64{40, 55, 70} {
		require.NoError(t, s.PutAssessment(context.Background(), model.Assessment{
			ID:          []string{"a1", "a2", "a3"}[i],
			Subject:     "MATHS",
			GlobalScore: model.Float64(score),
			Payload:     model.NewResultPayload(model.Float64(80), nil),
			CreatedAt:   at.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestSQLiteUnreadablePayloads(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		payload string
	}{
		{name: "precision index stored as a string", payload: `{"precisionIndex":"80"}`},
		{name: "payload that is not JSON", payload: `{precision`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := openSQLite(t)
			seedMaths(t, s)
			require.NoError(t, s.ExecRaw(ctx, `UPDATE assessments SET payload_json=$1 WHERE id=$2`, tc.payload, "a2"))

			got, err := s.FetchAssessment(ctx, "a2")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.NotNil(t, got.Payload)
			assert.Nil(t, got.Payload.PrecisionIndex)

			scorer := scoring.NewScorer(s, cohort.NewCache(s))
			r, err := scorer.ComputeForAssessment(ctx, "a2")
			require.NoError(t, err)
			require.NotNil(t, r)
			assert.InDelta(t, scoring.NeutralComponent, r.Components.Rigor, 1e-9)

			batch, err := scorer.RecomputeBatch(ctx, "MATHS")
			require.NoError(t, err)
			assert.Equal(t, 3, batch.Updated)

			for _, id := range []string{"a1", "a2", "a3"} {
				a, err := s.FetchAssessment(ctx, id)
				require.NoError(t, err)
				assert.NotNil(t, a.SSN, id)
			}
		})
	}
}

func TestSQLiteFetchErrorNamesOperationOnce(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	seedMaths(t, s)
	require.NoError(t, s.Close())

	_, err := scoring.NewScorer(s, cohort.NewCache(s)).ComputeForAssessment(ctx, "a1")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "fetch assessment"), err.Error())
	assert.Contains(t, err.Error(), "a1")
}
