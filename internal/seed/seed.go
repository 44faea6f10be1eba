// Package seed generates synthetic graded assessments for local runs and
// integration tests.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/pkg/logger"
)

// Config describes a synthetic cohort.
type Config struct {
	Type    string
	Version string
	Count   int
	Mean    float64
	Std     float64
	// StudentRatio is the share of assessments linked to a student.
	StudentRatio float64
	// Students is the number of distinct students the linked share is spread over.
	Students int
	// UngradedRatio is the share of assessments left without a global score.
	UngradedRatio float64
	Seed          uint64
	Start         time.Time
}

// DefaultConfig returns a 200-assessment MATHS cohort.
func DefaultConfig() Config {
	return Config{
		Type:         "MATHS",
		Count:        200,
		Mean:         58,
		Std:          14,
		StudentRatio: 0.5,
		Students:     25,
		Seed:         42,
		Start:        time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
	}
}

// Generate draws cfg.Count assessments. The same config always yields the same data.
func Generate(cfg Config) []model.Assessment {
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	out := make([]model.Assessment, cfg.Count)

	for i := range out {
		a := model.Assessment{
			ID:        assessmentID(cfg, i),
			Subject:   cfg.Type,
			Version:   cfg.Version,
			CreatedAt: cfg.Start.Add(time.Duration(i) * time.Hour),
		}
		if cfg.Students > 0 && r.Float64() < cfg.StudentRatio {
			a.StudentID = fmt.Sprintf("student-%03d", r.IntN(cfg.Students))
		}
		if r.Float64() < cfg.UngradedRatio {
			out[i] = a
			continue
		}

		global := score(r.NormFloat64()*cfg.Std + cfg.Mean)
		confidence := score(70 + r.NormFloat64()*15)
		precision := score(global + r.NormFloat64()*8)
		a.GlobalScore = model.Float64(global)
		a.ConfidenceIndex = model.Float64(confidence)
		a.Payload = model.NewResultPayload(model.Float64(precision), map[string]float64{
			"Méthodologie": score(global + r.NormFloat64()*10),
			"Analyse":      score(global + r.NormFloat64()*12),
			"Algèbre":      score(global + r.NormFloat64()*12),
		})
		out[i] = a
	}
	return out
}

// Store is where seeded assessments are written.
type Store interface {
	PutAssessment(ctx context.Context, a model.Assessment) error
}

// Load writes assessments and returns how many were stored.
func Load(ctx context.Context, store Store, assessments []model.Assessment) (int, error) {
	log := logger.Get().Named("seed")
	for i, a := range assessments {
		if err := store.PutAssessment(ctx, a); err != nil {
			return i, fmt.Errorf("seed assessment %s: %w", a.ID, err)
		}
	}
	log.Info(ctx, "seeded assessments", logger.Int("count", len(assessments)))
	return len(assessments), nil
}

func assessmentID(cfg Config, i int) string {
	name := fmt.Sprintf("%s/%s/%d/%d", cfg.Type, cfg.Version, cfg.Seed, i)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func score(v float64) float64 {
	return math.Round(math.Max(0, math.Min(100, v))*10) / 10
}
