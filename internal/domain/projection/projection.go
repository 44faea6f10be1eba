// Package projection forecasts a student's standardized score eight weeks
// ahead with a fixed-coefficient linear model.
package projection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/normalize"
)

// ModelVersion tags the coefficient set below.
const ModelVersion = "ridge_v1"

// Model coefficients.
const (
	Intercept        = 5.0
	CoefSSN          = 0.6
	CoefWeeklyHours  = 1.2
	CoefMethodology  = 0.3
	CoefTrend        = 0.8
	maxTrend         = 20.0
	saturatingCount  = 5
	dispersionFactor = 4.0
	neutralScore     = 50
)

// Confidence weights.
const (
	weightBilans     = 0.4
	weightStability  = 0.3
	weightDispersion = 0.3
	weightDirection  = 0.6
	weightAmplitude  = 0.4
)

// Defaults applied when the caller leaves a feature unset.
const (
	DefaultWeeklyHours = 3.0
	DefaultMethodology = 50.0
)

// Input is the feature vector of the model.
type Input = model.ProjectionInput

// Breakdown holds the three confidence components, each 0-100.
type Breakdown struct {
	BilansNorm        int `json:"bilansNorm"`
	StabilityTrend    int `json:"stabilityTrend"`
	DispersionInverse int `json:"dispersionInverse"`
}

// Result is a projection of one student.
type Result struct {
	StudentID    string    `json:"studentId"`
	SSNProjected float64   `json:"ssnProjected"`
	Confidence   int       `json:"confidence"`
	ModelVersion string    `json:"modelVersion"`
	Input        Input     `json:"input"`
	Breakdown    Breakdown `json:"breakdown"`
	HistorySize  int       `json:"historySize"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Request carries optional caller-supplied features.
type Request struct {
	WeeklyHours *float64
	Methodology *float64
}

// Repository is the persistence the engine needs.
type Repository interface {
	// FetchProgressionHistory returns points oldest first.
	FetchProgressionHistory(ctx context.Context, studentID string) ([]model.ProgressionPoint, error)
	AppendProjectionPoint(ctx context.Context, p model.ProjectionPoint) error
}

// Predict applies the model, rounded to one decimal and clamped to [0,100].
func Predict(in Input) float64 {
	v := Intercept +
		CoefSSN*in.SSN +
		CoefWeeklyHours*in.WeeklyHours +
		CoefMethodology*in.Methodology +
		CoefTrend*in.Trend
	return normalize.Clamp(normalize.Round1(v), normalize.MinSSN, normalize.MaxSSN)
}

// Trend is the slope (last-first)/count clamped to ±20, or 0 below two points.
func Trend(history []float64) float64 {
	if len(history) < 2 {
		return 0
	}
	slope := (history[len(history)-1] - history[0]) / float64(len(history))
	return normalize.Clamp(slope, -maxTrend, maxTrend)
}

// Stability scores how regular the progression is. Fewer than three points
// is neutral (50). Two zero deltas count as perfectly consistent.
func Stability(history []float64) int {
	if len(history) < 3 {
		return neutralScore
	}

	deltas := make([]float64, len(history)-1)
	for i := 1; i < len(history); i++ {
		deltas[i-1] = history[i] - history[i-1]
	}

	pairs := len(deltas) - 1
	var sameSign int
	var amplitude float64
	for i := 0; i < pairs; i++ {
		a, b := deltas[i], deltas[i+1]
		if sign(a) == sign(b) {
			sameSign++
		}
		lo, hi := math.Abs(a), math.Abs(b)
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi == 0 {
			amplitude++
		} else {
			amplitude += lo / hi
		}
	}

	direction := 100 * float64(sameSign) / float64(pairs)
	amp := 100 * amplitude / float64(pairs)
	return int(math.Round(weightDirection*direction + weightAmplitude*amp))
}

// Confidence combines sample count, stability and dispersion.
func Confidence(assessmentCount int, history []float64) (int, Breakdown) {
	bilans := math.Min(float64(assessmentCount)/saturatingCount, 1) * 100
	stability := float64(Stability(history))

	dispersion := float64(neutralScore)
	if len(history) >= 2 {
		dispersion = normalize.Clamp(100-dispersionFactor*stdDev(history), 0, 100)
	}

	conf := math.Round(weightBilans*bilans + weightStability*stability + weightDispersion*dispersion)
	return int(normalize.Clamp(conf, 0, 100)), Breakdown{
		BilansNorm:        int(math.Round(bilans)),
		StabilityTrend:    int(stability),
		DispersionInverse: int(math.Round(dispersion)),
	}
}

// Engine projects students from their progression history.
type Engine struct {
	repo               Repository
	now                func() time.Time
	newID              func() string
	defaultHours       float64
	defaultMethodology float64
}

// NewEngine creates an Engine.
func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:               repo,
		now:                time.Now,
		newID:              uuid.NewString,
		defaultHours:       DefaultWeeklyHours,
		defaultMethodology: DefaultMethodology,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Project forecasts studentID and persists the projection. It returns nil
// when the student has no history.
func (e *Engine) Project(ctx context.Context, studentID string, req Request) (*Result, error) {
	hours := e.defaultHours
	if req.WeeklyHours != nil {
		hours = *req.WeeklyHours
	}
	methodology := e.defaultMethodology
	if req.Methodology != nil {
		methodology = *req.Methodology
	}
	if hours < 0 || math.IsNaN(hours) {
		return nil, fmt.Errorf("%w: weekly hours %v", ErrInvalidInput, hours)
	}
	if methodology < 0 || methodology > 100 || math.IsNaN(methodology) {
		return nil, fmt.Errorf("%w: methodology %v", ErrInvalidInput, methodology)
	}

	points, err := e.repo.FetchProgressionHistory(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("fetch history of %s: %w", studentID, err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	history := make([]float64, len(points))
	for i, p := range points {
		history[i] = p.SSN
	}

	in := Input{
		SSN:         history[len(history)-1],
		WeeklyHours: hours,
		Methodology: methodology,
		Trend:       Trend(history),
	}
	conf, breakdown := Confidence(len(history), history)

	res := &Result{
		StudentID:    studentID,
		SSNProjected: Predict(in),
		Confidence:   conf,
		ModelVersion: ModelVersion,
		Input:        in,
		Breakdown:    breakdown,
		HistorySize:  len(history),
		CreatedAt:    e.now(),
	}

	point := model.ProjectionPoint{
		ID:           e.newID(),
		StudentID:    studentID,
		SSNProjected: res.SSNProjected,
		Confidence:   res.Confidence,
		ModelVersion: res.ModelVersion,
		Input:        res.Input,
		CreatedAt:    res.CreatedAt,
	}
	if err := e.repo.AppendProjectionPoint(ctx, point); err != nil {
		return nil, fmt.Errorf("append projection for %s: %w", studentID, err)
	}
	return res, nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)))
}
