// Package service wires the scoring engine together and exposes the
// operations used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/nexus-ssn/internal/adapters/cache"
	"github.com/okian/nexus-ssn/internal/adapters/mq/queue"
	"github.com/okian/nexus-ssn/internal/adapters/mq/worker"
	"github.com/okian/nexus-ssn/internal/adapters/repository"
	"github.com/okian/nexus-ssn/internal/domain/cohort"
	"github.com/okian/nexus-ssn/internal/domain/dedupe"
	"github.com/okian/nexus-ssn/internal/domain/model"
	"github.com/okian/nexus-ssn/internal/domain/normalize"
	"github.com/okian/nexus-ssn/internal/domain/projection"
	"github.com/okian/nexus-ssn/internal/domain/scoring"
	"github.com/okian/nexus-ssn/internal/domain/stage"
	"github.com/okian/nexus-ssn/pkg/logger"
	"github.com/okian/nexus-ssn/pkg/metrics"
)

// Mirror is a cohort snapshot mirror that can also be read back.
type Mirror interface {
	cohort.Mirror
	Load(ctx context.Context, key cohort.Key) (cohort.Snapshot, error)
}

// Snapshot sources reported by CohortStats.
const (
	SourceLocal  = "local"
	SourceMirror = "mirror"
)

// NormalizeRequest is the input of a standalone normalization.
type NormalizeRequest struct {
	Raw          float64   `json:"raw"`
	Mean         float64   `json:"mean"`
	Std          float64   `json:"std"`
	Distribution []float64 `json:"distribution,omitempty"`
}

// NormalizeResult is the output of a standalone normalization.
type NormalizeResult struct {
	SSN        float64        `json:"ssn"`
	Tier       normalize.Tier `json:"tier"`
	Label      string         `json:"label"`
	Percentile *float64       `json:"percentile,omitempty"`
}

// StageRequest scores a quiz and optionally records it as a graded assessment.
type StageRequest struct {
	Subject        stage.Subject  `json:"subject,omitempty"`
	Answers        []stage.Answer `json:"answers"`
	AssessmentID   string         `json:"assessmentId,omitempty"`
	AssessmentType string         `json:"assessmentType,omitempty"`
	Version        string         `json:"version,omitempty"`
	StudentID      string         `json:"studentId,omitempty"`
}

// Stats is a point-in-time view of the async pipeline.
type Stats struct {
	Started       bool     `json:"started"`
	Workers       int      `json:"workers"`
	QueueLength   int      `json:"queueLength"`
	QueueCapacity int      `json:"queueCapacity"`
	InFlightJobs  int64    `json:"inFlightJobs"`
	CachedCohorts []string `json:"cachedCohorts"`
	Assessments   int      `json:"assessments"`
}

// Service implements the API dependencies of the scoring engine.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	cohorts    *cohort.Cache
	scorer     *scoring.Scorer
	projector  *projection.Engine
	deduper    dedupe.Deduper
	jobs       queue.Queue
	workerPool *worker.Pool
	mirror     Mirror
	bank       []stage.Question

	workerCount        int
	queueSize          int
	dedupeSize         int
	batchConcurrency   int
	defaultWeeklyHours float64
	defaultMethodology float64
	now                func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service on top of store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:              store,
		workerCount:        runtime.NumCPU(),
		queueSize:          10_000,
		dedupeSize:         100_000,
		batchConcurrency:   4,
		defaultWeeklyHours: projection.DefaultWeeklyHours,
		defaultMethodology: projection.DefaultMethodology,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	cohortOpts := []cohort.Option{cohort.WithClock(s.now)}
	if s.mirror != nil {
		cohortOpts = append(cohortOpts,
			cohort.WithMirror(s.mirror),
			cohort.WithMirrorErrorHandler(func(k cohort.Key, err error) {
				s.logger.Warn(context.Background(), "cohort mirror publish failed",
					logger.String("cohort", k.String()), logger.Error(err))
			}),
		)
	}
	s.cohorts = cohort.NewCache(store, cohortOpts...)

	repo := instrumentedStore{Store: store}
	s.scorer = scoring.NewScorer(repo, instrumentedCohorts{cache: s.cohorts},
		scoring.WithClock(s.now),
		scoring.WithBatchConcurrency(s.batchConcurrency),
	)
	s.projector = projection.NewEngine(store,
		projection.WithClock(s.now),
		projection.WithDefaultWeeklyHours(s.defaultWeeklyHours),
		projection.WithDefaultMethodology(s.defaultMethodology),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start loads the question bank and launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.bank == nil {
		bank, err := stage.DefaultBank()
		if err != nil {
			return fmt.Errorf("load default question bank: %w", err)
		}
		s.bank = bank
	}

	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.jobs, worker.HandlerFunc(s.handleJob),
		worker.WithLogger(s.logger.Named("worker")))
	// Workers outlive the request that started the service.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("questions", len(s.bank)),
	)
	return nil
}

// Stop drains the job queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scoring service")

	err := s.workerPool.Shutdown(ctx)
	s.started = false
	if err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	s.logger.Info(ctx, "scoring service stopped")
	return nil
}

// Normalize runs the normalizer on caller-supplied statistics.
func (s *Service) Normalize(req NormalizeRequest) NormalizeResult {
	ssn := normalize.Normalize(req.Raw, req.Mean, req.Std)
	tier := normalize.Classify(ssn)
	res := NormalizeResult{SSN: ssn, Tier: tier, Label: tier.Label()}
	if req.Distribution != nil {
		p := normalize.Percentile(req.Raw, req.Distribution)
		res.Percentile = &p
	}
	return res
}

// ComputeSSN scores an assessment without persisting anything.
func (s *Service) ComputeSSN(ctx context.Context, assessmentID string) (*scoring.Result, error) {
	r, err := s.scorer.ComputeForAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: graded assessment %s", ErrNotFound, assessmentID)
	}
	return r, nil
}

// PersistSSN scores an assessment, writes the SSN and extends the student's history.
func (s *Service) PersistSSN(ctx context.Context, assessmentID string) (*scoring.Result, error) {
	start := s.now()
	r, err := s.scorer.ComputeAndPersist(ctx, assessmentID)
	if err != nil {
		s.logger.Error(ctx, "persist ssn failed", logger.String("assessment_id", assessmentID), logger.Error(err))
		return nil, err
	}
	if r == nil {
		metrics.RecordSSNSkipped()
		return nil, fmt.Errorf("%w: graded assessment %s", ErrNotFound, assessmentID)
	}
	metrics.RecordSSNComputed(string(r.Tier), s.now().Sub(start))
	return r, nil
}

// SubmitAsync enqueues a ComputeAndPersist job. A second submission for the
// same assessment is rejected until the first one finishes.
func (s *Service) SubmitAsync(ctx context.Context, assessmentID string) (model.ScoringJob, error) {
	s.mu.RLock()
	started, jobs := s.started, s.jobs
	s.mu.RUnlock()
	if !started {
		return model.ScoringJob{}, ErrNotStarted
	}

	a, err := s.store.FetchAssessment(ctx, assessmentID)
	if err != nil {
		return model.ScoringJob{}, fmt.Errorf("fetch assessment %s: %w", assessmentID, err)
	}
	if a == nil || !a.Graded() {
		return model.ScoringJob{}, fmt.Errorf("%w: graded assessment %s", ErrNotFound, assessmentID)
	}

	if s.deduper.SeenAndRecord(ctx, assessmentID) {
		metrics.RecordJobRejected("duplicate")
		return model.ScoringJob{}, fmt.Errorf("%w: %s", ErrDuplicateJob, assessmentID)
	}

	job := model.ScoringJob{ID: uuid.NewString(), AssessmentID: assessmentID, EnqueuedAt: s.now()}
	if err := jobs.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, assessmentID)
		if errors.Is(err, queue.ErrFull) {
			return model.ScoringJob{}, fmt.Errorf("%w: %w", ErrQueueFull, err)
		}
		if errors.Is(err, queue.ErrClosed) {
			return model.ScoringJob{}, fmt.Errorf("%w: %w", ErrNotStarted, err)
		}
		return model.ScoringJob{}, fmt.Errorf("enqueue %s: %w", assessmentID, err)
	}

	s.logger.Debug(ctx, "scoring job enqueued",
		logger.String("job_id", job.ID), logger.String("assessment_id", assessmentID))
	return job, nil
}

func (s *Service) handleJob(ctx context.Context, j worker.Job) error {
	defer s.deduper.Unrecord(ctx, j.AssessmentID)

	_, err := s.PersistSSN(ctx, j.AssessmentID)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn(ctx, "scoring job skipped", logger.String("assessment_id", j.AssessmentID))
		return nil
	}
	return err
}

// RecomputeCohort re-normalizes every graded assessment of assessmentType.
func (s *Service) RecomputeCohort(ctx context.Context, assessmentType string) (scoring.BatchResult, error) {
	res, err := s.scorer.RecomputeBatch(ctx, assessmentType)
	metrics.RecordBatchRescored(assessmentType, res.Updated)
	if err != nil {
		s.logger.Error(ctx, "cohort recompute failed",
			logger.String("cohort", assessmentType), logger.Int("updated", res.Updated), logger.Error(err))
		return res, err
	}
	s.logger.Info(ctx, "cohort recomputed",
		logger.String("cohort", assessmentType),
		logger.Int("updated", res.Updated),
		logger.Int("sampleSize", res.Cohort.SampleSize),
		logger.Bool("lowSample", res.Cohort.IsLowSample),
	)
	return res, nil
}

// CohortStats returns the last computed snapshot of key, looking in the
// process cache first and then in the mirror.
func (s *Service) CohortStats(ctx context.Context, key cohort.Key) (cohort.Snapshot, string, error) {
	if snap, ok := s.cohorts.Cached(key); ok {
		return snap, SourceLocal, nil
	}
	if s.mirror == nil {
		return cohort.Snapshot{}, "", fmt.Errorf("%w: cohort %s", ErrNotFound, key)
	}

	snap, err := s.mirror.Load(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return cohort.Snapshot{}, "", fmt.Errorf("%w: cohort %s", ErrNotFound, key)
	}
	if err != nil {
		return cohort.Snapshot{}, "", fmt.Errorf("load mirrored cohort %s: %w", key, err)
	}
	return snap, SourceMirror, nil
}

// AuditCohort recomputes key and reports the drift from the previous snapshot.
func (s *Service) AuditCohort(ctx context.Context, key cohort.Key) (cohort.Audit, error) {
	audit, err := s.cohorts.ComputeWithAudit(ctx, key)
	if err != nil {
		return cohort.Audit{}, err
	}
	metrics.RecordCohortRecompute(key.Type, audit.Stats.SampleSize, audit.Stats.IsLowSample)
	return audit, nil
}

// ScoreStage scores a quiz against the question bank. When an assessment id
// is given the result is stored as a graded assessment ready for SSN scoring.
func (s *Service) ScoreStage(ctx context.Context, req StageRequest) (stage.Result, error) {
	for _, a := range req.Answers {
		if !a.Status.Valid() {
			return stage.Result{}, fmt.Errorf("%w: answer status %q for question %s", ErrInvalidInput, a.Status, a.QuestionID)
		}
	}
	if req.AssessmentID != "" && req.AssessmentType == "" {
		return stage.Result{}, fmt.Errorf("%w: assessmentType is required with assessmentId", ErrInvalidInput)
	}

	s.mu.RLock()
	bank := s.bank
	s.mu.RUnlock()
	if bank == nil {
		return stage.Result{}, ErrNotStarted
	}

	questions := bank
	if req.Subject != "" {
		questions = make([]stage.Question, 0, len(bank))
		for _, q := range bank {
			if q.Subject == req.Subject {
				questions = append(questions, q)
			}
		}
		if len(questions) == 0 {
			return stage.Result{}, fmt.Errorf("%w: no questions for subject %s", ErrInvalidInput, req.Subject)
		}
	}

	res := stage.Score(req.Answers, questions)
	res.ScoredAt = s.now()
	metrics.RecordStageScored(len(res.BasesFragiles))

	if req.AssessmentID == "" {
		return res, nil
	}

	a := model.Assessment{
		ID:              req.AssessmentID,
		Subject:         req.AssessmentType,
		Version:         req.Version,
		StudentID:       req.StudentID,
		GlobalScore:     model.Float64(res.GlobalScore),
		ConfidenceIndex: model.Float64(res.ConfidenceIndex),
		Payload:         res.Payload(),
		CreatedAt:       res.ScoredAt,
	}
	if err := s.store.PutAssessment(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return stage.Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return stage.Result{}, fmt.Errorf("store assessment %s: %w", req.AssessmentID, err)
	}
	return res, nil
}

// Project forecasts a student's next SSN and persists the projection.
func (s *Service) Project(ctx context.Context, studentID string, req projection.Request) (*projection.Result, error) {
	res, err := s.projector.Project(ctx, studentID, req)
	if errors.Is(err, projection.ErrInvalidInput) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: progression history of %s", ErrNotFound, studentID)
	}
	metrics.RecordProjection(res.Confidence)
	return res, nil
}

// Stats returns queue, worker and cache figures.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:      s.started,
		Workers:      s.workerCount,
		InFlightJobs: s.deduper.Size(),
	}
	if s.jobs != nil {
		st.QueueLength = s.jobs.Len(ctx)
		st.QueueCapacity = s.jobs.Cap()
	}
	for _, k := range s.cohorts.Keys() {
		st.CachedCohorts = append(st.CachedCohorts, k.String())
	}
	sort.Strings(st.CachedCohorts)

	if n, err := s.store.CountAssessments(ctx); err == nil {
		st.Assessments = n
	} else {
		s.logger.Warn(ctx, "count assessments failed", logger.Error(err))
	}
	return st
}
