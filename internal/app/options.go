package service

import (
	"time"

	"github.com/okian/nexus-ssn/internal/domain/stage"
	"github.com/okian/nexus-ssn/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the async scoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the in-flight job deduper.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBatchConcurrency bounds concurrent writes during cohort re-normalization.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithProjectionDefaults sets the features used when a projection request omits them.
func WithProjectionDefaults(weeklyHours, methodology float64) Option {
	return func(s *Service) {
		s.defaultWeeklyHours = weeklyHours
		s.defaultMethodology = methodology
	}
}

// WithMirror publishes cohort snapshots to m and reads them back on local misses.
func WithMirror(m Mirror) Option {
	return func(s *Service) {
		s.mirror = m
	}
}

// WithQuestionBank replaces the embedded stage question bank.
func WithQuestionBank(questions []stage.Question) Option {
	return func(s *Service) {
		if len(questions) > 0 {
			s.bank = questions
		}
	}
}

// WithClock overrides time.Now across the engine.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
