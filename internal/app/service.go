// Package service wires the classifier, explainer, store and deduper around
// the verdict, matching and analytics core. It implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/moodtune/internal/adapters/explainer"
	"github.com/okian/moodtune/internal/adapters/repository"
	"github.com/okian/moodtune/internal/adapters/worker"
	"github.com/okian/moodtune/internal/domain/dedupe"
	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/insights"
	"github.com/okian/moodtune/pkg/logger"
)

// Default service configuration.
const (
	defaultMaxTextLength = 5000
	defaultMaxBatchSize  = 10
	defaultInsightDays   = 30
)

// Classifier is the readiness-aware classifier the service calls.
// classifier.Manager satisfies it.
type Classifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
	Ready() bool
	ModelVersion() string
}

// Service implements the API dependencies for emotion analysis,
// recommendations and history analytics.
type Service struct {
	mu sync.Mutex

	classifier Classifier
	explainer  explainer.Explainer
	store      repository.Store
	deduper    dedupe.Deduper
	pool       *worker.Pool

	threshold     float64
	recentDays    int
	insightDays   int
	location      *time.Location
	maxTextLength int
	maxBatchSize  int
	now           func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithExplainer sets the explainability backend.
func WithExplainer(e explainer.Explainer) Option {
	return func(s *Service) {
		if e != nil {
			s.explainer = e
		}
	}
}

// WithStore sets the store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithDeduper sets the idempotency-key tracker.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithPool sets the worker pool used for batch analysis.
func WithPool(p *worker.Pool) Option {
	return func(s *Service) {
		if p != nil {
			s.pool = p
		}
	}
}

// WithThreshold sets the default detection threshold.
func WithThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 1 {
			s.threshold = t
		}
	}
}

// WithRecentDays sets the trend cutoff for mood patterns.
func WithRecentDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.recentDays = days
		}
	}
}

// WithInsightDays sets the default period for mood patterns and history stats.
func WithInsightDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.insightDays = days
		}
	}
}

// WithLocation sets the time zone used to bucket verdicts by weekday and hour.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMaxTextLength bounds the length of analyzed text in characters.
func WithMaxTextLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTextLength = n
		}
	}
}

// WithMaxBatchSize bounds the number of texts in a batch.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithClock replaces time.Now.
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

// New constructs a Service around c. Unset collaborators default to the
// in-memory implementations and no explainer.
func New(c Classifier, opts ...Option) *Service {
	s := &Service{
		classifier:    c,
		explainer:     explainer.Noop{},
		threshold:     emotion.DefaultThreshold,
		recentDays:    insights.DefaultRecentDays,
		insightDays:   defaultInsightDays,
		location:      time.UTC,
		maxTextLength: defaultMaxTextLength,
		maxBatchSize:  defaultMaxBatchSize,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper()
	}
	if s.pool == nil {
		s.pool = worker.NewPool(worker.WithLogger(s.logger.Named("pool")))
	}
	return s
}

// Start starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.pool.Start(ctx)
	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Float64("threshold", s.threshold),
		logger.Int("max_batch_size", s.maxBatchSize),
		logger.String("timezone", s.location.String()),
	)
	return nil
}

// Stop drains the worker pool and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "service stopped")
	return nil
}

// ReadyStatus reports whether the service can answer analysis requests.
type ReadyStatus struct {
	Ready        bool   `json:"ready"`
	ModelVersion string `json:"model_version"`
	Explainer    bool   `json:"explainer_available"`
}

// Ready reports classifier readiness and explainer availability.
func (s *Service) Ready(ctx context.Context) ReadyStatus {
	return ReadyStatus{
		Ready:        s.classifier.Ready(),
		ModelVersion: s.classifier.ModelVersion(),
		Explainer:    s.explainer.Available(ctx),
	}
}
