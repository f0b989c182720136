package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

const defaultProbeTimeout = 3 * time.Second

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithProbeInterval re-probes the backend periodically after Start. Zero
// disables periodic probing.
func WithProbeInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.probeInterval = d
		}
	}
}

// WithFallbackVersion sets the model version reported when the backend does
// not name one.
func WithFallbackVersion(v string) ManagerOption {
	return func(m *Manager) {
		if v != "" {
			m.fallbackVersion = v
		}
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager owns one classifier backend and its readiness. It is constructed
// once at startup and shared by all requests.
type Manager struct {
	backend         Backend
	ready           atomic.Bool
	version         atomic.Value // string
	fallbackVersion string
	probeInterval   time.Duration
	logger          logger.Logger

	started  atomic.Bool
	shutdown chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewManager wraps backend. The manager is not ready until Start succeeds.
func NewManager(backend Backend, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:         backend,
		fallbackVersion: emotion.DefaultModelVersion,
		logger:          logger.Get().Named("classifier-manager"),
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.version.Store(m.fallbackVersion)
	return m
}

// Start probes the backend once and, when a probe interval is set, keeps
// probing in the background until ctx ends or Stop is called. The first probe
// failing is returned but does not stop background probing. Later calls are
// no-ops.
func (m *Manager) Start(ctx context.Context) error {
	if m.started.Swap(true) {
		return nil
	}
	err := m.Probe(ctx)
	if m.probeInterval > 0 {
		go m.loop(ctx)
	} else {
		close(m.done)
	}
	return err
}

// Stop ends background probing.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
	if m.started.Load() {
		<-m.done
	}
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.shutdown:
			return
		case <-ticker.C:
			_ = m.Probe(ctx)
		}
	}
}

// Probe checks the backend and updates readiness.
func (m *Manager) Probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	version, err := m.backend.Health(pctx)
	if err != nil {
		if m.ready.Swap(false) {
			m.logger.Warn(ctx, "classifier became unavailable", logger.Error(err))
		}
		metrics.RecordClassifierError("probe")
		return fmt.Errorf("probe classifier: %w", err)
	}
	if version == "" {
		version = m.fallbackVersion
	}
	m.version.Store(version)
	if !m.ready.Swap(true) {
		m.logger.Info(ctx, "classifier ready", logger.String("model_version", version))
	}
	return nil
}

// Ready reports whether the last probe succeeded.
func (m *Manager) Ready() bool {
	return m.ready.Load()
}

// ModelVersion is the version reported by the last successful probe or
// classification.
func (m *Manager) ModelVersion() string {
	v, _ := m.version.Load().(string)
	return v
}

// Classify implements Classifier. A manager that is not ready fails fast with
// emotion.ErrModelUnavailable.
func (m *Manager) Classify(ctx context.Context, text string) (map[string]float64, error) {
	if !m.Ready() {
		metrics.RecordClassifierError("not_ready")
		return nil, fmt.Errorf("%w: classifier not ready", emotion.ErrModelUnavailable)
	}

	start := time.Now()
	scores, err := m.backend.Classify(ctx, text)
	metrics.RecordClassifierLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		reason := "backend"
		switch {
		case errors.Is(err, ErrIncompleteScores):
			reason = "incomplete_scores"
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		}
		metrics.RecordClassifierError(reason)
		m.logger.Error(ctx, "classification failed", logger.String("reason", reason), logger.Error(err))
		return nil, err
	}
	if vr, ok := m.backend.(Versioner); ok {
		if v := vr.ModelVersion(); v != "" {
			m.version.Store(v)
		}
	}
	return scores, nil
}
