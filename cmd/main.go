package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/moodtune/internal/adapters/classifier"
	"github.com/okian/moodtune/internal/adapters/explainer"
	"github.com/okian/moodtune/internal/adapters/http/api"
	"github.com/okian/moodtune/internal/adapters/repository"
	"github.com/okian/moodtune/internal/adapters/worker"
	service "github.com/okian/moodtune/internal/app"
	"github.com/okian/moodtune/internal/config"
	"github.com/okian/moodtune/internal/domain/dedupe"
	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	classifierProbeEvery   = 30 * time.Second
)

func main() {
	// Custom system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := setupLogging(cfg); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	a, err := build(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}

	if err := a.run(ctx, cfg.Addr); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
	}
}

func setupLogging(cfg *config.Config) error {
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.Init(); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// application is the wired service and everything it owns.
type application struct {
	svc     *service.Service
	manager *classifier.Manager
	pool    *worker.Pool
	handler http.Handler
	closers []func() error
	log     logger.Logger
}

// build wires every component from cfg. Nothing is listening yet.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	a := &application{log: log}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var backend classifier.Backend = classifier.NewLexicon()
	probe := time.Duration(0)
	if cfg.ClassifierURL != "" {
		backend = classifier.NewHTTPClient(cfg.ClassifierURL,
			classifier.WithTimeout(cfg.ClassifierTimeout()),
			classifier.WithLogger(log.Named("classifier")))
		probe = classifierProbeEvery
	}
	a.manager = classifier.NewManager(backend,
		classifier.WithFallbackVersion(cfg.ModelVersion),
		classifier.WithProbeInterval(probe),
		classifier.WithManagerLogger(log.Named("classifier-manager")))
	if err := a.manager.Start(ctx); err != nil {
		// Readiness stays false until a background probe succeeds.
		log.Warn(ctx, "classifier not ready at startup", logger.Error(err))
	}

	var ex explainer.Explainer = explainer.Noop{}
	if cfg.ExplainerURL != "" {
		ex = explainer.NewHTTPExplainer(cfg.ExplainerURL,
			explainer.WithTimeout(cfg.ExplainerTimeout()),
			explainer.WithLogger(log.Named("explainer")))
	}

	store, err := repository.Open(ctx, cfg.StorageDriver, cfg.StorageDSN,
		repository.WithLogger(log.Named("store")))
	if err != nil {
		a.manager.Stop()
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := seedCatalog(ctx, store, cfg.CatalogFile, log); err != nil {
		_ = store.Close()
		a.manager.Stop()
		return nil, err
	}

	deduper, err := a.newDeduper(cfg)
	if err != nil {
		_ = store.Close()
		a.manager.Stop()
		return nil, err
	}

	a.pool = worker.NewPool(
		worker.WithWorkers(cfg.BatchWorkers),
		worker.WithLogger(log.Named("pool")))

	a.svc = service.New(a.manager,
		service.WithExplainer(ex),
		service.WithStore(store),
		service.WithDeduper(deduper),
		service.WithPool(a.pool),
		service.WithThreshold(cfg.Threshold),
		service.WithRecentDays(cfg.RecentDays),
		service.WithInsightDays(cfg.InsightDays),
		service.WithLocation(loc),
		service.WithMaxTextLength(cfg.MaxTextLength),
		service.WithMaxBatchSize(cfg.MaxBatchSize),
		service.WithLogger(log.Named("service")))
	if err := a.svc.Start(ctx); err != nil {
		_ = store.Close()
		a.manager.Stop()
		return nil, fmt.Errorf("start service: %w", err)
	}

	a.handler = api.NewServer(a.svc, api.WithLogger(log.Named("api"))).Routes()
	return a, nil
}

func (a *application) newDeduper(cfg *config.Config) (dedupe.Deduper, error) {
	if cfg.DedupeBackend != config.DedupeRedis {
		return dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(cfg.DedupeSize),
			dedupe.WithTTL(cfg.IdempotencyTTL())), nil
	}
	client, err := dedupe.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return dedupe.NewRedisDeduper(client, cfg.IdempotencyTTL()), nil
}

// seedCatalog fills an empty store from path, or from the built-in catalog
// when path is empty.
func seedCatalog(ctx context.Context, store repository.Store, path string, log logger.Logger) error {
	items := repository.DefaultCatalog()
	if path != "" {
		var err error
		if items, err = repository.LoadCatalogFile(path); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	}
	n, err := repository.Seed(ctx, store, items)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if n > 0 {
		log.Info(ctx, "catalog seeded", logger.Int("items", n), logger.String("source", catalogSource(path)))
	}
	return nil
}

func catalogSource(path string) string {
	if path == "" {
		return "default"
	}
	return path
}

// run serves HTTP on addr until ctx ends, then shuts everything down.
func (a *application) run(ctx context.Context, addr string) error {
	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, a.pool)

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info(ctx, "starting HTTP server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	a.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	a.close(shutdownCtx)
	a.log.Info(shutdownCtx, "server stopped")
	return serveErr
}

// close stops the service, the classifier manager and any remaining clients.
func (a *application) close(ctx context.Context) {
	if err := a.svc.Stop(ctx); err != nil {
		a.log.Error(ctx, "service stop failed", logger.Error(err))
	}
	a.manager.Stop()
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn(ctx, "close failed", logger.Error(err))
		}
	}
}

// startSystemMetricsUpdater updates system metrics until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater updates worker pool metrics until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, pool *worker.Pool) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateWorkerQueueSize(pool.Len())
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
