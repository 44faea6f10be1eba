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

	"github.com/okian/nexus-ssn/internal/adapters/cache"
	"github.com/okian/nexus-ssn/internal/adapters/http/api"
	"github.com/okian/nexus-ssn/internal/adapters/repository"
	service "github.com/okian/nexus-ssn/internal/app"
	"github.com/okian/nexus-ssn/internal/config"
	"github.com/okian/nexus-ssn/internal/domain/stage"
	"github.com/okian/nexus-ssn/pkg/logger"
	"github.com/okian/nexus-ssn/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithBatchConcurrency(cfg.BatchConcurrency),
		service.WithProjectionDefaults(cfg.DefaultWeeklyHours, cfg.DefaultMethodology),
	}

	if cfg.RedisAddr != "" {
		client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		opts = append(opts, service.WithMirror(cache.NewSnapshotMirror(client, cache.WithTTL(cfg.RedisTTL()))))
		log.Info(ctx, "cohort mirror enabled", logger.String("redis_addr", cfg.RedisAddr))
	}

	if cfg.QuestionBankPath != "" {
		bank, err := loadBank(cfg.QuestionBankPath)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithQuestionBank(bank))
	}

	svc := service.New(store, opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx, cfg.MetricsRefresh())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, api.WithCORSOrigins(cfg.CORSOrigins)).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Info(ctx, "starting HTTP server",
		logger.String("addr", cfg.Addr),
		logger.String("store", cfg.StoreDriver),
		logger.Int("workers", cfg.WorkerCount),
	)
	return serve(ctx, srv, log, func(shutdownCtx context.Context) {
		if err := svc.Stop(shutdownCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	})
}

// serve runs srv until ctx is done or the listener fails, then shuts the
// server down and calls onStop. A listener failure is returned so the
// process exits non-zero.
func serve(ctx context.Context, srv *http.Server, log logger.Logger, onStop func(context.Context)) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var failure error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			failure = fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if onStop != nil {
		onStop(shutdownCtx)
	}

	log.Info(ctx, "server stopped")
	return failure
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var driver repository.Driver
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		driver = repository.DriverSQLite
	case config.StorePostgres:
		driver = repository.DriverPostgres
	default:
		return repository.NewMemoryStore(), nil
	}

	store, err := repository.Open(ctx, driver, cfg.StoreDSN,
		repository.WithMaxConns(cfg.StoreMaxConns),
		repository.WithLogger(logger.Named("repository")))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	return store, nil
}

func loadBank(path string) ([]stage.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open question bank: %w", err)
	}
	defer f.Close()

	bank, err := stage.LoadBank(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank %s: %w", path, err)
	}
	return bank, nil
}

// startSystemMetricsUpdater refreshes process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
