package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jask/contribsearch/internal/config"
	"github.com/jask/contribsearch/internal/database"
	"github.com/jask/contribsearch/internal/database/memstore"
	"github.com/jask/contribsearch/internal/database/pgstore"
	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/keydir"
	"github.com/jask/contribsearch/internal/metrics"
	"github.com/jask/contribsearch/internal/service"
)

// backend is the storage and services selected by store.driver.
type backend struct {
	store   service.RecordStore
	sink    service.ContributionSink
	runs    service.RunRecorder
	count   func(context.Context) (int, error)
	reset   func(context.Context) error
	keys    service.KeyDirectory
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	logger  *slog.Logger
	closers []func()
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	b := &backend{reg: reg, metrics: metrics.New(reg), logger: logger}

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		version, err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.Database.Path, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		logger.Debug("sqlite store ready", "path", cfg.Database.Path, "schema_version", version)
		repo := repository.NewContributionRepo(db)
		maint := &service.MaintenanceService{DB: db}
		b.store = service.Sessions(repo.Acquire)
		b.sink, b.runs, b.count, b.reset = repo, repo, repo.Count, maint.Reset
		b.closers = append(b.closers, func() { _ = db.Close() })

	case config.DriverPostgres:
		pg, err := pgstore.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		b.store = service.Sessions(pg.Acquire)
		b.sink, b.runs, b.count, b.reset = pg, pg, pg.Count, pg.Reset
		b.closers = append(b.closers, pg.Close)

	case config.DriverMemory:
		mem := memstore.New()
		b.store = service.Sessions(mem.Acquire)
		b.sink = mem
		b.count = func(context.Context) (int, error) { return mem.Len(), nil }
		b.reset = func(context.Context) error { return errors.New("the memory store is rebuilt on every run") }

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	b.keys = b.openDirectory(ctx, cfg.Redis)
	return b, nil
}

// openDirectory prefers Redis when configured and reachable.
func (b *backend) openDirectory(ctx context.Context, rc config.RedisConfig) service.KeyDirectory {
	if rc.URL == "" {
		return keydir.NewMemory()
	}
	opts, err := redis.ParseURL(rc.URL)
	if err != nil {
		b.logger.Warn("invalid redis url, using in-process key directory", "error", err)
		return keydir.NewMemory()
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		b.logger.Warn("redis unreachable, using in-process key directory", "error", err)
		return keydir.NewMemory()
	}
	b.closers = append(b.closers, func() { _ = client.Close() })
	return keydir.NewRedis(client, keydir.WithTTL(rc.KeyTTL))
}

func (b *backend) searchService(cfg config.SearchConfig) (*service.SearchService, error) {
	tiers, err := service.ParseTiers(cfg.Tiers)
	if err != nil {
		return nil, err
	}
	resolver := service.NewResolver(service.ResolverConfig{
		Tiers: tiers,
		Fuzzy: service.FuzzyConfig{
			SampleSize: cfg.Fuzzy.SampleSize,
			Threshold:  cfg.Fuzzy.Threshold,
			Policy:     repository.SamplePolicy(cfg.Fuzzy.SamplePolicy),
			PrefixLen:  cfg.Fuzzy.PrefixLen,
		},
	}, b.keys, b.logger, b.metrics)
	return service.NewSearchService(b.store, resolver, cfg.MaxLimit, b.logger, b.metrics), nil
}

func (b *backend) ingestService() *service.IngestService {
	return &service.IngestService{
		Sink:    b.sink,
		Runs:    b.runs,
		Logger:  b.logger,
		Metrics: b.metrics,
	}
}

// load ingests files, logging per-file outcomes.
func (b *backend) load(ctx context.Context, paths []string) (service.IngestResult, error) {
	var total service.IngestResult
	svc := b.ingestService()
	for _, p := range paths {
		res, err := svc.ImportFile(ctx, p)
		total.Imported += res.Imported
		total.Skipped += res.Skipped
		total.Errors = append(total.Errors, res.Errors...)
		if err != nil {
			return total, err
		}
		b.logger.Info("ingested file",
			"file", p,
			"imported", res.Imported,
			"skipped", res.Skipped,
			"failed", len(res.Errors),
		)
	}
	return total, nil
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
