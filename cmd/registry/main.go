package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/faculty-registry/internal/models"
	"github.com/noah-isme/faculty-registry/internal/repository"
	"github.com/noah-isme/faculty-registry/internal/service"
	"github.com/noah-isme/faculty-registry/internal/shell"
	"github.com/noah-isme/faculty-registry/pkg/cache"
	"github.com/noah-isme/faculty-registry/pkg/config"
	"github.com/noah-isme/faculty-registry/pkg/database"
	"github.com/noah-isme/faculty-registry/pkg/logger"
	"github.com/noah-isme/faculty-registry/pkg/storage"
)

const cacheKeyPrefix = "registry:student:"

type registryStore interface {
	Save(ctx context.Context, faculties []*models.Faculty) error
	Load(ctx context.Context) ([]*models.Faculty, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	err = run(context.Background(), cfg, logr)
	if err != nil {
		logr.Error("registry stopped", zap.Error(err))
	}
	_ = logr.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the registry and drives the shell until quit. Every resource it
// opens is released before it returns.
func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logr)
	if err != nil {
		return fmt.Errorf("open registry store (driver %q): %w", cfg.Storage.Driver, err)
	}
	defer closeStore()

	metrics := service.NewMetricsService()
	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Addr, metrics, logr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	cacheSvc, closeCache := openCache(ctx, cfg, metrics, logr)
	defer closeCache()

	oplog := logger.NewOperationLog(cfg.Storage.OperationLogFile)
	registry := service.NewRegistryService(store, oplog, cacheSvc, metrics, nil, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("prepare exports directory: %w", err)
	}
	exports := service.NewExportService(exportStorage, nil, nil, metrics, logr)

	if err := registry.LoadState(ctx); err != nil {
		return err
	}
	return shell.New(registry, exports, os.Stdin, os.Stdout, logr).Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (registryStore, func(), error) {
	switch cfg.Storage.Driver {
	case "", config.StorageFile:
		store := repository.NewFileStore(cfg.Storage.DataFile)
		logr.Info("using file store", zap.String("path", store.Path()))
		return store, func() {}, nil
	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logr.Info("using postgres store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
		return store, func() { _ = db.Close() }, nil
	default:
		return nil, nil, errors.New("unknown storage driver " + cfg.Storage.Driver)
	}
}

// openCache connects to Redis when enabled. An unreachable Redis disables the
// cache instead of stopping the program.
func openCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	if !cfg.Cache.Enabled {
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false), func() {}
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, lookup cache disabled", zap.Error(err))
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false), func() {}
	}
	repo := repository.NewCacheRepository(client, cacheKeyPrefix, logr)
	return service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, true), func() { _ = repo.Close() }
}

func serveMetrics(addr string, metrics *service.MetricsService, logr *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logr.Info("metrics server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
