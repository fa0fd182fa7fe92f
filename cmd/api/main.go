package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/bugtrack/internal/auth"
	"github.com/abduss/bugtrack/internal/bug"
	"github.com/abduss/bugtrack/internal/config"
	"github.com/abduss/bugtrack/internal/logger"
	"github.com/abduss/bugtrack/internal/metrics"
	"github.com/abduss/bugtrack/internal/server"
	"github.com/abduss/bugtrack/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// backend bundles the stores of one persistence choice.
type backend struct {
	bugs    *bug.Service
	auth    *auth.Service
	pinger  server.Pinger
	cleanup func()
}

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		logg.Fatal("open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer b.cleanup()

	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		Store:       b.pinger,
		AuthService: b.auth,
		BugService:  b.bugs,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("bug tracker API listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("mode", cfg.Mode),
			zap.String("backend", cfg.Store.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	maxLimit := cfg.API.MaxPageSize

	switch cfg.Store.Backend {
	case config.StorePostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return backend{}, err
		}
		if cfg.Store.Migrate {
			if err := storage.Migrate(ctx, pool); err != nil {
				pool.Close()
				return backend{}, err
			}
		}
		repo := bug.NewRepository(pool)
		return backend{
			bugs:    bug.NewService(repo, maxLimit),
			auth:    auth.NewService(auth.NewRepository(pool), cfg.Auth),
			pinger:  repo,
			cleanup: pool.Close,
		}, nil

	case config.StoreFirestore:
		client, err := storage.NewFirestoreClient(ctx, cfg.Firestore)
		if err != nil {
			return backend{}, err
		}
		store := bug.NewFirestoreStore(client, cfg.Firestore.CollectionPrefix)
		return backend{
			bugs:    bug.NewService(store, maxLimit),
			auth:    auth.NewService(auth.NewFirestoreStore(client, cfg.Firestore.CollectionPrefix), cfg.Auth),
			pinger:  store,
			cleanup: func() { _ = client.Close() },
		}, nil

	case config.StoreMemory:
		store := bug.NewMemoryStore()
		return backend{
			bugs:    bug.NewService(store, maxLimit),
			auth:    auth.NewService(auth.NewMemoryStore(), cfg.Auth),
			pinger:  store,
			cleanup: func() {},
		}, nil
	}

	return backend{}, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}
