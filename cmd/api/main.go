package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pressflow/newsroom/internal/cache"
	"github.com/pressflow/newsroom/internal/config"
	"github.com/pressflow/newsroom/internal/db"
	httpx "github.com/pressflow/newsroom/internal/http"
	"github.com/pressflow/newsroom/internal/media"
	"github.com/pressflow/newsroom/internal/observability"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "newsroom-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer shutdownTracer(context.Background())
	}

	if err := db.RunMigrations(ctx, cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	var articlesCache *cache.ArticlesCache

	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := cache.Ping(ctx, rdb); err != nil {
			log.Warn("redis unreachable, list cache disabled", "err", err)
		} else {
			articlesCache = cache.NewArticlesCache(rdb, cfg.CacheTTL, prom)
		}
	}

	files, err := newMediaStore(ctx, cfg)
	if err != nil {
		log.Error("media store init failed", "err", err)
		os.Exit(1)
	}

	router := httpx.NewRouter(httpx.RouterDeps{
		Cfg:        cfg,
		Log:        log,
		Pool:       pool,
		Files:      files,
		Cache:      articlesCache,
		Prom:       prom,
		PromGather: reg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func newMediaStore(ctx context.Context, cfg config.Config) (media.Store, error) {
	if cfg.MediaBackend == "s3" {
		return media.NewS3Store(ctx, media.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}

	return media.NewDiskStore(cfg.UploadDir)
}
