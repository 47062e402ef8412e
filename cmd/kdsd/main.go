package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"kds-display-backend/config"
	"kds-display-backend/internal/api"
	"kds-display-backend/internal/db"
	"kds-display-backend/internal/linkcache"
	"kds-display-backend/internal/linking"
	"kds-display-backend/internal/mw"
	"kds-display-backend/internal/notification"
	"kds-display-backend/internal/prefetch"
	"kds-display-backend/internal/remote"
	"kds-display-backend/internal/store"
	"kds-display-backend/internal/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "kds-backend ", log.LstdFlags)

	// .env is optional; it only seeds the environment for ${VAR} expansion
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("failed to read .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Remote.BaseURL == "" {
		logger.Fatalf("remote.base_url must be configured")
	}

	shutdownTracing := telemetry.Setup(cfg.Telemetry)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	links := linkcache.New(newLinkKV(ctx, logger, cfg.Cache, appStore))

	client := remote.NewClient(cfg.Remote)
	prefetchSvc := prefetch.NewService(cfg.Prefetch, client)
	responseCache := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)

	notifiers := linking.Notifiers{prefetchSvc, responseCache}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		notifiers = append(notifiers, pool)
	}

	engine := linking.NewEngine(client, links, notifiers)
	engine.Retry = linking.RetryPolicy{
		MaxAttempts: cfg.Linking.ConfirmAttempts,
		Delay:       cfg.Linking.ConfirmDelay,
		Match:       linking.ExactNameFold,
	}
	board := linking.NewBoard(engine, cfg.WorkerPool.Size)

	var prefetcher api.Prefetcher
	if cfg.Prefetch.Enabled {
		prefetcher = prefetchSvc
		go prefetchSvc.Run(ctx)
	}

	handler := api.NewHandler(board, prefetcher, appStore, webpushOptions)
	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go limiter.RunSweeper(ctx, time.Minute, 10*time.Minute)
	router := api.NewRouter(handler, limiter, responseCache)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("tracer shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// newLinkKV picks the backend of the local link cache. An unreachable Redis
// falls back to the database.
func newLinkKV(ctx context.Context, logger *log.Logger, cfg config.CacheConfig, appStore store.Store) store.KV {
	switch cfg.Backend {
	case config.CacheBackendMemory:
		return store.NewMemoryKV(cache.New(cache.NoExpiration, 0))
	case config.CacheBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Printf("redis unavailable at %s, caching links in the database: %v", cfg.Redis.Addr, err)
			_ = rdb.Close()
			return appStore
		}
		logger.Printf("caching links in redis at %s", cfg.Redis.Addr)
		return store.NewRedisKV(rdb)
	default:
		return appStore
	}
}
