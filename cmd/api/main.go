package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sessionApp "storefront/internal/application/session"
	"storefront/internal/infrastructure/audit"
	"storefront/internal/infrastructure/config"
	"storefront/internal/infrastructure/db"
	"storefront/internal/infrastructure/sessionstore"
	httpapi "storefront/internal/interface/http"
)

func main() {
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}
	log.Printf("configuration loaded (HTTP_ADDR=%s)", cfg.HTTP.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.Connect(connectCtx, cfg.DB)
	cancel()
	if err != nil {
		log.Printf("warning: database connection failed, falling back to in-memory store: %v", err)
		pool = nil
	} else if pool == nil {
		log.Printf("no DB_DSN provided; running with in-memory store only")
	} else {
		defer pool.Close()
		log.Printf("database connected successfully")
	}

	// 跨分頁活動儲存：Redis 不可用時退回單機記憶體。
	var shared sessionstore.Provider
	if cfg.Redis.Addr != "" {
		redisProvider, err := sessionstore.NewRedisProvider(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			log.Printf("warning: redis unavailable, session state is per-process only: %v", err)
		} else {
			defer redisProvider.Close()
			shared = redisProvider
			log.Printf("redis connected addr=%s", cfg.Redis.Addr)
		}
	}

	var sinks []sessionApp.Sink
	if cfg.Audit.Enabled {
		publisher, err := audit.NewPublisher(cfg.Audit.Brokers, cfg.Audit.Topic)
		if err != nil {
			log.Printf("warning: audit publisher disabled: %v", err)
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
			log.Printf("audit publisher ready topic=%s", cfg.Audit.Topic)
		}
	}

	apiServer := httpapi.NewServer(cfg, pool, shared, sinks...)
	defer apiServer.Sessions().Shutdown()

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: apiServer.Handler(),
	}
	go func() {
		log.Printf("starting HTTP server on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
