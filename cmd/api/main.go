package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"studentmanagement/internal/account"
	"studentmanagement/internal/cache"
	"studentmanagement/internal/config"
	"studentmanagement/internal/httpapi"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/roster"
	"studentmanagement/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(cfg config.App) error {
	var (
		accountRepo account.Repository
		rosterRepo  roster.Repository
		ledgerRepo  ledger.Repository
		db          *store.DB
	)

	switch cfg.StoreBackend {
	case "memory":
		mem := store.NewMemory()
		accountRepo, rosterRepo, ledgerRepo = mem, mem, mem
		log.Println("using in-memory store (data is lost on restart)")
	default:
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		accountRepo = account.NewPostgresRepository(db.Client)
		rosterRepo = roster.NewPostgresRepository(db.Client)
		ledgerRepo = ledger.NewPostgresRepository(db.Client)
	}

	var (
		redisClient *store.Redis
		summaries   *cache.Cache
	)
	if cfg.RedisAddr != "" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		summaries = cache.New(redisClient.Client, cfg.CacheTTL)
	} else {
		log.Println("redis not configured, summaries are recomputed per request")
	}

	accounts := account.NewService(accountRepo)
	rosterP := roster.NewProvider(rosterRepo, accountRepo)
	ledgerS := ledger.NewService(ledgerRepo, rosterP, summaries)

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := accounts.EnsureAdmin(bootCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	health := func(ctx context.Context) map[string]bool {
		h := map[string]bool{}
		if db != nil {
			h["db"] = db.Healthy(ctx)
		}
		if redisClient != nil {
			h["redis"] = redisClient.Healthy(ctx)
		}
		return h
	}

	api := httpapi.New(cfg, accounts, rosterP, ledgerS, summaries, health)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s (store=%s)", cfg.HTTPPort, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}
