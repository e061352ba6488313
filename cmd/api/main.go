package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bidcraft/backend/config"
	httpapi "github.com/bidcraft/backend/internal/api/http"
	"github.com/bidcraft/backend/internal/api/http/middleware"
	"github.com/bidcraft/backend/internal/api/http/routes"
	"github.com/bidcraft/backend/internal/auction"
	"github.com/bidcraft/backend/internal/auth"
	"github.com/bidcraft/backend/internal/cache"
	"github.com/bidcraft/backend/internal/logging"
	"github.com/bidcraft/backend/internal/mail"
	"github.com/bidcraft/backend/internal/storage/postgres"
	"github.com/bidcraft/backend/internal/users"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const serviceName = "bidcraft-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log := logging.New(cfg.App.LogLevel)

	if err := postgres.MigrateUp(&cfg.Database); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.Connect(ctx, &cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, running without overview cache", "error", err)
		}
	}
	var overviewCache *cache.OverviewCache
	if rdb != nil {
		overviewCache = cache.NewOverviewCache(rdb, 30*time.Second)
		defer rdb.Close()
	}

	userRepo := users.NewPostgresRepo(pool)
	store := auction.NewPostgresStore(pool)
	logs := mail.NewPostgresLogStore(pool)

	notifier := mail.NewNotifier(mail.NewSMTPMailer(&cfg.SMTP), logs, userRepo, log)
	accounts := users.NewService(userRepo, notifier, log)
	auctions := auction.NewService(store, notifier, log)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(log))
	r.Use(cors.Default())

	httpapi.NewHealthHandler(serviceName, cfg.App.Version, pool, rdb).RegisterRoutes(r)

	routes.RegisterV1(r, routes.V1Deps{
		Auctions:      auctions,
		Accounts:      accounts,
		Tokens:        tokens,
		OverviewCache: overviewCache,
		Log:           log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port, "env", cfg.App.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	log.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
