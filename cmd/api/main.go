package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listenline/internal/auth"
	"listenline/internal/calls"
	"listenline/internal/config"
	"listenline/internal/events"
	"listenline/internal/httpapi"
	"listenline/internal/listener"
	"listenline/internal/match"
	"listenline/internal/rating"
	"listenline/internal/reporting"
	"listenline/internal/rtc"
	"listenline/pkg/logger"
	"listenline/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Repositories and services.
	listenerRepo := listener.NewSQLRepository(db)
	callRepo := calls.NewSQLRepository(db)
	eventSvc := events.NewService(events.NewSQLRepository(db), events.NewRedisPublisher(rdb, ""))
	claims := calls.NewRedisClaims(rdb, cfg.Calls.ClaimTTL)

	callSvc := calls.NewService(callRepo, listenerRepo, listener.NewStatsAggregator(listenerRepo), eventSvc, claims)
	listenerSvc := listener.NewService(listenerRepo)
	ratingSvc := rating.NewService(rating.NewSQLRepository(db), callRepo, eventSvc)
	reportSvc := reporting.NewService(reporting.NewSQLRepository(db))
	tokenProvider := rtc.NewHMACProvider(cfg.RTC.AppID, cfg.RTC.AppSecret, cfg.RTC.TokenTTL)

	reaper := calls.NewReaper(callRepo, claims, eventSvc, log, cfg.Calls.PendingTTL, cfg.Calls.ReaperInterval)
	go reaper.Run(rootCtx)

	h := httpapi.Handlers{
		Auth:      authManager,
		Listeners: listenerSvc,
		Calls:     callSvc,
		Match:     match.NewSelector(listenerRepo),
		Ratings:   ratingSvc,
		RTC:       tokenProvider,
		Reports:   reportSvc,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
