package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/myatko/domainwatch/internal/check"
	"github.com/myatko/domainwatch/internal/config"
	"github.com/myatko/domainwatch/internal/httpapi"
	"github.com/myatko/domainwatch/internal/httpapi/middleware"
	"github.com/myatko/domainwatch/internal/logging"
	"github.com/myatko/domainwatch/internal/notify"
	"github.com/myatko/domainwatch/internal/probe"
	"github.com/myatko/domainwatch/internal/repo"
	"github.com/myatko/domainwatch/internal/repo/memory"
	redisrepo "github.com/myatko/domainwatch/internal/repo/redis"
	"github.com/myatko/domainwatch/internal/scheduler"
	"github.com/myatko/domainwatch/internal/users"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var domainStore repo.DomainStore
	var userStore repo.UserStore
	if cfg.RedisAddr != "" {
		client := redisrepo.NewClient(cfg.RedisAddr)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		domainStore = redisrepo.NewDomainStore(client)
		userStore = redisrepo.NewUserStore(client)
		logger.Info("using redis stores", zap.String("addr", cfg.RedisAddr))
	} else {
		domainStore = memory.NewDomainStore()
		userStore = memory.NewUserStore()
		logger.Info("using in-memory stores")
	}

	usersvc := users.NewService(userStore, cfg.AdminChatIDs, logger)

	var channels notify.Multi
	if tg := notify.NewTelegram(cfg.TelegramToken, usersvc.Recipients, logger); tg != nil {
		channels = append(channels, tg)
	}
	if cfg.SlackWebhook != "" {
		channels = append(channels, notify.NewSlack(cfg.SlackWebhook))
	}
	if len(channels) == 0 {
		logger.Warn("no alert channels configured; down alerts will be dropped")
	}

	engine := check.New(logger, cfg.MaxConcurrent)

	watcher := scheduler.New(logger, domainStore, engine, channels)
	watcher.Interval = cfg.CheckInterval
	watcher.InitialDelay = cfg.InitialDelay
	if err := watcher.Start(ctx); err != nil {
		logger.Fatal("watcher start failed", zap.Error(err))
	}

	api := httpapi.NewServer(
		logger,
		domainStore,
		usersvc,
		engine,
		probe.NewSync(),
		middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys},
		cfg.AllowedOrigins,
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	watcher.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}
	logger.Info("bye")
}
