package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NILHub/internal/api"
	"github.com/LJTian/NILHub/internal/app"
	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/config"
	"github.com/LJTian/NILHub/internal/logger"
	"github.com/LJTian/NILHub/internal/scheduler"
)

func main() {
	log := logger.New("nilhub-api")

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("init failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	story := a.Crawlers[collector.KindStory]
	social := a.Crawlers[collector.KindSocial]

	// 新闻与社交各自独立的采集周期，启动后延迟跑一轮
	s, err := scheduler.New(ctx, cfg.StartupDelay, log,
		scheduler.Job{Spec: cfg.CronSpec, Runner: story},
		scheduler.Job{Spec: cfg.SocialCronSpec, Runner: social},
	)
	if err != nil {
		log.Error("init scheduler failed", "err", err)
		os.Exit(1)
	}
	s.Start()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	// 配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用，/health 仍然免认证
	r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))

	triggers := map[collector.Kind]api.Trigger{
		collector.KindStory:  story,
		collector.KindSocial: social,
	}
	api.NewServer(a.Ranking, triggers, s, a.Metrics, log).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting api server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exit", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	// 等待正在执行的定时 pass 退出；ctx 已取消，pass 会尽快结束
	select {
	case <-s.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("scheduled passes did not stop in time")
	}
	// 手动触发与启动时的 pass 不受 cron 管理，关闭存储前单独等待
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Warn("crawl passes did not stop in time", "err", err)
	}
}
