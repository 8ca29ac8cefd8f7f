package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/config"
	"github.com/LJTian/NILHub/internal/crawler"
	"github.com/LJTian/NILHub/internal/metrics"
	"github.com/LJTian/NILHub/internal/processor"
	"github.com/LJTian/NILHub/internal/ranking"
	"github.com/LJTian/NILHub/internal/storage"
)

// App 持有 api 与 collect 两个入口共用的组件
type App struct {
	Store    *storage.Store
	Metrics  *metrics.Metrics
	Registry *collector.Registry
	Ranking  *ranking.Service
	Crawlers map[collector.Kind]*crawler.Crawler
}

// Build 按配置组装存储、采集链路与排序服务。ctx 取消时后台触发的 pass 一并结束
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.Open(storage.Options{
		Driver:     cfg.DBDriver,
		SQLitePath: cfg.SQLitePath,
		DSN:        cfg.PostgresDSN,
		RedisAddr:  cfg.RedisAddr,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	reg, err := collector.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load sources: %w", err)
	}

	// 所有出站请求共用一个限流 transport
	transport := collector.NewLimitedTransport(cfg.MaxConnections)
	client := &http.Client{Transport: transport}

	var remote *collector.RemoteExtractor
	if cfg.ExtractorURL != "" {
		remote = collector.NewRemoteExtractor(cfg.ExtractorURL, client, 0)
	}

	fetcher := collector.NewFeedFetcher(client, cfg.FeedTimeout)
	resolver := collector.NewResolver(transport, cfg.PageTimeout, remote, logger)

	vocab := processor.DefaultVocabulary()
	vocab.MinTerms = cfg.MinTerms
	proc := processor.NewProcessor(processor.NewEngine(vocab))

	m := metrics.New()

	crawlers := map[collector.Kind]*crawler.Crawler{
		collector.KindStory: crawler.New(crawler.Options{
			Kind:              collector.KindStory,
			Sources:           reg.Sources(collector.KindStory, 0),
			EntriesPerFeed:    cfg.EntriesPerFeed,
			SourceConcurrency: cfg.SourceConcurrency,
			BaseContext:       ctx,
		}, fetcher, resolver, proc, store, m, logger),
		collector.KindSocial: crawler.New(crawler.Options{
			Kind:              collector.KindSocial,
			Sources:           reg.Sources(collector.KindSocial, cfg.SocialMaxFeeds),
			EntriesPerFeed:    cfg.SocialEntriesPerFeed,
			SourceConcurrency: cfg.SourceConcurrency,
			BaseContext:       ctx,
		}, fetcher, resolver, proc, store, m, logger),
	}

	logger.Info("pipeline assembled",
		"storySources", len(reg.Sources(collector.KindStory, 0)),
		"socialSources", len(reg.Sources(collector.KindSocial, cfg.SocialMaxFeeds)),
		"maxConnections", cfg.MaxConnections,
		"remoteExtractor", remote != nil,
	)

	return &App{
		Store:    store,
		Metrics:  m,
		Registry: reg,
		Ranking:  ranking.NewService(store, cfg.MaxCandidates),
		Crawlers: crawlers,
	}, nil
}

// Shutdown 停止接受新的 pass，并等待所有进行中的 pass（含后台触发的）结束
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	for kind, c := range a.Crawlers {
		if err := c.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s crawler: %w", kind, err)
		}
	}
	return firstErr
}

func (a *App) Close() error {
	return a.Store.Close()
}
