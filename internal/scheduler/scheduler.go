package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/crawler"
)

// Runner 是可被调度的采集任务，crawler.Crawler 实现该接口
type Runner interface {
	Kind() collector.Kind
	RunPass(ctx context.Context) (crawler.PassStats, error)
	Status() crawler.Status
}

// Job 把一个 Runner 绑定到 cron 表达式
type Job struct {
	Spec   string
	Runner Runner
}

// KindHealth 是单类采集任务的健康状态
type KindHealth struct {
	crawler.Status
	Spec    string     `json:"spec"`
	NextRun *time.Time `json:"nextRun,omitempty"`
}

type scheduled struct {
	job     Job
	id      cron.EntryID
	wrapped cron.Job
}

type Scheduler struct {
	cron         *cron.Cron
	ctx          context.Context
	jobs         []scheduled
	startupDelay time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	startup *time.Timer
}

// New 注册所有任务。每个任务都包一层 Recover + SkipIfStillRunning：
// pass 中漏出的 panic 被记录后调度继续，同一任务不会叠加执行
func New(ctx context.Context, startupDelay time.Duration, logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger}
	chain := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))

	s := &Scheduler{cron: cron.New(cron.WithLogger(cl)), ctx: ctx, startupDelay: startupDelay, logger: logger}
	for _, j := range jobs {
		sched, err := cron.ParseStandard(j.Spec)
		if err != nil {
			return nil, fmt.Errorf("scheduler: invalid spec %q for %s: %w", j.Spec, j.Runner.Kind(), err)
		}
		r := j.Runner
		wrapped := chain.Then(cron.FuncJob(func() { s.run(r) }))
		id := s.cron.Schedule(sched, wrapped)
		s.jobs = append(s.jobs, scheduled{job: j, id: id, wrapped: wrapped})
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮采集，避免与服务启动争抢资源
	s.mu.Lock()
	s.startup = time.AfterFunc(s.startupDelay, func() {
		for _, j := range s.jobs {
			go j.wrapped.Run()
		}
	})
	s.mu.Unlock()
}

// Stop 停止调度并等待正在执行的 cron 任务结束
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	if s.startup != nil {
		s.startup.Stop()
	}
	s.mu.Unlock()
	return s.cron.Stop()
}

// RunOnce 同步执行所有任务一次，供手动触发使用
func (s *Scheduler) RunOnce() {
	for _, j := range s.jobs {
		j.wrapped.Run()
	}
}

func (s *Scheduler) run(r Runner) {
	if s.ctx.Err() != nil {
		return
	}
	_, err := r.RunPass(s.ctx)
	switch {
	case errors.Is(err, crawler.ErrAlreadyRunning):
		s.logger.Debug("previous pass still running", "kind", r.Kind())
	case errors.Is(err, crawler.ErrShuttingDown):
		s.logger.Debug("crawler shutting down, pass skipped", "kind", r.Kind())
	case err != nil:
		s.logger.Warn("crawl pass ended with error", "kind", r.Kind(), "err", err)
	}
}

// Health 返回每类任务的状态与下一次计划执行时间
func (s *Scheduler) Health() map[string]KindHealth {
	out := make(map[string]KindHealth, len(s.jobs))
	for _, j := range s.jobs {
		h := KindHealth{Status: j.job.Runner.Status(), Spec: j.job.Spec}
		if next := s.cron.Entry(j.id).Next; !next.IsZero() {
			h.NextRun = &next
		}
		out[string(j.job.Runner.Kind())] = h
	}
	return out
}

// cronLogger 把 cron 的日志接到 slog
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{"err", err}, keysAndValues...)...)
}
