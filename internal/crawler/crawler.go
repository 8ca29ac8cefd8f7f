package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/metrics"
	"github.com/LJTian/NILHub/internal/processor"
	"github.com/LJTian/NILHub/internal/storage"
)

var (
	ErrAlreadyRunning = errors.New("crawler: pass already running")
	ErrShuttingDown   = errors.New("crawler: shutting down")
)

// TriggerResult 是异步触发的结果
type TriggerResult string

const (
	Accepted       TriggerResult = "accepted"
	AlreadyRunning TriggerResult = "alreadyRunning"
	ShuttingDown   TriggerResult = "shuttingDown"
)

// 单条条目的处理结果，同时作为指标标签
const (
	outcomeInserted   = "inserted"
	outcomeDuplicate  = "duplicate"
	outcomeIrrelevant = "irrelevant"
	outcomeEmpty      = "empty"
	outcomeStoreError = "store_error"
)

// Store 是采集流程依赖的去重存储
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, rec processor.ProcessedRecord) (storage.InsertResult, error)
}

type Options struct {
	Kind              collector.Kind
	Sources           []collector.Source
	EntriesPerFeed    int
	SourceConcurrency int
	// BaseContext 是 Trigger 启动的后台 pass 使用的上下文，进程退出时取消
	BaseContext context.Context
}

// PassStats 汇总一次 pass 的结果
type PassStats struct {
	RunID        string    `json:"runId"`
	Kind         string    `json:"kind"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Sources      int       `json:"sources"`
	SourceErrors int       `json:"sourceErrors"`
	Entries      int       `json:"entries"`
	Inserted     int       `json:"inserted"`
	Duplicates   int       `json:"duplicates"`
	Irrelevant   int       `json:"irrelevant"`
	Empty        int       `json:"empty"`
	StoreErrors  int       `json:"storeErrors"`
}

// Status 是对外暴露的运行状态快照
type Status struct {
	Running    bool       `json:"running"`
	LastStart  *time.Time `json:"lastStart,omitempty"`
	LastFinish *time.Time `json:"lastFinish,omitempty"`
	LastStats  *PassStats `json:"lastStats,omitempty"`
	LastError  string     `json:"lastError,omitempty"`
	Panics     int        `json:"panics"`
}

// Crawler 负责某一类数据源的完整采集 pass，同一时刻最多一个 pass 在跑
type Crawler struct {
	kind        collector.Kind
	sources     []collector.Source
	perFeed     int
	concurrency int
	base        context.Context

	fetcher   collector.Fetcher
	resolver  collector.ContentResolver
	processor *processor.Processor
	store     Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	running atomic.Bool
	// passes 覆盖所有已开始的 pass（含 Trigger 的后台 pass），Shutdown 等待它归零
	passes sync.WaitGroup

	mu      sync.Mutex
	closing bool
	status  Status
}

func New(opts Options, fetcher collector.Fetcher, resolver collector.ContentResolver, proc *processor.Processor, store Store, m *metrics.Metrics, logger *slog.Logger) *Crawler {
	if opts.Kind == "" {
		opts.Kind = collector.KindStory
	}
	if opts.EntriesPerFeed <= 0 {
		opts.EntriesPerFeed = 5
	}
	if opts.SourceConcurrency <= 0 {
		opts.SourceConcurrency = 1
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		kind:        opts.Kind,
		sources:     opts.Sources,
		perFeed:     opts.EntriesPerFeed,
		concurrency: opts.SourceConcurrency,
		base:        opts.BaseContext,
		fetcher:     fetcher,
		resolver:    resolver,
		processor:   proc,
		store:       store,
		metrics:     m,
		logger:      logger.With("component", "crawler", "kind", string(opts.Kind)),
		now:         time.Now,
	}
}

func (c *Crawler) Kind() collector.Kind { return c.kind }

func (c *Crawler) Running() bool { return c.running.Load() }

// RunPass 同步执行一次 pass，已有 pass 在跑时立即返回 ErrAlreadyRunning
func (c *Crawler) RunPass(ctx context.Context) (PassStats, error) {
	if err := c.begin(); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			c.logger.Info("crawl already in progress, skipping")
		}
		return PassStats{}, err
	}
	defer c.end()
	return c.run(ctx)
}

// Trigger 抢占成功后在后台执行 pass，不排队
func (c *Crawler) Trigger() TriggerResult {
	switch err := c.begin(); {
	case errors.Is(err, ErrShuttingDown):
		return ShuttingDown
	case err != nil:
		return AlreadyRunning
	}
	go func() {
		defer c.end()
		_, _ = c.run(c.base)
	}()
	return Accepted
}

// begin 在同一把锁下检查关闭状态、抢占运行标志并登记 pass
func (c *Crawler) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return ErrShuttingDown
	}
	if !c.running.CompareAndSwap(false, true) {
		c.metrics.PassSkipped(string(c.kind))
		return ErrAlreadyRunning
	}
	c.passes.Add(1)
	return nil
}

func (c *Crawler) end() {
	c.running.Store(false)
	c.passes.Done()
}

// Shutdown 拒绝新的 pass，并等待已开始的 pass 结束或 ctx 到期
func (c *Crawler) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.passes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Crawler) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.Running = c.running.Load()
	return s
}

type counters struct {
	sourceErrors, entries                                atomic.Int64
	inserted, duplicates, irrelevant, empty, storeErrors atomic.Int64
}

func (c *Crawler) run(ctx context.Context) (stats PassStats, err error) {
	start := c.now().UTC()
	stats = PassStats{RunID: uuid.NewString(), Kind: string(c.kind), StartedAt: start, Sources: len(c.sources)}
	log := c.logger.With("run", stats.RunID)

	c.mu.Lock()
	c.status.LastStart = &start
	c.mu.Unlock()
	c.metrics.PassStarted(string(c.kind))
	log.Info("starting crawl pass", "sources", len(c.sources))

	var cnt counters
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawler: pass panicked: %v", r)
			log.Error("crawl pass panicked", "panic", r)
			c.mu.Lock()
			c.status.Panics++
			c.mu.Unlock()
		}
		stats.FinishedAt = c.now().UTC()
		stats.SourceErrors = int(cnt.sourceErrors.Load())
		stats.Entries = int(cnt.entries.Load())
		stats.Inserted = int(cnt.inserted.Load())
		stats.Duplicates = int(cnt.duplicates.Load())
		stats.Irrelevant = int(cnt.irrelevant.Load())
		stats.Empty = int(cnt.empty.Load())
		stats.StoreErrors = int(cnt.storeErrors.Load())
		c.finish(stats, err)
	}()

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, src := range c.sources {
		g.Go(func() error {
			defer c.recoverPanic("source", src.URL)
			c.crawlSource(ctx, src, &cnt)
			return nil
		})
	}
	_ = g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return stats, err
}

func (c *Crawler) finish(stats PassStats, err error) {
	finished := stats.FinishedAt
	c.mu.Lock()
	c.status.LastFinish = &finished
	c.status.LastStats = &stats
	c.status.LastError = ""
	if err != nil {
		c.status.LastError = err.Error()
	}
	c.mu.Unlock()

	c.metrics.PassFinished(string(c.kind), stats.FinishedAt.Sub(stats.StartedAt))
	c.logger.Info("crawl pass completed",
		"run", stats.RunID,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"irrelevant", stats.Irrelevant,
		"empty", stats.Empty,
		"sourceErrors", stats.SourceErrors,
		"storeErrors", stats.StoreErrors,
		"took", stats.FinishedAt.Sub(stats.StartedAt),
	)
}

// recoverPanic 吞掉单个源或条目的 panic，pass 继续
func (c *Crawler) recoverPanic(scope, target string) {
	if r := recover(); r != nil {
		c.logger.Error("recovered panic", "scope", scope, "target", target, "panic", r)
		c.mu.Lock()
		c.status.Panics++
		c.mu.Unlock()
	}
}

// crawlSource 单个源失败只记录日志，不影响其他源
func (c *Crawler) crawlSource(ctx context.Context, src collector.Source, cnt *counters) {
	if ctx.Err() != nil {
		return
	}
	entries, err := c.fetcher.Fetch(ctx, src, c.perFeed)
	if err != nil {
		cnt.sourceErrors.Add(1)
		c.metrics.SourceError(string(c.kind))
		c.logger.Warn("source fetch failed, skipping", "feed", src.URL, "err", err)
		return
	}
	if len(entries) == 0 {
		c.logger.Debug("no entries found", "feed", src.URL)
		return
	}

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e collector.Entry) {
			defer wg.Done()
			defer c.recoverPanic("entry", e.Link)
			outcome := c.processEntry(ctx, e)
			cnt.entries.Add(1)
			switch outcome {
			case outcomeInserted:
				cnt.inserted.Add(1)
			case outcomeDuplicate:
				cnt.duplicates.Add(1)
			case outcomeIrrelevant:
				cnt.irrelevant.Add(1)
			case outcomeEmpty:
				cnt.empty.Add(1)
			case outcomeStoreError:
				cnt.storeErrors.Add(1)
			}
			c.metrics.Entry(string(c.kind), outcome)
		}(e)
	}
	wg.Wait()
}

func (c *Crawler) processEntry(ctx context.Context, e collector.Entry) string {
	id := processor.HashURL(e.Link)

	exists, err := c.store.Exists(ctx, id)
	if err != nil {
		c.logger.Warn("exists check failed", "url", e.Link, "err", err)
		return outcomeStoreError
	}
	if exists {
		return outcomeDuplicate
	}

	resolved := c.resolver.Resolve(ctx, e)
	if resolved.Text == "" {
		return outcomeEmpty
	}

	rec, ok := c.processor.Process(e, resolved, c.now())
	if !ok {
		return outcomeIrrelevant
	}

	res, err := c.store.Insert(ctx, rec)
	if err != nil {
		c.logger.Warn("insert failed", "url", e.Link, "err", err)
		return outcomeStoreError
	}
	if res == storage.AlreadyExists {
		return outcomeDuplicate
	}
	c.logger.Debug("record stored", "url", e.Link, "score", rec.RelevanceScore, "category", rec.Category)
	return outcomeInserted
}
