package crawler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/logger"
	"github.com/LJTian/NILHub/internal/metrics"
	"github.com/LJTian/NILHub/internal/processor"
	"github.com/LJTian/NILHub/internal/storage"
)

// fakeFetcher 按 feed URL 返回固定条目或错误；gate 非 nil 时阻塞到被关闭
type fakeFetcher struct {
	feeds map[string][]collector.Entry
	fail  map[string]error
	gate  chan struct{}

	mu     sync.Mutex
	limits []int
}

func (f *fakeFetcher) Fetch(ctx context.Context, src collector.Source, limit int) ([]collector.Entry, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[src.URL]; err != nil {
		return nil, err
	}
	out := f.feeds[src.URL]
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Source = src
	}
	return out, nil
}

// fakeResolver 直接使用条目摘要作为正文
type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, e collector.Entry) collector.Resolved {
	return collector.Resolved{Text: e.Summary}
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Options{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "crawl.db"),
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newCrawler(t *testing.T, f collector.Fetcher, store Store, sources ...string) *Crawler {
	t.Helper()
	srcs := make([]collector.Source, 0, len(sources))
	for _, u := range sources {
		srcs = append(srcs, collector.Source{URL: u, Kind: collector.KindStory})
	}
	proc := processor.NewProcessor(processor.NewEngine(processor.DefaultVocabulary()))
	return New(Options{Kind: collector.KindStory, Sources: srcs, EntriesPerFeed: 5, SourceConcurrency: 2},
		f, fakeResolver{}, proc, store, metrics.New(), logger.Discard())
}

func entry(link, summary string) collector.Entry {
	return collector.Entry{Title: "Update", Link: link, Summary: summary}
}

func TestRunPassIsolatesFailingSource(t *testing.T) {
	f := &fakeFetcher{
		feeds: map[string][]collector.Entry{
			"https://good.example/feed": {
				entry("https://good.example/1", "The NIL collective signed a new deal."),
				entry("https://good.example/2", "Weather is nice today."),
				entry("https://good.example/3", ""),
			},
		},
		fail: map[string]error{"https://bad.example/feed": errors.New("malformed xml")},
	}
	store := openStore(t)
	c := newCrawler(t, f, store, "https://bad.example/feed", "https://good.example/feed")

	stats, err := c.RunPass(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Sources)
	require.Equal(t, 1, stats.SourceErrors)
	require.Equal(t, 3, stats.Entries)
	require.Equal(t, 1, stats.Inserted)
	require.Equal(t, 1, stats.Irrelevant)
	require.Equal(t, 1, stats.Empty)
	require.NotEmpty(t, stats.RunID)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	st := c.Status()
	require.False(t, st.Running)
	require.NotNil(t, st.LastStats)
	require.Equal(t, 1, st.LastStats.Inserted)
	require.Empty(t, st.LastError)
}

func TestRunPassIdempotentAcrossPassesAndFeeds(t *testing.T) {
	shared := entry("https://x.com/a", "Big NIL deal for a star player.")
	f := &fakeFetcher{feeds: map[string][]collector.Entry{
		"https://one.example/feed": {shared},
		"https://two.example/feed": {shared},
	}}
	store := openStore(t)
	c := newCrawler(t, f, store, "https://one.example/feed", "https://two.example/feed")

	stats, err := c.RunPass(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Inserted)
	require.Equal(t, 1, stats.Duplicates)
	require.Zero(t, stats.StoreErrors)

	stats, err = c.RunPass(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Inserted)
	require.Equal(t, 2, stats.Duplicates)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestEntriesPerFeedPassedToFetcher(t *testing.T) {
	f := &fakeFetcher{}
	c := newCrawler(t, f, openStore(t), "https://one.example/feed")
	_, err := c.RunPass(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{5}, f.limits)
}

func TestMutualExclusion(t *testing.T) {
	f := &fakeFetcher{
		feeds: map[string][]collector.Entry{"https://slow.example/feed": {entry("https://slow.example/1", "NIL deal")}},
		gate:  make(chan struct{}),
	}
	c := newCrawler(t, f, openStore(t), "https://slow.example/feed")

	done := make(chan error, 1)
	go func() {
		_, err := c.RunPass(context.Background())
		done <- err
	}()
	require.Eventually(t, c.Running, time.Second, 5*time.Millisecond)

	_, err := c.RunPass(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.Equal(t, AlreadyRunning, c.Trigger())
	require.True(t, c.Status().Running)

	close(f.gate)
	require.NoError(t, <-done)
	require.False(t, c.Running())

	f.mu.Lock()
	calls := len(f.limits)
	f.mu.Unlock()
	require.Equal(t, 1, calls, "second pass must not have started")
}

func TestTriggerRunsInBackground(t *testing.T) {
	f := &fakeFetcher{feeds: map[string][]collector.Entry{
		"https://one.example/feed": {entry("https://one.example/1", "NIL collective news")},
	}}
	store := openStore(t)
	c := newCrawler(t, f, store, "https://one.example/feed")

	require.Equal(t, Accepted, c.Trigger())
	require.Eventually(t, func() bool {
		st := c.Status()
		return !st.Running && st.LastStats != nil
	}, 2*time.Second, 10*time.Millisecond)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

type failingStore struct{}

func (failingStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (failingStore) Insert(context.Context, processor.ProcessedRecord) (storage.InsertResult, error) {
	return storage.AlreadyExists, errors.New("disk full")
}

func TestStoreErrorsDoNotAbortPass(t *testing.T) {
	f := &fakeFetcher{feeds: map[string][]collector.Entry{
		"https://one.example/feed": {
			entry("https://one.example/1", "NIL deal one"),
			entry("https://one.example/2", "NIL deal two"),
		},
	}}
	c := newCrawler(t, f, failingStore{}, "https://one.example/feed")
	stats, err := c.RunPass(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.StoreErrors)
}

func TestShutdownWaitsForTriggeredPass(t *testing.T) {
	f := &fakeFetcher{
		feeds: map[string][]collector.Entry{"https://slow.example/feed": {entry("https://slow.example/1", "NIL collective news")}},
		gate:  make(chan struct{}),
	}
	store := openStore(t)
	c := newCrawler(t, f, store, "https://slow.example/feed")

	require.Equal(t, Accepted, c.Trigger())
	require.Eventually(t, c.Running, time.Second, 5*time.Millisecond)

	// pass 被 gate 卡住时，Shutdown 必须在超时前返回错误
	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Shutdown(short), context.DeadlineExceeded)

	// 关闭期间不再接受新的 pass
	require.Equal(t, ShuttingDown, c.Trigger())
	_, err := c.RunPass(context.Background())
	require.ErrorIs(t, err, ErrShuttingDown)

	close(f.gate)
	require.NoError(t, c.Shutdown(context.Background()))
	require.False(t, c.Running())

	// Shutdown 返回时后台 pass 的写入已经完成
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
