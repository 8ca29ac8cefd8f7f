package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/logger"
	"github.com/LJTian/NILHub/internal/processor"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(url string, published *time.Time, score float64, category string) processor.ProcessedRecord {
	return processor.ProcessedRecord{
		ID:             processor.HashURL(url),
		Kind:           collector.KindStory,
		Title:          "title " + url,
		URL:            url,
		PublishedAt:    published,
		IngestedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Brief:          "brief",
		SourceName:     "Sportico",
		Category:       category,
		RelevanceScore: score,
		Sentiment:      processor.SentimentNeutral,
		KeyEntities:    []string{"NCAA", "$2 million"},
		Extra:          map[string]any{"feed": "https://sportico.com/feed/"},
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	s, err := Open(Options{Driver: "sqlite", SQLitePath: path, Logger: logger.Discard()})
	require.NoError(t, err)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, len(migrations), v)
	require.NoError(t, s.Close())

	s, err = Open(Options{Driver: "sqlite", SQLitePath: path, Logger: logger.Discard()})
	require.NoError(t, err)
	defer s.Close()
	var n int64
	require.NoError(t, s.DB.Model(&SchemaMigration{}).Count(&n).Error)
	require.Equal(t, int64(len(migrations)), n)

	_, err = Open(Options{Driver: "mysql"})
	require.Error(t, err)
}

func TestInsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := record("https://sportico.com/a", nil, 5, "Legal")

	res, err := s.Insert(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, Inserted, res)

	rec.Title = "changed"
	res, err = s.Insert(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, AlreadyExists, res)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	ok, err := s.Exists(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Exists(ctx, processor.HashURL("https://other"))
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.Latest(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "title https://sportico.com/a", got.Title, "first write wins")
	require.Equal(t, []string{"NCAA", "$2 million"}, []string(got.KeyEntities))
	require.True(t, got.IngestedAt.Equal(got.RecencyAt))
}

func TestConcurrentInsertSameURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := record("https://frontofficesports.com/race", nil, 3, "General")

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Insert(ctx, rec)
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			if res == Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, inserted)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestListCandidatesWindowAndOlder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	since := now.Add(-14 * 24 * time.Hour)

	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, record(fmt.Sprintf("https://x.com/recent/%d", i), ptr(now.Add(-time.Duration(i)*time.Hour)), 1, "Legal"))
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := s.Insert(ctx, record(fmt.Sprintf("https://x.com/old/%d", i), ptr(since.Add(-time.Duration(i+1)*24*time.Hour)), float64(i), "Policy"))
		require.NoError(t, err)
	}

	got, err := s.ListCandidates(ctx, CandidateQuery{Since: since, MaxRecent: 100, Older: 2})
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, "https://x.com/recent/0", got[0].URL)
	require.Equal(t, "https://x.com/old/4", got[3].URL)
	require.Equal(t, "https://x.com/old/3", got[4].URL)

	filtered, err := s.ListCandidates(ctx, CandidateQuery{Filter: Filter{Category: "Policy"}, Since: since, Older: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 5)
	for _, r := range filtered {
		require.Equal(t, "Policy", r.Category)
	}
}

func TestLatestAndCategories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Latest(ctx, "")
	require.ErrorIs(t, err, ErrNotFound)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	require.Empty(t, cats)

	a := record("https://a.com/1", nil, 1, "Legal")
	b := record("https://a.com/2", nil, 1, "Legal")
	c := record("https://a.com/3", nil, 1, "Collectives")
	c.Kind = collector.KindSocial
	c.IngestedAt = a.IngestedAt.Add(time.Minute)
	for _, r := range []processor.ProcessedRecord{a, b, c} {
		_, err := s.Insert(ctx, r)
		require.NoError(t, err)
	}

	latest, err := s.Latest(ctx, "")
	require.NoError(t, err)
	require.Equal(t, c.URL, latest.URL)

	story, err := s.Latest(ctx, string(collector.KindStory))
	require.NoError(t, err)
	require.NotEqual(t, c.URL, story.URL)

	cats, err = s.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []CategoryCount{{"Legal", 2}, {"Collectives", 1}}, cats)
}

func TestLatestOrdersByPublishedTime(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := record("https://x.com/fresh", ptr(base.Add(-10*time.Minute)), 2, "General")
	fresh.IngestedAt = base.Add(-5 * time.Minute)
	// 旧文章今天才被抓到，入库时间更晚，但不应成为最新
	stale := record("https://x.com/stale", ptr(base.Add(-72*time.Hour)), 2, "General")
	stale.IngestedAt = base

	for _, r := range []processor.ProcessedRecord{fresh, stale} {
		_, err := s.Insert(ctx, r)
		require.NoError(t, err)
	}

	got, err := s.Latest(ctx, "")
	require.NoError(t, err)
	require.Equal(t, fresh.URL, got.URL)
}

func TestTruncateRunesDB(t *testing.T) {
	require.Equal(t, "abc", truncateRunesDB("  abc  ", 10))
	require.Equal(t, "你好", truncateRunesDB("你好世界", 2))
	require.Equal(t, "", truncateRunesDB("abc", 0))
}
