package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const feedMaxResponseBytes = 4 << 20 // 4MB

// FeedFetcher 拉取 RSS/Atom 并用 gofeed 解析
type FeedFetcher struct {
	client  *http.Client
	timeout time.Duration
}

func NewFeedFetcher(client *http.Client, timeout time.Duration) *FeedFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &FeedFetcher{client: client, timeout: timeout}
}

// Fetch 只看前 limit 条条目并丢弃没有链接的，网络错误与非 200 状态都作为错误返回
func (f *FeedFetcher) Fetch(ctx context.Context, src Source, limit int) ([]Entry, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request %s: %w", src.URL, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: %s unexpected status %d", src.URL, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, feedMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("feed: parse %s: %w", src.URL, err)
	}

	out := make([]Entry, 0, len(feed.Items))
	for i, it := range feed.Items {
		if limit > 0 && i == limit {
			break
		}
		if it == nil || strings.TrimSpace(it.Link) == "" {
			continue
		}
		out = append(out, toEntry(it, src))
	}
	return out, nil
}

func toEntry(it *gofeed.Item, src Source) Entry {
	e := Entry{
		Title:   strings.TrimSpace(it.Title),
		Link:    strings.TrimSpace(it.Link),
		Summary: it.Description,
		Content: it.Content,
		Source:  src,
	}
	if e.Title == "" {
		e.Title = "No title"
	}
	if it.Author != nil {
		e.Author = strings.TrimSpace(it.Author.Name)
	}
	switch {
	case it.PublishedParsed != nil:
		t := it.PublishedParsed.UTC()
		e.Published = &t
	case it.UpdatedParsed != nil:
		t := it.UpdatedParsed.UTC()
		e.Published = &t
	}
	return e
}
