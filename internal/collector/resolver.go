package collector

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const pageMaxBodyBytes = 2 << 20 // 2MB

// Resolver 按 页面抓取 -> 远程渲染 -> feed 摘要 的顺序取正文
type Resolver struct {
	transport http.RoundTripper
	timeout   time.Duration
	remote    *RemoteExtractor
	logger    *slog.Logger
}

func NewResolver(transport http.RoundTripper, timeout time.Duration, remote *RemoteExtractor, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{transport: transport, timeout: timeout, remote: remote, logger: logger}
}

// Resolve 不返回错误，任何一步失败都降级到下一步，全部为空时 Text 为空
func (r *Resolver) Resolve(ctx context.Context, e Entry) Resolved {
	if e.Source.Kind == KindSocial {
		return Resolved{Text: socialText(e)}
	}

	if ctx.Err() == nil {
		if text, err := r.fetchPage(e.Link); err != nil {
			r.logger.Debug("page fetch failed", "url", e.Link, "err", err)
		} else if text != "" {
			return Resolved{Text: text, FromPage: true}
		}
	}

	if r.remote != nil && ctx.Err() == nil {
		rctx, cancel := context.WithTimeout(ctx, 3*r.timeout)
		text, err := r.remote.Extract(rctx, e.Link)
		cancel()
		if err != nil {
			r.logger.Debug("remote extract failed", "url", e.Link, "err", err)
		} else if text != "" {
			return Resolved{Text: text, FromPage: true}
		}
	}

	return Resolved{Text: feedText(e)}
}

// fetchPage 每次新建 collector，非 2xx 响应由 colly 以错误返回
func (r *Resolver) fetchPage(link string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(pageMaxBodyBytes),
	)
	c.SetRequestTimeout(r.timeout)
	if r.transport != nil {
		c.WithTransport(r.transport)
	}

	var text string
	c.OnHTML("html", func(el *colly.HTMLElement) {
		text = ExtractMainText(el.DOM)
	})

	if err := c.Visit(link); err != nil {
		return "", err
	}
	c.Wait()
	return strings.TrimSpace(text), nil
}

func feedText(e Entry) string {
	return strings.TrimSpace(StripHTML(e.Summary) + " " + StripHTML(e.Content))
}

// socialText 社交帖子只用 feed 自带文本，摘要为空时退回标题
func socialText(e Entry) string {
	if t := feedText(e); t != "" {
		return t
	}
	return strings.TrimSpace(e.Title)
}
