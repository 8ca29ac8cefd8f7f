package collector

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const UserAgent = "NILHubBot/1.0"

// LimitedTransport 给所有出站请求加一个全局并发上限。
// 许可在响应体关闭时才归还，慢速读取的 body 也计入上限
type LimitedTransport struct {
	base http.RoundTripper
	sem  *semaphore.Weighted
}

func NewLimitedTransport(maxConns int) *LimitedTransport {
	if maxConns <= 0 {
		maxConns = 1
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &LimitedTransport{base: tr, sem: semaphore.NewWeighted(int64(maxConns))}
}

func (t *LimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}
	resp.Body = &releaseOnClose{ReadCloser: resp.Body, release: func() { t.sem.Release(1) }}
	return resp, nil
}

type releaseOnClose struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (r *releaseOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.release)
	return err
}
