package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/logger"
)

const (
	defaultMaxChars = 2000
	maxMaxChars     = 8000
)

// renderFunc 渲染页面并返回最终 HTML
type renderFunc func(ctx context.Context, url string) (string, error)

func main() {
	log := logger.New("nilhub-browser-scraper")

	// 整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Warn("chromedp warmup failed", "err", err)
	}

	timeout := 20 * time.Second
	if v, err := strconv.Atoi(getEnv("RENDER_TIMEOUT_SECONDS", "20")); err == nil && v > 0 {
		timeout = time.Duration(v) * time.Second
	}

	render := func(ctx context.Context, url string) (string, error) {
		// 每个请求开一个新 tab，共享同一个浏览器
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		tabCtx, cancel := context.WithTimeout(tabCtx, timeout)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		var html string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		return html, err
	}

	mux := http.NewServeMux()
	mux.Handle("/extract", extractHandler(render, log))

	addr := ":" + getEnv("PORT", "4000")
	log.Info("browser-scraper listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Error("http server error", "err", err)
		os.Exit(1)
	}
}

// extractHandler 实现 POST /extract：渲染后与直连抓取共用同一套正文提取规则
func extractHandler(render renderFunc, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req collector.ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, collector.ExtractResponse{Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, collector.ExtractResponse{Error: "url is required"})
			return
		}
		if req.MaxChars <= 0 || req.MaxChars > maxMaxChars {
			req.MaxChars = defaultMaxChars
		}

		html, err := render(r.Context(), req.URL)
		if err != nil {
			log.Warn("render failed", "url", req.URL, "err", err)
			writeJSON(w, http.StatusOK, collector.ExtractResponse{Error: err.Error()})
			return
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			writeJSON(w, http.StatusOK, collector.ExtractResponse{Error: err.Error()})
			return
		}
		text := collector.ExtractMainText(doc.Selection)
		if text == "" {
			writeJSON(w, http.StatusOK, collector.ExtractResponse{Error: "empty content"})
			return
		}

		// rune 级截断，避免多字节字符被截成半个
		if rs := []rune(text); len(rs) > req.MaxChars {
			text = string(rs[:req.MaxChars]) + "…"
		}
		writeJSON(w, http.StatusOK, collector.ExtractResponse{OK: true, Text: text})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
