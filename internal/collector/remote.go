package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ExtractRequest / ExtractResponse 是 browser-scraper /extract 接口的报文
type ExtractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type ExtractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// RemoteExtractor 调用无头浏览器 sidecar 渲染并提取正文，用于 JS 渲染的页面
type RemoteExtractor struct {
	endpoint string
	client   *http.Client
	maxChars int
}

func NewRemoteExtractor(endpoint string, client *http.Client, maxChars int) *RemoteExtractor {
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteExtractor{
		endpoint: strings.TrimRight(endpoint, "/") + "/extract",
		client:   client,
		maxChars: maxChars,
	}
}

func (r *RemoteExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	body, err := json.Marshal(ExtractRequest{URL: pageURL, MaxChars: r.maxChars})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("extractor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extractor: call %s: %w", r.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extractor: unexpected status %d", resp.StatusCode)
	}

	var out ExtractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("extractor: decode: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("extractor: %s", out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}
