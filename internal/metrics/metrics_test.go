package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.PassStarted("story")
	m.Entry("story", "inserted")
	m.Entry("story", "inserted")
	m.Entry("story", "duplicate")
	m.SourceError("story")
	m.PassFinished("story", 2*time.Second)
	m.PassSkipped("social")
	m.ObserveHTTP("/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`nilhub_crawl_entries_total{kind="story",outcome="inserted"} 2`,
		`nilhub_crawl_passes_total{kind="social",result="skipped"} 1`,
		`nilhub_crawl_running{kind="story"} 0`,
		`nilhub_crawl_source_errors_total{kind="story"} 1`,
	} {
		require.True(t, strings.Contains(body, want), "missing %q", want)
	}
	require.Contains(t, body, "nilhub_http_requests_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PassStarted("story")
	m.Entry("story", "inserted")
	m.PassFinished("story", time.Second)
	m.ObserveHTTP("/", 200, time.Second)
	require.Nil(t, m.Registry())
}
