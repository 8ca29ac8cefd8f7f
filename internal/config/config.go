package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort string

	// 全站 Basic Auth，两者都配置时启用
	BasicAuthUser string
	BasicAuthPass string

	// DBDriver: sqlite（默认，本地文件）/ postgres
	DBDriver    string
	SQLitePath  string
	PostgresDSN string
	RedisAddr   string

	CronSpec       string
	SocialCronSpec string
	StartupDelay   time.Duration

	// SourcesFile 可选的 YAML 数据源清单，未设置时使用内置列表
	SourcesFile string

	EntriesPerFeed       int
	SocialEntriesPerFeed int
	SocialMaxFeeds       int
	SourceConcurrency    int
	MaxConnections       int
	FeedTimeout          time.Duration
	PageTimeout          time.Duration
	// ExtractorURL 指向 browser-scraper 的 /extract 接口，为空则不启用
	ExtractorURL string

	MinTerms      int
	MaxCandidates int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppPort:              getEnv("APP_PORT", "9000"),
		BasicAuthUser:        getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:        getEnv("APP_BASIC_PASS", ""),
		DBDriver:             strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath:           getEnv("SQLITE_PATH", "nilhub.db"),
		PostgresDSN:          getEnv("POSTGRES_DSN", "host=localhost user=nilhub password=nilhub dbname=nilhub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		CronSpec:             getEnv("CRON_SPEC", "*/5 * * * *"),
		SocialCronSpec:       getEnv("SOCIAL_CRON_SPEC", "*/10 * * * *"),
		StartupDelay:         getDuration("STARTUP_DELAY", 15*time.Second),
		SourcesFile:          getEnv("SOURCES_FILE", ""),
		EntriesPerFeed:       getInt("ENTRIES_PER_FEED", 5),
		SocialEntriesPerFeed: getInt("SOCIAL_ENTRIES_PER_FEED", 2),
		SocialMaxFeeds:       getInt("SOCIAL_MAX_FEEDS", 12),
		SourceConcurrency:    getInt("SOURCE_CONCURRENCY", 4),
		MaxConnections:       getInt("MAX_CONNECTIONS", 8),
		FeedTimeout:          getDuration("FEED_TIMEOUT", 10*time.Second),
		PageTimeout:          getDuration("PAGE_TIMEOUT", 8*time.Second),
		ExtractorURL:         getEnv("EXTRACTOR_URL", ""),
		MinTerms:             getInt("RELEVANCE_MIN_TERMS", 2),
		MaxCandidates:        getInt("RANKING_MAX_CANDIDATES", 5000),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must not be empty")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN must not be empty")
		}
	default:
		return fmt.Errorf("DB_DRIVER %q not supported (sqlite|postgres)", c.DBDriver)
	}
	if c.EntriesPerFeed <= 0 || c.SocialEntriesPerFeed <= 0 {
		return fmt.Errorf("ENTRIES_PER_FEED and SOCIAL_ENTRIES_PER_FEED must be positive")
	}
	if c.SocialMaxFeeds <= 0 {
		return fmt.Errorf("SOCIAL_MAX_FEEDS must be positive")
	}
	if c.SourceConcurrency <= 0 {
		return fmt.Errorf("SOURCE_CONCURRENCY must be positive")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive")
	}
	if c.FeedTimeout <= 0 || c.PageTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT and PAGE_TIMEOUT must be positive")
	}
	if c.MinTerms <= 0 {
		return fmt.Errorf("RELEVANCE_MIN_TERMS must be positive")
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("RANKING_MAX_CANDIDATES must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// getDuration 解析失败时回退默认值，例如 "8s" / "1m30s"
func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
