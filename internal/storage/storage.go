package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("storage: record not found")

// Record 是一条入库的新闻或社交帖子，URL 唯一，写入后不再修改
type Record struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	Kind        string     `gorm:"size:16;index" json:"kind"`
	Title       string     `gorm:"size:1024" json:"title"`
	URL         string     `gorm:"size:2048;uniqueIndex" json:"url"`
	Author      string     `gorm:"size:256" json:"author,omitempty"`
	PublishedAt *time.Time `json:"publishedAt"`
	IngestedAt  time.Time  `gorm:"index" json:"ingestedAt"`
	// RecencyAt = PublishedAt，缺失时取 IngestedAt；候选集按它做时间窗过滤
	RecencyAt      time.Time                   `gorm:"index" json:"-"`
	RawExcerpt     string                      `gorm:"type:text" json:"rawExcerpt,omitempty"`
	Brief          string                      `gorm:"type:text" json:"brief"`
	SourceName     string                      `gorm:"size:128;index" json:"sourceName"`
	Category       string                      `gorm:"size:64;index" json:"category"`
	RelevanceScore float64                     `gorm:"index" json:"relevanceScore"`
	Sentiment      string                      `gorm:"size:16" json:"sentiment"`
	BreakingNews   bool                        `json:"breakingNews"`
	KeyEntities    datatypes.JSONSlice[string] `json:"keyEntities"`
	Extra          datatypes.JSONMap           `json:"extra,omitempty"`
}

type Options struct {
	// Driver: sqlite / postgres
	Driver     string
	SQLitePath string
	DSN        string
	// RedisAddr 为空时不启用 seen 集合
	RedisAddr string
	Logger    *slog.Logger
}

type Store struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *slog.Logger
}

func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		db, err = gorm.Open(sqlite.Open(sqliteDSN(opts.SQLitePath)), gcfg)
		if err == nil {
			// SQLite 只有一个写者，连接池限制为 1 避免 SQLITE_BUSY
			if sqlDB, derr := db.DB(); derr == nil {
				sqlDB.SetMaxOpenConns(1)
				sqlDB.SetMaxIdleConns(1)
			}
		}
	case "postgres":
		db, err = gorm.Open(postgres.Open(opts.DSN), gcfg)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", opts.Driver, err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	s := &Store{DB: db, logger: log}

	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis ping failed, seen-set disabled", "addr", opts.RedisAddr, "err", err)
			_ = rdb.Close()
		} else {
			s.Redis = rdb
		}
	}

	return s, nil
}

func (s *Store) Close() error {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sqliteDSN 附加 WAL 与 busy_timeout 参数
func sqliteDSN(path string) string {
	if path == "" {
		path = "nilhub.db"
	}
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

// toValidUTF8 将字符串规范为合法 UTF-8，部分 feed 会混入非法字节
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断，保证不超过字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
