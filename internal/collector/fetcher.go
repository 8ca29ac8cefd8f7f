package collector

import (
	"context"
	"time"
)

// Kind 区分新闻与社交帖子两类数据源
type Kind string

const (
	KindStory  Kind = "story"
	KindSocial Kind = "social"
)

// Source 是注册表中的一个 RSS/Atom 源
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind Kind   `yaml:"kind"`
}

// Entry 是从 feed 中解析出的单条条目，尚未经过相关性判断
type Entry struct {
	Title     string
	Link      string
	Summary   string
	Content   string
	Author    string
	Published *time.Time
	Source    Source
}

// Resolved 是内容解析器的输出，Text 为空表示该条目应被跳过
type Resolved struct {
	Text     string
	FromPage bool
}

// Fetcher 抽象单个 feed 的拉取，limit 为每个 feed 最多处理的条目数
type Fetcher interface {
	Fetch(ctx context.Context, src Source, limit int) ([]Entry, error)
}

// ContentResolver 把条目解析为可供打分的正文
type ContentResolver interface {
	Resolve(ctx context.Context, e Entry) Resolved
}
