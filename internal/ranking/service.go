package ranking

import (
	"context"
	"time"

	"github.com/LJTian/NILHub/internal/storage"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Store 是排序服务依赖的只读存储接口
type Store interface {
	ListCandidates(ctx context.Context, q storage.CandidateQuery) ([]storage.Record, error)
	Latest(ctx context.Context, kind string) (*storage.Record, error)
	Categories(ctx context.Context) ([]storage.CategoryCount, error)
	Count(ctx context.Context) (int64, error)
}

type Query struct {
	storage.Filter
	Limit int
}

// Service 每次查询都在读取时重新计算得分，不缓存结果
type Service struct {
	store         Store
	maxCandidates int
	now           func() time.Time
}

func NewService(store Store, maxCandidates int) *Service {
	return &Service{store: store, maxCandidates: maxCandidates, now: time.Now}
}

// NormalizeLimit 把缺省或越界的 limit 收敛到 [1, MaxLimit]
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (s *Service) Query(ctx context.Context, q Query) ([]Ranked, error) {
	limit := NormalizeLimit(q.Limit)
	now := s.now().UTC()

	candidates, err := s.store.ListCandidates(ctx, storage.CandidateQuery{
		Filter:    q.Filter,
		Since:     now.Add(-CandidateWindow),
		MaxRecent: s.maxCandidates,
		Older:     limit,
	})
	if err != nil {
		return nil, err
	}

	ranked := Rank(candidates, now)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Latest 返回发布时间最新的一条，带当前综合得分
func (s *Service) Latest(ctx context.Context, kind string) (*Ranked, error) {
	r, err := s.store.Latest(ctx, kind)
	if err != nil {
		return nil, err
	}
	return &Ranked{Record: *r, Score: CompositeScore(*r, s.now().UTC())}, nil
}

func (s *Service) Categories(ctx context.Context) ([]storage.CategoryCount, error) {
	return s.store.Categories(ctx)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
