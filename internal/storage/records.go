package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LJTian/NILHub/internal/processor"
)

// InsertResult 区分新插入与已存在，重复插入不是错误
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyExists
)

func (r InsertResult) String() string {
	if r == Inserted {
		return "inserted"
	}
	return "alreadyExists"
}

// Filter 为查询附加的可选条件，零值表示不过滤
type Filter struct {
	Category string
	Source   string
	Kind     string
}

func (f Filter) apply(db *gorm.DB) *gorm.DB {
	if f.Category != "" {
		db = db.Where("category = ?", f.Category)
	}
	if f.Source != "" {
		db = db.Where("source_name = ?", f.Source)
	}
	if f.Kind != "" {
		db = db.Where("kind = ?", f.Kind)
	}
	return db
}

// Insert 以 ID/URL 为幂等键插入，冲突时什么都不做。
// 并发插入同一 URL 时恰好一个调用得到 Inserted
func (s *Store) Insert(ctx context.Context, rec processor.ProcessedRecord) (InsertResult, error) {
	r := toRecord(rec)
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&r)
	if res.Error != nil {
		return AlreadyExists, res.Error
	}
	s.markSeen(ctx, r.ID)
	if res.RowsAffected == 0 {
		return AlreadyExists, nil
	}
	return Inserted, nil
}

// Exists 先查 redis seen 集合，未命中再查库
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if s.isSeen(ctx, id) {
		return true, nil
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Record{}).Where("id = ?", id).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		s.markSeen(ctx, id)
	}
	return n > 0, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&Record{}).Count(&n).Error
	return n, err
}

// CandidateQuery 描述排序前需要从库中取出的候选集
type CandidateQuery struct {
	Filter
	// Since 之后的记录全部进入候选集（上限 MaxRecent）
	Since     time.Time
	MaxRecent int
	// Older 是更早记录中按相关性取的条数
	Older int
}

// ListCandidates 返回时间窗内的记录，外加窗口之前相关性最高的 Older 条。
// 窗口外的记录综合得分只剩相关性，取前 Older 条足以覆盖最终结果
func (s *Store) ListCandidates(ctx context.Context, q CandidateQuery) ([]Record, error) {
	var recent []Record
	db := q.Filter.apply(s.DB.WithContext(ctx).Model(&Record{})).
		Where("recency_at >= ?", q.Since).
		Order("recency_at DESC").Order("id ASC")
	if q.MaxRecent > 0 {
		db = db.Limit(q.MaxRecent)
	}
	if err := db.Find(&recent).Error; err != nil {
		return nil, err
	}
	if q.Older <= 0 {
		return recent, nil
	}

	var older []Record
	err := q.Filter.apply(s.DB.WithContext(ctx).Model(&Record{})).
		Where("recency_at < ?", q.Since).
		Order("relevance_score DESC").Order("recency_at DESC").Order("id ASC").
		Limit(q.Older).
		Find(&older).Error
	if err != nil {
		return nil, err
	}
	return append(recent, older...), nil
}

// Latest 返回发布时间最新的一条记录（无发布时间时按入库时间），kind 为空表示不限类型
func (s *Store) Latest(ctx context.Context, kind string) (*Record, error) {
	var r Record
	err := Filter{Kind: kind}.apply(s.DB.WithContext(ctx).Model(&Record{})).
		Order("recency_at DESC").Order("id ASC").
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

func (s *Store) Categories(ctx context.Context) ([]CategoryCount, error) {
	var out []CategoryCount
	err := s.DB.WithContext(ctx).Model(&Record{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC").Order("category ASC").
		Scan(&out).Error
	return out, err
}

func toRecord(p processor.ProcessedRecord) Record {
	r := Record{
		ID:             p.ID,
		Kind:           string(p.Kind),
		Title:          truncateRunesDB(toValidUTF8(p.Title), 1024),
		URL:            p.URL,
		Author:         truncateRunesDB(toValidUTF8(p.Author), 256),
		IngestedAt:     p.IngestedAt.UTC(),
		RawExcerpt:     toValidUTF8(p.RawExcerpt),
		Brief:          toValidUTF8(p.Brief),
		SourceName:     truncateRunesDB(p.SourceName, 128),
		Category:       p.Category,
		RelevanceScore: p.RelevanceScore,
		Sentiment:      p.Sentiment,
		BreakingNews:   p.BreakingNews,
		KeyEntities:    datatypes.JSONSlice[string](p.KeyEntities),
		Extra:          datatypes.JSONMap(p.Extra),
	}
	if r.KeyEntities == nil {
		r.KeyEntities = datatypes.JSONSlice[string]{}
	}
	r.RecencyAt = r.IngestedAt
	if p.PublishedAt != nil {
		t := p.PublishedAt.UTC()
		r.PublishedAt = &t
		r.RecencyAt = t
	}
	return r
}
