package ranking

import (
	"sort"
	"time"

	"github.com/LJTian/NILHub/internal/storage"
)

const (
	BreakingBonus  = 1000.0
	BreakingWindow = 24 * time.Hour
	// CandidateWindow 之外的记录没有时间加分
	CandidateWindow = 14 * 24 * time.Hour
)

// 时间加分档位，按年龄从小到大匹配
var recencyTiers = []struct {
	maxAge time.Duration
	bonus  float64
}{
	{24 * time.Hour, 50},
	{3 * 24 * time.Hour, 30},
	{7 * 24 * time.Hour, 20},
	{CandidateWindow, 10},
}

// Age 以 RecencyAt 计算，未来时间视为 0
func Age(r storage.Record, now time.Time) time.Duration {
	age := now.Sub(r.RecencyAt)
	if age < 0 {
		return 0
	}
	return age
}

func RecencyBonus(age time.Duration) float64 {
	for _, t := range recencyTiers {
		if age < t.maxAge {
			return t.bonus
		}
	}
	return 0
}

// CompositeScore = 突发加分 + 时间加分 + 相关性得分
func CompositeScore(r storage.Record, now time.Time) float64 {
	age := Age(r, now)
	score := RecencyBonus(age) + r.RelevanceScore
	if r.BreakingNews && age < BreakingWindow {
		score += BreakingBonus
	}
	return score
}

// Ranked 是带综合得分的记录
type Ranked struct {
	storage.Record
	Score float64 `json:"score"`
}

// Rank 按综合得分降序，相同得分时更新的在前，再按 ID 升序保证结果确定
func Rank(records []storage.Record, now time.Time) []Ranked {
	out := make([]Ranked, len(records))
	for i, r := range records {
		out[i] = Ranked{Record: r, Score: CompositeScore(r, now)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.RecencyAt.Equal(b.RecencyAt) {
			return a.RecencyAt.After(b.RecencyAt)
		}
		return a.ID < b.ID
	})
	return out
}
