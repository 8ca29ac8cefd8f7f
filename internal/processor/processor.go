package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/NILHub/internal/collector"
)

const (
	ExcerptRunes   = 2000
	BriefRunes     = 400
	BriefSentences = 3
	NoBrief        = "Summary not available"
)

// ProcessedRecord 是写入存储层前的统一结构
type ProcessedRecord struct {
	ID             string
	Kind           collector.Kind
	Title          string
	URL            string
	Author         string
	PublishedAt    *time.Time
	IngestedAt     time.Time
	RawExcerpt     string
	Brief          string
	SourceName     string
	Category       string
	RelevanceScore float64
	Sentiment      string
	BreakingNews   bool
	KeyEntities    []string
	Extra          map[string]any
}

// Processor 串联相关性判断与记录构建
type Processor struct {
	engine *Engine
}

func NewProcessor(engine *Engine) *Processor {
	return &Processor{engine: engine}
}

func (p *Processor) Engine() *Engine { return p.engine }

// Process 对解析后的正文打分，不相关时返回 false
func (p *Processor) Process(e collector.Entry, r collector.Resolved, now time.Time) (ProcessedRecord, bool) {
	if strings.TrimSpace(r.Text) == "" {
		return ProcessedRecord{}, false
	}

	rawTitle := strings.TrimSpace(e.Title)
	title, body := rawTitle, r.Text
	author := strings.TrimSpace(e.Author)
	if e.Source.Kind == collector.KindSocial {
		if a, t, ok := splitAuthor(rawTitle); ok {
			author, title = a, t
		}
		// 帖子正文常与标题相同（或就是标题本身），只计分一次
		if text := normalizeSpace(r.Text); text == normalizeSpace(rawTitle) || text == normalizeSpace(title) {
			body = ""
		}
	}

	ev := p.engine.Evaluate(title, body)
	if !ev.Relevant {
		return ProcessedRecord{}, false
	}

	var published *time.Time
	if e.Published != nil {
		t := e.Published.UTC()
		published = &t
	}

	kind := e.Source.Kind
	if kind == "" {
		kind = collector.KindStory
	}

	return ProcessedRecord{
		ID:             HashURL(e.Link),
		Kind:           kind,
		Title:          title,
		URL:            e.Link,
		Author:         author,
		PublishedAt:    published,
		IngestedAt:     now.UTC(),
		RawExcerpt:     cutRunes(r.Text, ExcerptRunes),
		Brief:          Brief(r.Text),
		SourceName:     SourceName(e.Source, e.Link),
		Category:       ev.Category,
		RelevanceScore: ev.Score,
		Sentiment:      ev.Sentiment,
		BreakingNews:   ev.Breaking,
		KeyEntities:    ev.Entities,
		Extra: map[string]any{
			"feed":         e.Source.URL,
			"matchedTerms": ev.MatchedTerms,
			"fromPage":     r.FromPage,
		},
	}, true
}

// HashURL 用 URL 的 sha256 作为记录 ID，同一 URL 始终得到同一 ID
func HashURL(u string) string {
	h := sha256.Sum256([]byte(u))
	return hex.EncodeToString(h[:])
}

// Brief 取前几句较长的句子拼成摘要
func Brief(text string) string {
	var picked []string
	for _, s := range strings.Split(normalizeSpace(text), ".") {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) <= 30 {
			continue
		}
		picked = append(picked, s+".")
		if len(picked) == BriefSentences {
			break
		}
	}
	if len(picked) == 0 {
		return NoBrief
	}
	return truncateRunes(strings.Join(picked, " "), BriefRunes)
}

// 已知媒体的域名与展示名
var knownSources = []struct {
	host string
	name string
}{
	{"frontofficesports.com", "Front Office Sports"},
	{"sportico.com", "Sportico"},
	{"businessofcollegesports.com", "Business of College Sports"},
	{"espn.com", "ESPN"},
	{"si.com", "Sports Illustrated"},
	{"on3.com", "On3"},
	{"news.google.com", "Google News"},
}

// SourceName 社交源优先使用注册表中的名字，其余按域名映射
func SourceName(src collector.Source, link string) string {
	if src.Kind == collector.KindSocial && src.Name != "" {
		return src.Name
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		if src.Name != "" {
			return src.Name
		}
		return "Unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, k := range knownSources {
		if host == k.host || strings.HasSuffix(host, "."+k.host) {
			return k.name
		}
	}
	label := host
	if i := strings.IndexByte(label, '.'); i > 0 {
		label = label[:i]
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// splitAuthor 拆分 "作者: 正文" 形式的社交帖子标题
func splitAuthor(title string) (string, string, bool) {
	i := strings.Index(title, ": ")
	if i <= 0 {
		return "", title, false
	}
	author := strings.TrimSpace(title[:i])
	body := strings.TrimSpace(title[i+2:])
	if author == "" || body == "" || strings.ContainsAny(author, ".!?") {
		return "", title, false
	}
	return author, body, true
}

// truncateRunes 按字符截断并追加省略号
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "…"
}

func cutRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
