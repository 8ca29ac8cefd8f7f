package processor

import (
	"regexp"
	"strings"
)

// Evaluation 是相关性引擎对一段文本的完整判定结果
type Evaluation struct {
	Relevant     bool
	Score        float64
	Category     string
	Sentiment    string
	Breaking     bool
	Entities     []string
	MatchedTerms []string
}

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

type compiledTerm struct {
	Term
	re *regexp.Regexp
}

type compiledCategory struct {
	name string
	res  []*regexp.Regexp
}

// Engine 只读、无 I/O，构造后可在任意 goroutine 中并发调用 Evaluate
type Engine struct {
	terms      []compiledTerm
	minTerms   int
	urgency    []*regexp.Regexp
	categories []compiledCategory
	positive   []*regexp.Regexp
	negative   []*regexp.Regexp
	entities   *entityExtractor
}

func NewEngine(v Vocabulary) *Engine {
	e := &Engine{
		minTerms: v.MinTerms,
		urgency:  compileAll(v.UrgencyMarkers),
		positive: compileAll(v.Positive),
		negative: compileAll(v.Negative),
		entities: newEntityExtractor(v.Organizations, v.NameExclusions),
	}
	if e.minTerms <= 0 {
		e.minTerms = 2
	}
	for _, t := range v.Terms {
		e.terms = append(e.terms, compiledTerm{Term: t, re: wordPattern(t.Phrase)})
	}
	for _, c := range v.Categories {
		e.categories = append(e.categories, compiledCategory{name: c.Name, res: compileAll(c.Keywords)})
	}
	return e
}

// Evaluate 对标题与正文合并后的文本打分
func (e *Engine) Evaluate(title, body string) Evaluation {
	original := normalizeSpace(title + " " + body)
	text := strings.ToLower(original)

	var (
		ev         Evaluation
		distinct   int
		highSignal bool
	)
	for _, t := range e.terms {
		n := len(t.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		distinct++
		ev.Score += t.Weight * float64(n)
		ev.MatchedTerms = append(ev.MatchedTerms, t.Phrase)
		if t.HighSignal {
			highSignal = true
		}
	}

	ev.Breaking = anyMatch(e.urgency, text)
	if ev.Breaking {
		ev.Score += UrgencyBonus
	}
	if ev.Score > ScoreCap {
		ev.Score = ScoreCap
	}

	ev.Relevant = highSignal || distinct >= e.minTerms
	ev.Category = e.categorize(text)
	ev.Sentiment = e.sentiment(text)
	ev.Entities = e.entities.extract(normalizeSpace(title), normalizeSpace(body))
	return ev
}

// Categorize 单独暴露分类表，便于脱离打分逻辑测试先后顺序
func (e *Engine) Categorize(title, body string) string {
	return e.categorize(strings.ToLower(normalizeSpace(title + " " + body)))
}

func (e *Engine) categorize(text string) string {
	for _, c := range e.categories {
		if anyMatch(c.res, text) {
			return c.name
		}
	}
	return DefaultCategory
}

func (e *Engine) sentiment(text string) string {
	pos := countAll(e.positive, text)
	neg := countAll(e.negative, text)
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// wordPattern 按词边界匹配小写短语，短语内部的空白允许多个
func wordPattern(phrase string) *regexp.Regexp {
	parts := strings.Fields(strings.ToLower(phrase))
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`\b` + strings.Join(parts, `\s+`) + `\b`)
}

func compileAll(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, wordPattern(p))
	}
	return out
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func countAll(res []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range res {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
