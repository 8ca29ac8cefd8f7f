package processor

import (
	"regexp"
	"strings"
)

var (
	moneyRe = regexp.MustCompile(`(?i)\$\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand|[mkb])\b)?`)
	nameRe  = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
)

// 句首常见的大写虚词，不当作人名的第一个词
var leadingStopWords = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "That": true, "In": true,
	"On": true, "At": true, "For": true, "With": true, "And": true, "But": true,
	"After": true, "Before": true, "Breaking": true, "Exclusive": true,
	"Developing": true, "Report": true, "Star": true, "How": true, "Why": true,
}

type entityExtractor struct {
	orgs     []string
	orgRes   []*regexp.Regexp
	excluded map[string]bool
}

func newEntityExtractor(orgs, exclusions []string) *entityExtractor {
	x := &entityExtractor{excluded: make(map[string]bool, len(exclusions))}
	for _, o := range orgs {
		x.orgs = append(x.orgs, o)
		x.orgRes = append(x.orgRes, regexp.MustCompile(`\b`+regexp.QuoteMeta(o)+`\b`))
	}
	for _, e := range exclusions {
		x.excluded[e] = true
	}
	return x
}

// extract 依次收集金额、已知机构、人名，去重后最多保留 MaxEntities 个。
// 标题与正文分段传入，避免跨段拼出假的人名
func (x *entityExtractor) extract(segments ...string) []string {
	text := strings.Join(segments, "\n")
	seen := make(map[string]bool)
	out := make([]string, 0, MaxEntities)
	add := func(s string) bool {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return len(out) < MaxEntities
		}
		seen[s] = true
		out = append(out, s)
		return len(out) < MaxEntities
	}

	for _, m := range moneyRe.FindAllString(text, -1) {
		if !add(m) {
			return out
		}
	}
	for i, re := range x.orgRes {
		if re.MatchString(text) && !add(x.orgs[i]) {
			return out
		}
	}
	for _, seg := range segments {
		for _, m := range nameRe.FindAllString(seg, -1) {
			if x.excluded[m] {
				continue
			}
			first := m[:strings.IndexByte(m, ' ')]
			if leadingStopWords[first] {
				continue
			}
			if !add(m) {
				return out
			}
		}
	}
	return out
}
