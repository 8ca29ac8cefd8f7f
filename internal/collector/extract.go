package collector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	minContainerChars = 200
	minBlockChars     = 40
	maxFallbackChars  = 4000
)

// 常见正文容器，按优先级排列，与 browser-scraper 保持一致
var contentSelectors = []string{
	"article",
	"div.article-content",
	"div#article-content",
	"div.entry-content",
	"div#content",
	"div.main-content",
	"div.content",
	"div.article",
	"main",
}

// ExtractMainText 优先在正文容器中取文本，找不到时拼接全页较长段落
func ExtractMainText(root *goquery.Selection) string {
	root.Find("script, style, noscript, nav, footer, header, aside").Remove()

	for _, sel := range contentSelectors {
		text := collapse(root.Find(sel).First().Text())
		if len([]rune(text)) > minContainerChars {
			return text
		}
	}

	// 兜底：遍历全页较长段落
	var (
		pieces []string
		total  int
	)
	root.Find("p").Each(func(_ int, s *goquery.Selection) {
		if total > maxFallbackChars {
			return
		}
		t := collapse(s.Text())
		if len([]rune(t)) < minBlockChars {
			return
		}
		pieces = append(pieces, t)
		total += len(t)
	})
	return strings.Join(pieces, "\n\n")
}

// StripHTML 把 feed 摘要里的 HTML 片段转成纯文本
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
