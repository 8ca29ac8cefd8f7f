package collector

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry 保存固定顺序的数据源清单，构造后只读
type Registry struct {
	sources []Source
}

type registryFile struct {
	Sources []Source `yaml:"sources"`
}

var defaultStoryFeeds = []string{
	"https://frontofficesports.com/feed/",
	"https://sportico.com/feed/",
	"https://businessofcollegesports.com/feed/",
	"https://www.espn.com/college-sports/rss",
	"https://sports.yahoo.com/college/rss",
	"https://www.si.com/college/.rss",
	"https://www.on3.com/nil/feed/",
	"https://www.on3.com/transfer-portal/feed/",
	"https://news.google.com/rss/search?q=NIL+college+athlete&hl=en-US&gl=US&ceid=US:en",
	"https://news.google.com/rss/search?q=NIL+collective+booster&hl=en-US&gl=US&ceid=US:en",
	"https://news.google.com/rss/search?q=college+sports+transfer+portal&hl=en-US&gl=US&ceid=US:en",
}

var defaultSocialAccounts = []struct {
	handle string
	name   string
}{
	{"NILWire", "NIL Wire"},
	{"On3NIL", "On3 NIL"},
	{"FrontOfficeSpts", "Front Office Sports"},
	{"OpendorseTeam", "Opendorse"},
	{"MarketPryce", "MarketPryce"},
	{"NILStore", "NIL Store"},
	{"TheAthletic", "The Athletic"},
	{"SInow", "Sports Illustrated"},
	{"SBJ_NIL", "Sports Business Journal"},
	{"CollegeSportsIA", "College Sports Business"},
}

// nitter 镜像，每个账号都挂两个实例
var nitterHosts = []string{"https://nitter.net", "https://nitter.poast.org"}

var defaultSocialSearches = []string{
	"https://nitter.net/search/rss?q=NIL%20college",
	"https://nitter.net/search/rss?q=NIL%20deal",
}

// DefaultSources 返回内置清单：新闻源在前，社交源在后
func DefaultSources() []Source {
	out := make([]Source, 0, len(defaultStoryFeeds)+len(defaultSocialAccounts)*len(nitterHosts)+len(defaultSocialSearches))
	for _, u := range defaultStoryFeeds {
		out = append(out, Source{URL: u, Kind: KindStory})
	}
	// 搜索 feed 排在账号 feed 之前，SOCIAL_MAX_FEEDS 截断时保留
	for _, u := range defaultSocialSearches {
		out = append(out, Source{Name: "NIL search", URL: u, Kind: KindSocial})
	}
	for _, a := range defaultSocialAccounts {
		for _, h := range nitterHosts {
			out = append(out, Source{Name: a.name, URL: h + "/" + a.handle + "/rss", Kind: KindSocial})
		}
	}
	return out
}

func NewRegistry(sources []Source) (*Registry, error) {
	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for i, s := range sources {
		s.URL = strings.TrimSpace(s.URL)
		s.Name = strings.TrimSpace(s.Name)
		if s.Kind == "" {
			s.Kind = KindStory
		}
		if s.Kind != KindStory && s.Kind != KindSocial {
			return nil, fmt.Errorf("registry: source %d: unknown kind %q", i, s.Kind)
		}
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("registry: source %d: invalid url %q", i, s.URL)
		}
		if _, dup := seen[s.URL]; dup {
			continue
		}
		seen[s.URL] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("registry: no sources configured")
	}
	return &Registry{sources: out}, nil
}

func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultSources())
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRegistry 从 YAML 文件读取清单，path 为空时返回内置清单
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	return NewRegistry(f.Sources)
}

// Sources 按注册顺序返回指定类型的数据源，max<=0 表示不限
func (r *Registry) Sources(kind Kind, max int) []Source {
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Kind != kind {
			continue
		}
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func (r *Registry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}
