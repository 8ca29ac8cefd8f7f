package collector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryOrderAndKinds(t *testing.T) {
	r := DefaultRegistry()

	stories := r.Sources(KindStory, 0)
	require.Len(t, stories, len(defaultStoryFeeds))
	require.Equal(t, "https://frontofficesports.com/feed/", stories[0].URL)

	social := r.Sources(KindSocial, 12)
	require.Len(t, social, 12)
	require.Equal(t, defaultSocialSearches[0], social[0].URL)
	require.Equal(t, "https://nitter.net/NILWire/rss", social[2].URL)
	for _, s := range social {
		require.Equal(t, KindSocial, s.Kind)
		require.NotEmpty(t, s.Name)
	}
}

func TestNewRegistryValidatesAndDedupes(t *testing.T) {
	r, err := NewRegistry([]Source{
		{URL: "https://a.example.com/feed"},
		{URL: " https://a.example.com/feed "},
		{URL: "https://b.example.com/rss", Kind: KindSocial, Name: "B"},
	})
	require.NoError(t, err)
	require.Len(t, r.All(), 2)
	require.Equal(t, KindStory, r.All()[0].Kind)

	_, err = NewRegistry([]Source{{URL: "ftp://example.com/feed"}})
	require.Error(t, err)
	_, err = NewRegistry([]Source{{URL: "https://example.com", Kind: "video"}})
	require.Error(t, err)
	_, err = NewRegistry(nil)
	require.Error(t, err)
}

func TestLoadRegistryFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	yaml := `sources:
  - name: Sportico
    url: https://sportico.com/feed/
    kind: story
  - name: On3 NIL
    url: https://nitter.net/On3NIL/rss
    kind: social
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	r, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, []Source{{Name: "Sportico", URL: "https://sportico.com/feed/", Kind: KindStory}}, r.Sources(KindStory, 0))
	require.Len(t, r.Sources(KindSocial, 0), 1)

	def, err := LoadRegistry("")
	require.NoError(t, err)
	require.Equal(t, len(DefaultSources()), len(def.All()))

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
