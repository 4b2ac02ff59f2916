package feeds

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one RSS feed to poll.
type Source struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// SourcesConfig is the YAML config structure:
//
// feeds:
//   - url: https://...
//     name: Fars
type SourcesConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadSources reads the feed list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Feeds, nil
}

// DefaultSources is the compiled-in feed list, used when no config file is
// present.
func DefaultSources() []Source {
	return []Source{
		{URL: "https://www.farsnews.ir/rss", Name: "Fars"},
		{URL: "https://www.isna.ir/rss", Name: "ISNA"},
		{URL: "https://www.tasnimnews.com/fa/rss/feed/0/0/0", Name: "Tasnim"},
		{URL: "https://www.mehrnews.com/rss", Name: "Mehr"},
		{URL: "https://www.entekhab.ir/fa/rss/allnews", Name: "Entekhab"},
		{URL: "https://www.irna.ir/rss/fa/8/", Name: "IRNA"},
		{URL: "https://www.yjc.ir/fa/rss/allnews", Name: "YJC"},
		{URL: "https://www.tabnak.ir/fa/rss/allnews", Name: "Tabnak"},
		{URL: "https://www.khabaronline.ir/rss", Name: "KhabarOnline"},
		{URL: "https://www.hamshahrionline.ir/rss", Name: "Hamshahri"},
		{URL: "https://www.ilna.ir/fa/rss", Name: "ILNA"},
		{URL: "https://feeds.bbci.co.uk/persian/rss.xml", Name: "BBCPersian"},
	}
}
