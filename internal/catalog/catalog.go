package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/bilgisen/autopress/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed feeds.yaml
var defaultCatalog []byte

type catalogFile struct {
	Feeds []models.FeedDescriptor `yaml:"feeds"`
}

// Catalog is an immutable registry of known feed sources
type Catalog struct {
	feeds []models.FeedDescriptor
	byID  map[string]int
}

// New builds a catalog from the given descriptors. Ids must be unique and
// every entry needs a retrieval URL.
func New(feeds []models.FeedDescriptor) (*Catalog, error) {
	c := &Catalog{
		feeds: make([]models.FeedDescriptor, 0, len(feeds)),
		byID:  make(map[string]int, len(feeds)),
	}

	for _, f := range feeds {
		f.ID = strings.TrimSpace(f.ID)
		if f.ID == "" {
			return nil, fmt.Errorf("feed %q has no id", f.Name)
		}
		if strings.TrimSpace(f.URL) == "" {
			return nil, fmt.Errorf("feed %s has no url", f.ID)
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate feed id %s", f.ID)
		}
		c.byID[f.ID] = len(c.feeds)
		c.feeds = append(c.feeds, f)
	}

	return c, nil
}

// Parse decodes a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse feed catalog: %w", err)
	}
	return New(file.Feeds)
}

// Load reads a catalog from path, or returns the built-in catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in catalog of Indonesian and international outlets
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// All returns every feed in catalog order
func (c *Catalog) All() []models.FeedDescriptor {
	out := make([]models.FeedDescriptor, len(c.feeds))
	copy(out, c.feeds)
	return out
}

// Len returns the number of known feeds
func (c *Catalog) Len() int {
	return len(c.feeds)
}

// Get looks up a single feed by id
func (c *Catalog) Get(id string) (models.FeedDescriptor, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return models.FeedDescriptor{}, false
	}
	return c.feeds[idx], true
}

// FindByIDs resolves ids to descriptors. Unknown ids are dropped and
// duplicates collapse; the result follows the order of ids.
func (c *Catalog) FindByIDs(ids []string) []models.FeedDescriptor {
	seen := make(map[string]bool, len(ids))
	out := make([]models.FeedDescriptor, 0, len(ids))

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		if f, ok := c.Get(id); ok {
			out = append(out, f)
		}
	}
	return out
}

// Defaults returns the first n feeds, the selection used when a caller names none
func (c *Catalog) Defaults(n int) []models.FeedDescriptor {
	if n <= 0 || n > len(c.feeds) {
		n = len(c.feeds)
	}
	out := make([]models.FeedDescriptor, n)
	copy(out, c.feeds[:n])
	return out
}
