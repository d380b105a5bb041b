package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bilgisen/autopress/internal/models"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]models.FeedDescriptor{
		{ID: "tempo-bisnis", Name: "Tempo - Bisnis", URL: "https://rss.tempo.co/bisnis", Category: "Bisnis", Country: "Indonesia"},
		{ID: "kompas-tekno", Name: "Kompas - Tekno", URL: "https://rss.kompas.com/tekno", Category: "Teknologi", Country: "Indonesia"},
		{ID: "aljazeera", Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml", Category: "Berita Internasional", Country: "International"},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}
	if c.Len() != 26 {
		t.Errorf("Expected 26 feeds, got %d", c.Len())
	}

	first := c.All()[0]
	if first.ID != "cnn-indonesia" {
		t.Errorf("Expected cnn-indonesia first, got %s", first.ID)
	}
	for _, f := range c.All() {
		if f.Name == "" || f.Category == "" || f.Country == "" {
			t.Errorf("Feed %s is missing descriptive fields: %+v", f.ID, f)
		}
	}
}

func TestFindByIDs(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"known ids", []string{"aljazeera", "tempo-bisnis"}, []string{"aljazeera", "tempo-bisnis"}},
		{"unknown ids dropped", []string{"tempo-bisnis", "nope", "kompas-tekno"}, []string{"tempo-bisnis", "kompas-tekno"}},
		{"duplicates collapse", []string{"aljazeera", "aljazeera"}, []string{"aljazeera"}},
		{"only unknown", []string{"x", "y"}, nil},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.FindByIDs(tt.ids)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d feeds, got %d", len(tt.want), len(got))
			}
			for i, f := range got {
				if f.ID != tt.want[i] {
					t.Errorf("Position %d: expected %s, got %s", i, tt.want[i], f.ID)
				}
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	c := testCatalog(t)

	if got := c.Defaults(2); len(got) != 2 || got[0].ID != "tempo-bisnis" || got[1].ID != "kompas-tekno" {
		t.Errorf("Unexpected default selection: %+v", got)
	}
	if got := c.Defaults(10); len(got) != 3 {
		t.Errorf("Expected selection capped at catalog size, got %d", len(got))
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := testCatalog(t)
	all := c.All()
	all[0].Name = "mutated"

	if f, _ := c.Get("tempo-bisnis"); f.Name != "Tempo - Bisnis" {
		t.Error("Expected catalog to be unaffected by caller mutation")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	if _, err := New([]models.FeedDescriptor{{ID: "a", URL: "u"}, {ID: "a", URL: "v"}}); err == nil {
		t.Error("Expected duplicate id error")
	}
	if _, err := New([]models.FeedDescriptor{{ID: "a"}}); err == nil {
		t.Error("Expected missing url error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	doc := "feeds:\n  - id: local\n    name: Local\n    url: http://localhost/rss\n    category: Test\n    country: Nowhere\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if f, ok := c.Get("local"); !ok || f.URL != "http://localhost/rss" {
		t.Errorf("Unexpected feed: %+v", f)
	}
}
