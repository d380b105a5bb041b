package utils

import (
	"regexp"
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	pattern := regexp.MustCompile(`^breaking-market-update-[a-z0-9]{5}$`)

	first := Slug("Breaking: Market Update!!")
	second := Slug("Breaking: Market Update!!")

	if !pattern.MatchString(first) {
		t.Errorf("Slug %q does not match %s", first, pattern)
	}
	if !pattern.MatchString(second) {
		t.Errorf("Slug %q does not match %s", second, pattern)
	}
	if first == second {
		t.Errorf("Expected two different slugs, got %q twice", first)
	}
}

func TestSlugNormalization(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"  Harga   Beras Naik  ", "harga-beras-naik-"},
		{"IHSG 7.000: Apa Artinya?", "ihsg-7000-apa-artinya-"},
		{"snake_case stays", "snake_case-stays-"},
		{"!!!", "article-"},
	}

	for _, tt := range tests {
		got := Slug(tt.title)
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("Slug(%q) = %q, want prefix %q", tt.title, got, tt.want)
		}
		if len(got) != len(tt.want)+5 {
			t.Errorf("Slug(%q) = %q, want a 5 character suffix", tt.title, got)
		}
	}
}

func TestSlugLongTitle(t *testing.T) {
	got := Slug(strings.Repeat("kata ", 60))
	if len(got) > slugMaxBase+1+slugSuffixLength {
		t.Errorf("Slug length %d exceeds limit", len(got))
	}
}

func TestNewTaskKey(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]{24}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		key, err := NewTaskKey()
		if err != nil {
			t.Fatalf("NewTaskKey returned error: %v", err)
		}
		if !pattern.MatchString(key) {
			t.Fatalf("Task key %q does not match %s", key, pattern)
		}
		if seen[key] {
			t.Fatalf("Duplicate task key %q", key)
		}
		seen[key] = true
	}
}

func TestHash(t *testing.T) {
	a := Hash("https://example.com/a")
	if len(a) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(a))
	}
	if a != Hash("https://example.com/a") {
		t.Error("Expected hash to be deterministic")
	}
	if a == Hash("https://example.com/b") {
		t.Error("Expected different inputs to hash differently")
	}
}
