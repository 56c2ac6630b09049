package dedup

import (
	"strings"
	"testing"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips scheme and www", "https://www.example.com/post", "example.com/post"},
		{"strips trailing slash", "https://example.com/post/", "example.com/post"},
		{"drops tracking params", "https://example.com/a?utm_source=x&utm_medium=rss", "example.com/a"},
		{"drops ref and source", "https://example.com/a?ref=hn&source=feed", "example.com/a"},
		{"keeps meaningful params sorted", "https://example.com/a?page=2&id=7", "example.com/a?id=7&page=2"},
		{"lowercases host only", "HTTPS://Example.COM/Post", "example.com/Post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLEquivalence(t *testing.T) {
	a := NormalizeURL("http://www.example.com/a?utm_source=x")
	b := NormalizeURL("https://example.com/a/")
	if a != b {
		t.Errorf("expected equivalent normalization, got %q and %q", a, b)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and collapse", "  Go  1.25   Released ", "go 1.25 released"},
		{"strips breaking prefix", "BREAKING: OpenAI ships new model", "openai ships new model"},
		{"strips source suffix", "Rust stabilizes async traits - The Register", "rust stabilizes async traits"},
		{"short title keeps dash", "A - B", "a - b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	if got := similarity("identical", "identical"); got != 1 {
		t.Errorf("identical strings should score 1, got %v", got)
	}
	if got := similarity("abcdef", "uvwxyz"); got != 0 {
		t.Errorf("disjoint strings should score 0, got %v", got)
	}
	got := similarity("go 1.25 released with new gc", "go 1.25 released with a new gc")
	if got < 0.85 {
		t.Errorf("near-identical titles should clear the threshold, got %v", got)
	}
}

func TestCheckDetectsURLDuplicate(t *testing.T) {
	d := New(0.85)

	first := d.Check(models.CollectedItem{Title: "A story", URL: "https://www.example.com/a?utm_source=x"})
	if first.Duplicate {
		t.Fatal("first occurrence flagged as duplicate")
	}

	second := d.Check(models.CollectedItem{Title: "Totally different headline", URL: "https://example.com/a/"})
	if !second.Duplicate || second.Reason != ReasonDuplicateURL {
		t.Fatalf("expected URL duplicate, got %+v", second)
	}
}

func TestCheckDetectsSimilarTitle(t *testing.T) {
	d := New(0.85)

	d.Check(models.CollectedItem{Title: "Go 1.25 released with new garbage collector", URL: "https://example.com/1"})

	res := d.Check(models.CollectedItem{Title: "Go 1.25 released with a new garbage collector", URL: "https://example.com/2"})
	if !res.Duplicate || !strings.HasPrefix(res.Reason, "Similar title") {
		t.Fatalf("expected similar-title duplicate, got %+v", res)
	}
	if res.SimilarTo == "" {
		t.Fatal("SimilarTo not populated")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	items := []models.CollectedItem{
		{Title: "First story", URL: "https://example.com/1"},
		{Title: "Second story", URL: "https://example.com/2"},
		{Title: "First story", URL: "https://example.com/1"},
	}

	d := New(0.85)
	unique, dups := d.Run(items)
	if len(unique) != 2 || len(dups) != 1 {
		t.Fatalf("expected 2 unique and 1 duplicate, got %d and %d", len(unique), len(dups))
	}

	// Running the surviving set through a fresh instance changes nothing.
	again, dups2 := New(0.85).Run(unique)
	if len(again) != len(unique) || len(dups2) != 0 {
		t.Fatalf("dedup of deduped output should be a no-op, got %d unique, %d duplicates", len(again), len(dups2))
	}
}

func TestSeedFlagsExistingCorpus(t *testing.T) {
	d := New(0.85)
	d.Seed([]models.RawItem{{Title: "Stored story", URL: "https://example.com/stored"}})

	res := d.Check(models.CollectedItem{Title: "Anything", URL: "https://example.com/stored?utm_campaign=mail"})
	if !res.Duplicate {
		t.Fatal("seeded URL not recognized")
	}
}
