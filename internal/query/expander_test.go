package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avbell/easel/internal/brain"
)

// fakeGen is a scripted Generator.
type fakeGen struct {
	content   string
	err       error
	available bool
	calls     int
}

func (f *fakeGen) Available() bool { return f.available }

func (f *fakeGen) Generate(ctx context.Context, req brain.Request) (brain.Response, error) {
	f.calls++
	if f.err != nil {
		return brain.Response{}, f.err
	}
	return brain.Response{Content: f.content, Model: "fake"}, nil
}

func TestExpandBuiltinExactMatch(t *testing.T) {
	e := NewExpander(nil)

	queries := e.Expand(context.Background(), "Hands", false)
	if len(queries) < 2 {
		t.Fatalf("expected built-in expansion, got %v", queries)
	}
	if queries[0] != "hands closeup gesture" {
		t.Errorf("expected table entry first, got %q", queries[0])
	}
}

func TestExpandBuiltinSubstringMatch(t *testing.T) {
	e := NewExpander(nil)

	// "drawing hands" contains the table key "hands"
	queries := e.Expand(context.Background(), "drawing hands", false)
	if len(queries) < 2 {
		t.Fatalf("expected substring expansion, got %v", queries)
	}
}

func TestExpandFallbackWithoutGenerator(t *testing.T) {
	e := NewExpander(nil)

	queries := e.Expand(context.Background(), "Victorian Streetlamps", false)
	if len(queries) != 1 || queries[0] != "victorian streetlamps" {
		t.Errorf("expected theme-as-query fallback, got %v", queries)
	}
}

func TestExpandEmptyTheme(t *testing.T) {
	e := NewExpander(nil)

	if queries := e.Expand(context.Background(), "   ", false); queries != nil {
		t.Errorf("expected nil for blank theme, got %v", queries)
	}
}

func TestExpandGeneratedQueries(t *testing.T) {
	gen := &fakeGen{
		available: true,
		content:   "1. old lighthouse at dusk\n2. \"lighthouse spiral staircase\"\n- lighthouse keeper cottage",
	}
	e := NewExpander(gen)

	queries := e.Expand(context.Background(), "lighthouses", false)
	if len(queries) != 3 {
		t.Fatalf("expected 3 parsed queries, got %v", queries)
	}
	if queries[0] != "old lighthouse at dusk" {
		t.Errorf("numbering not stripped: %q", queries[0])
	}
	if queries[1] != "lighthouse spiral staircase" {
		t.Errorf("quotes not stripped: %q", queries[1])
	}
}

func TestExpandRejectsSingleQuery(t *testing.T) {
	gen := &fakeGen{available: true, content: "just one query"}
	e := NewExpander(gen)

	queries := e.Expand(context.Background(), "lighthouses", false)
	if len(queries) != 1 || queries[0] != "lighthouses" {
		t.Errorf("fewer than 2 generated queries must fall back, got %v", queries)
	}
}

func TestExpandGeneratorError(t *testing.T) {
	gen := &fakeGen{available: true, err: errors.New("api down")}
	e := NewExpander(gen)

	queries := e.Expand(context.Background(), "lighthouses", false)
	if len(queries) != 1 || queries[0] != "lighthouses" {
		t.Errorf("generator failure must fall back to theme, got %v", queries)
	}
}

func TestExpandTruncatesLongQueries(t *testing.T) {
	long := strings.Repeat("lighthouse ", 10)
	gen := &fakeGen{available: true, content: long + "\nsecond query"}
	e := NewExpander(gen)

	queries := e.Expand(context.Background(), "lighthouses", false)
	for _, q := range queries {
		if len(q) > maxQueryLen {
			t.Errorf("query exceeds %d chars: %q", maxQueryLen, q)
		}
	}
}

func TestExpandCapsQueryCount(t *testing.T) {
	gen := &fakeGen{available: true, content: "a\nb\nc\nd\ne\nf\ng\nh"}
	e := NewExpander(gen)

	queries := e.Expand(context.Background(), "lighthouses", false)
	if len(queries) > MaxQueries {
		t.Errorf("expected at most %d queries, got %d", MaxQueries, len(queries))
	}
}

func TestExpandCachesGeneratedQueries(t *testing.T) {
	gen := &fakeGen{available: true, content: "query one\nquery two"}
	e := NewExpander(gen)

	e.Expand(context.Background(), "lighthouses", false)
	e.Expand(context.Background(), "lighthouses", false)
	if gen.calls != 1 {
		t.Errorf("expected 1 generation call, got %d", gen.calls)
	}

	e.ClearCache()
	e.Expand(context.Background(), "lighthouses", false)
	if gen.calls != 2 {
		t.Errorf("expected regeneration after ClearCache, got %d calls", gen.calls)
	}
}

func TestExpandFreshBypassesTableAndCache(t *testing.T) {
	gen := &fakeGen{available: true, content: "unusual hands query\nanother hands query"}
	e := NewExpander(gen)

	// Warm the cache via a fresh call, then call fresh again
	e.Expand(context.Background(), "hands", true)
	if gen.calls != 1 {
		t.Fatalf("fresh mode must bypass the built-in table, got %d calls", gen.calls)
	}

	e.Expand(context.Background(), "hands", true)
	if gen.calls != 2 {
		t.Errorf("fresh mode must bypass the generation cache, got %d calls", gen.calls)
	}

	// Normal mode for a built-in theme never generates
	e.Expand(context.Background(), "hands", false)
	if gen.calls != 2 {
		t.Errorf("built-in theme should not generate, got %d calls", gen.calls)
	}
}
