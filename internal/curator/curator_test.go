package curator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/avbell/easel/internal/config"
	"github.com/avbell/easel/internal/scoring"
	"github.com/avbell/easel/internal/store"
)

// stubSearcher returns perQuery-capped batches of unique candidates and
// counts calls.
type stubSearcher struct {
	perQuery int
	err      error
	calls    int
	next     int
}

func (s *stubSearcher) SearchCandidates(ctx context.Context, query string, perPage int) ([]store.CuratedImage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	n := s.perQuery
	if perPage < n {
		n = perPage
	}
	out := make([]store.CuratedImage, n)
	for i := range out {
		s.next++
		out[i] = store.CuratedImage{
			ProviderID:  fmt.Sprintf("pexels-%d", s.next),
			Description: "candidate for " + query,
			URL:         "https://example.com/full.jpg",
		}
	}
	return out, nil
}

// stubExpander returns a fixed query list.
type stubExpander struct {
	queries []string
}

func (e *stubExpander) Expand(ctx context.Context, theme string, fresh bool) []string {
	return e.queries
}

// passFilter keeps everything.
type passFilter struct{}

func (passFilter) Apply(ctx context.Context, theme string, candidates []store.CuratedImage) []store.CuratedImage {
	return candidates
}

func newTestCurator(t *testing.T, searcher Searcher) (*Curator, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig().Curation
	selector := scoring.NewWithRand(st, cfg, rand.New(rand.NewSource(42)))
	expander := &stubExpander{queries: []string{"q1", "q2", "q3", "q4"}}

	return New(st, searcher, expander, passFilter{}, selector, cfg.ExcludeRecentDays), st
}

func TestCurateContractViolations(t *testing.T) {
	c, _ := newTestCurator(t, &stubSearcher{perQuery: 5})
	ctx := context.Background()

	if _, err := c.Curate(ctx, "  ", 10, false); !errors.Is(err, ErrEmptyTheme) {
		t.Errorf("expected ErrEmptyTheme, got %v", err)
	}
	if _, err := c.Curate(ctx, "hands", 0, false); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("expected ErrInvalidCount, got %v", err)
	}
	if _, err := c.Curate(ctx, "hands", -3, false); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("expected ErrInvalidCount, got %v", err)
	}
}

func TestCurateEndToEnd(t *testing.T) {
	searcher := &stubSearcher{perQuery: 5}
	c, _ := newTestCurator(t, searcher)

	images, err := c.Curate(context.Background(), "hands", 12, false)
	if err != nil {
		t.Fatalf("Curate failed: %v", err)
	}
	if len(images) != 12 {
		t.Fatalf("expected 12 images, got %d", len(images))
	}

	seen := make(map[string]struct{})
	for _, img := range images {
		if _, dup := seen[img.ProviderID]; dup {
			t.Errorf("duplicate provider id %s", img.ProviderID)
		}
		seen[img.ProviderID] = struct{}{}
	}
}

func TestCurateSecondCallServedFromCache(t *testing.T) {
	searcher := &stubSearcher{perQuery: 5}
	c, _ := newTestCurator(t, searcher)
	ctx := context.Background()

	if _, err := c.Curate(ctx, "hands", 12, false); err != nil {
		t.Fatalf("first Curate failed: %v", err)
	}
	callsAfterFirst := searcher.calls
	if callsAfterFirst == 0 {
		t.Fatal("first curation should have searched")
	}

	images, err := c.Curate(ctx, "hands", 12, false)
	if err != nil {
		t.Fatalf("second Curate failed: %v", err)
	}
	if len(images) != 12 {
		t.Errorf("expected 12 cached images, got %d", len(images))
	}
	if searcher.calls != callsAfterFirst {
		t.Errorf("cache hit should issue no searches: %d -> %d", callsAfterFirst, searcher.calls)
	}
}

func TestCurateGracefulDegradation(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("provider down")}
	c, _ := newTestCurator(t, searcher)

	images, err := c.Curate(context.Background(), "anything", 10, false)
	if err != nil {
		t.Fatalf("provider outage must not surface: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("expected empty result, got %d", len(images))
	}
}

func TestCuratePartialQueryFailuresContinue(t *testing.T) {
	// Flaky searcher: fails every other query
	flaky := &flakySearcher{inner: &stubSearcher{perQuery: 5}}
	c, _ := newTestCurator(t, flaky)

	images, err := c.Curate(context.Background(), "hands", 8, false)
	if err != nil {
		t.Fatalf("Curate failed: %v", err)
	}
	if len(images) == 0 {
		t.Error("surviving queries should still produce images")
	}
}

type flakySearcher struct {
	inner *stubSearcher
	n     int
}

func (f *flakySearcher) SearchCandidates(ctx context.Context, query string, perPage int) ([]store.CuratedImage, error) {
	f.n++
	if f.n%2 == 1 {
		return nil, errors.New("transient failure")
	}
	return f.inner.SearchCandidates(ctx, query, perPage)
}

func TestCurateForceFreshSkipsAndNeverWritesCache(t *testing.T) {
	searcher := &stubSearcher{perQuery: 5}
	c, st := newTestCurator(t, searcher)
	ctx := context.Background()

	// Populate the cache with distinct images
	cached := []store.CuratedImage{
		{ProviderID: "cached-1", URL: "https://example.com/1.jpg"},
		{ProviderID: "cached-2", URL: "https://example.com/2.jpg"},
		{ProviderID: "cached-3", URL: "https://example.com/3.jpg"},
	}
	if err := st.SaveTheme("hands", []string{"old query"}, cached); err != nil {
		t.Fatalf("SaveTheme failed: %v", err)
	}

	images, err := c.Curate(ctx, "hands", 3, true)
	if err != nil {
		t.Fatalf("Curate failed: %v", err)
	}
	for _, img := range images {
		for _, old := range cached {
			if img.ProviderID == old.ProviderID {
				t.Errorf("force-fresh returned cached image %s", img.ProviderID)
			}
		}
	}

	// The fetched images must not have been persisted
	after, err := st.GetTheme("hands")
	if err != nil {
		t.Fatalf("GetTheme failed: %v", err)
	}
	if len(after.Images) != len(cached) {
		t.Errorf("force-fresh wrote to the cache: %d -> %d images", len(cached), len(after.Images))
	}
	if len(after.Queries) != 1 || after.Queries[0] != "old query" {
		t.Errorf("force-fresh replaced cached queries: %v", after.Queries)
	}
}

func TestCurateExcludesRecentlyShown(t *testing.T) {
	searcher := &stubSearcher{perQuery: 5}
	c, st := newTestCurator(t, searcher)
	ctx := context.Background()

	if _, err := c.Curate(ctx, "hands", 10, false); err != nil {
		t.Fatalf("first Curate failed: %v", err)
	}

	// Show three of the cached images in a session just now
	shownIDs := []string{"pexels-1", "pexels-2", "pexels-3"}
	sessionID, err := st.CreateSession("hands", 120, len(shownIDs))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := st.AddSessionImages(sessionID, shownIDs); err != nil {
		t.Fatalf("AddSessionImages failed: %v", err)
	}

	images, err := c.Curate(ctx, "hands", 5, false)
	if err != nil {
		t.Fatalf("second Curate failed: %v", err)
	}
	for _, img := range images {
		for _, shown := range shownIDs {
			if img.ProviderID == shown {
				t.Errorf("recently shown image %s was reselected", shown)
			}
		}
	}
}

// fixedSearcher returns the same candidates for every query.
type fixedSearcher struct {
	images []store.CuratedImage
}

func (f *fixedSearcher) SearchCandidates(ctx context.Context, query string, perPage int) ([]store.CuratedImage, error) {
	out := make([]store.CuratedImage, len(f.images))
	copy(out, f.images)
	return out, nil
}

func TestCurateFreshCandidatesCarryStoredScores(t *testing.T) {
	searcher := &fixedSearcher{images: []store.CuratedImage{
		{ProviderID: "pexels-good", URL: "https://example.com/good.jpg"},
		{ProviderID: "pexels-bad", URL: "https://example.com/bad.jpg"},
	}}
	c, st := newTestCurator(t, searcher)
	ctx := context.Background()

	// Dislike one image repeatedly during earlier fresh sessions; nothing
	// was ever written to the theme cache for it.
	cfg := config.DefaultConfig().Curation
	scorer := scoring.NewWithRand(st, cfg, rand.New(rand.NewSource(1)))
	for i := 0; i < 20; i++ {
		if _, err := scorer.RecordNegative("pexels-bad", "hands"); err != nil {
			t.Fatalf("RecordNegative failed: %v", err)
		}
	}

	// Re-fetching the image must surface its stored history, not defaults
	images, err := c.Curate(ctx, "hands", 2, true)
	if err != nil {
		t.Fatalf("Curate failed: %v", err)
	}
	for _, img := range images {
		if img.ProviderID == "pexels-bad" {
			if img.Score != 0.1 {
				t.Errorf("stored score not applied: got %v, want 0.1", img.Score)
			}
			if img.TimesShown != 20 {
				t.Errorf("stored times_shown not applied: got %d, want 20", img.TimesShown)
			}
		}
	}

	// Weighted draw: bad = 0.1 + 0.1 never-used bonus = 0.2 vs
	// good = 1.0 + 0.1 + 0.1 = 1.2, so bad should win roughly 14% of
	// single-image curations, nowhere near an even split
	badPicks := 0
	const trials = 500
	for i := 0; i < trials; i++ {
		picked, err := c.Curate(ctx, "hands", 1, true)
		if err != nil {
			t.Fatalf("Curate failed: %v", err)
		}
		if len(picked) != 1 {
			t.Fatalf("expected 1 image, got %d", len(picked))
		}
		if picked[0].ProviderID == "pexels-bad" {
			badPicks++
		}
	}
	if badPicks > trials/3 {
		t.Errorf("floored-score image picked %d/%d times; stored score is being ignored", badPicks, trials)
	}
}

func TestCurateSelectionHook(t *testing.T) {
	searcher := &stubSearcher{perQuery: 5}
	c, _ := newTestCurator(t, searcher)

	var gotTheme string
	var gotCount int
	c.SetOnSelected(func(theme string, images []store.CuratedImage) {
		gotTheme = theme
		gotCount = len(images)
	})

	if _, err := c.Curate(context.Background(), "hands", 6, false); err != nil {
		t.Fatalf("Curate failed: %v", err)
	}
	if gotTheme != "hands" || gotCount != 6 {
		t.Errorf("hook not invoked with selection: theme=%q count=%d", gotTheme, gotCount)
	}
}
