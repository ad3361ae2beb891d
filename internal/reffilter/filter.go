// Package reffilter screens search results before they become drawing
// references. A cheap keyword pass rejects obvious non-photographic material;
// an optional LLM evaluator judges borderline suitability. Both stages fail
// open: a candidate is only dropped on positive evidence against it.
package reffilter

import (
	"context"
	"strings"
	"sync"

	"github.com/avbell/easel/internal/brain"
	"github.com/avbell/easel/internal/logging"
	"github.com/avbell/easel/internal/store"
)

// rejectTerms marks descriptions of material that is useless as a drawing
// reference regardless of theme.
var rejectTerms = []string{
	"logo",
	"icon",
	"screenshot",
	"graph",
	"chart",
	"diagram",
	"banner",
	"advertisement",
}

// Evaluator is the LLM capability used for suitability judgments.
// brain.Provider satisfies it.
type Evaluator interface {
	Available() bool
	Generate(ctx context.Context, req brain.Request) (brain.Response, error)
}

// Filter screens candidate images for a theme. Safe for concurrent use.
type Filter struct {
	eval Evaluator

	mu    sync.Mutex
	cache map[string]bool // verdicts keyed by theme + description prefix
}

// New creates a filter. eval may be nil to run keyword screening only.
func New(eval Evaluator) *Filter {
	return &Filter{
		eval:  eval,
		cache: make(map[string]bool),
	}
}

// Apply returns the candidates that survive screening, preserving order.
func (f *Filter) Apply(ctx context.Context, theme string, candidates []store.CuratedImage) []store.CuratedImage {
	kept := make([]store.CuratedImage, 0, len(candidates))
	for _, img := range candidates {
		if f.Accept(ctx, theme, img) {
			kept = append(kept, img)
		}
	}
	if dropped := len(candidates) - len(kept); dropped > 0 {
		logging.Debug("Filter dropped candidates", "theme", theme, "dropped", dropped, "kept", len(kept))
	}
	return kept
}

// Accept decides whether one candidate is usable as a reference for the
// theme. An empty description gives no evidence either way, so it passes.
func (f *Filter) Accept(ctx context.Context, theme string, img store.CuratedImage) bool {
	desc := strings.TrimSpace(img.Description)
	if desc == "" {
		return true
	}

	lower := strings.ToLower(desc)
	for _, term := range rejectTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}

	return f.evaluate(ctx, theme, desc)
}

// evaluate asks the LLM whether the description fits the theme. Verdicts are
// cached on theme plus a description prefix so repeated candidates from
// overlapping searches cost one call.
func (f *Filter) evaluate(ctx context.Context, theme string, desc string) bool {
	if f.eval == nil || !f.eval.Available() {
		return true
	}

	key := cacheKey(theme, desc)
	f.mu.Lock()
	verdict, ok := f.cache[key]
	f.mu.Unlock()
	if ok {
		return verdict
	}

	resp, err := f.eval.Generate(ctx, brain.Request{
		SystemPrompt: "You judge whether a photo makes a good drawing reference for a given theme. Answer with exactly YES or NO.",
		UserPrompt:   "Theme: " + theme + "\nPhoto description: " + desc,
		MaxTokens:    8,
	})
	if err != nil {
		logging.Warn("Suitability evaluation failed, accepting candidate", "theme", theme, "error", err)
		return true
	}

	verdict = !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(resp.Content)), "NO")

	f.mu.Lock()
	f.cache[key] = verdict
	f.mu.Unlock()

	return verdict
}

func cacheKey(theme, desc string) string {
	if len(desc) > 100 {
		desc = desc[:100]
	}
	return strings.ToLower(theme) + "|" + strings.ToLower(desc)
}
