// Package query turns a practice theme into a set of concrete image search
// queries. Known themes come from a built-in expansion table; unknown themes
// go through an LLM generator with a deterministic fallback, so expansion
// always produces at least one usable query.
package query

import (
	"context"
	"strings"
	"sync"

	"github.com/avbell/easel/internal/brain"
	"github.com/avbell/easel/internal/logging"
)

// MaxQueries caps how many search queries a single theme expands to.
const MaxQueries = 6

// maxQueryLen is the per-query length limit. Longer queries add noise
// without improving search results.
const maxQueryLen = 60

// expansion pairs a theme keyword with its canned search queries. Kept as a
// slice so substring matching walks entries in a fixed order.
type expansion struct {
	theme   string
	queries []string
}

// builtinExpansions covers the themes drawing practice sessions ask for most
// often. Exact matches win; otherwise the first entry whose theme contains
// (or is contained by) the requested theme is used.
var builtinExpansions = []expansion{
	{"animals", []string{
		"wild animal portrait", "animal in natural habitat",
		"bird closeup", "big cat wildlife", "horse in motion",
	}},
	{"portraits", []string{
		"portrait photography face", "expressive human face",
		"elderly person portrait", "profile portrait natural light",
	}},
	{"hands", []string{
		"hands closeup gesture", "hands holding object",
		"interlocked fingers", "hand reaching",
	}},
	{"figure", []string{
		"full body pose standing", "dancer mid movement",
		"person sitting natural pose", "athlete in action",
	}},
	{"landscapes", []string{
		"mountain landscape vista", "forest path morning light",
		"coastal cliffs ocean", "desert dunes sunset",
	}},
	{"architecture", []string{
		"historic building facade", "modern architecture geometric",
		"cathedral interior arches", "narrow old town street",
	}},
	{"still life", []string{
		"fruit bowl table arrangement", "vintage objects tabletop",
		"flowers in vase window light", "kitchen utensils rustic",
	}},
	{"nature", []string{
		"macro leaf texture", "tree bark closeup",
		"wildflowers meadow", "river rocks stream",
	}},
	{"vehicles", []string{
		"classic car three quarter view", "motorcycle detail",
		"bicycle leaning against wall", "sailboat on water",
	}},
	{"birds", []string{
		"bird of prey portrait", "songbird on branch",
		"heron in water", "owl closeup eyes",
	}},
	{"trees", []string{
		"lone tree in field", "gnarled old tree trunk",
		"forest canopy looking up", "bare winter tree silhouette",
	}},
	{"flowers", []string{
		"single flower macro", "rose closeup petals",
		"sunflower field", "wilting flower still life",
	}},
	{"water", []string{
		"ocean wave breaking", "water droplets macro",
		"reflection in still lake", "waterfall long exposure",
	}},
	{"faces", []string{
		"expressive human face", "face in dramatic lighting",
		"child laughing portrait", "weathered face closeup",
	}},
	{"anatomy", []string{
		"muscular back anatomy", "arm flexing muscles",
		"human torso studio light", "shoulder and neck detail",
	}},
}

// Generator is the LLM capability the expander uses for themes outside the
// built-in table. brain.Provider satisfies it.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, req brain.Request) (brain.Response, error)
}

// Expander expands themes into search queries. Safe for concurrent use.
type Expander struct {
	gen Generator

	mu    sync.Mutex
	cache map[string][]string // generated expansions, keyed by normalized theme
}

// NewExpander creates an expander. gen may be nil, in which case unknown
// themes fall back to the theme itself.
func NewExpander(gen Generator) *Expander {
	return &Expander{
		gen:   gen,
		cache: make(map[string][]string),
	}
}

// Expand returns search queries for the theme. fresh bypasses both the
// built-in table and the generation cache so repeated curation of the same
// theme can surface different material.
//
// Expand never fails: when generation is unavailable or produces garbage,
// the theme itself is the query.
func (e *Expander) Expand(ctx context.Context, theme string, fresh bool) []string {
	key := strings.ToLower(strings.TrimSpace(theme))
	if key == "" {
		return nil
	}

	if !fresh {
		if queries, ok := lookupBuiltin(key); ok {
			logging.Debug("Theme expanded from built-in table", "theme", key, "queries", len(queries))
			return capQueries(queries)
		}

		e.mu.Lock()
		cached, ok := e.cache[key]
		e.mu.Unlock()
		if ok {
			return capQueries(cached)
		}
	}

	queries := e.generate(ctx, key, fresh)
	if len(queries) < 2 {
		logging.Debug("Falling back to theme as query", "theme", key)
		return []string{truncate(key)}
	}

	// Fresh expansions stay out of the cache so an explicit "something new"
	// request cannot feed later normal lookups.
	if !fresh {
		e.mu.Lock()
		e.cache[key] = queries
		e.mu.Unlock()
	}

	return capQueries(queries)
}

// ClearCache drops all generated expansions.
func (e *Expander) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string][]string)
	e.mu.Unlock()
}

func lookupBuiltin(key string) ([]string, bool) {
	for _, exp := range builtinExpansions {
		if exp.theme == key {
			return exp.queries, true
		}
	}
	for _, exp := range builtinExpansions {
		if strings.Contains(key, exp.theme) || strings.Contains(exp.theme, key) {
			return exp.queries, true
		}
	}
	return nil, false
}

const expandSystemPrompt = `You generate image search queries for drawing reference photos.
Given a theme, produce diverse, concrete search queries that would find good
photographic references for an artist practicing that subject.
Respond with one query per line, nothing else. No numbering, no commentary.`

func (e *Expander) generate(ctx context.Context, theme string, fresh bool) []string {
	if e.gen == nil || !e.gen.Available() {
		return nil
	}

	userPrompt := "Theme: " + theme + "\nGenerate 4-6 search queries."
	if fresh {
		userPrompt += "\nAvoid the most obvious queries; favor unusual angles, settings, and compositions."
	}

	resp, err := e.gen.Generate(ctx, brain.Request{
		SystemPrompt: expandSystemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    256,
	})
	if err != nil {
		logging.Warn("Query generation failed", "theme", theme, "error", err)
		return nil
	}

	return parseQueries(resp.Content)
}

// parseQueries extracts cleaned queries from LLM output, tolerating bullets,
// numbering, and surrounding quotes.
func parseQueries(content string) []string {
	var queries []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		line = strings.Trim(line, `"'`)
		if line == "" {
			continue
		}
		queries = append(queries, truncate(line))
	}
	return queries
}

func truncate(q string) string {
	if len(q) > maxQueryLen {
		q = strings.TrimSpace(q[:maxQueryLen])
	}
	return q
}

func capQueries(queries []string) []string {
	if len(queries) > MaxQueries {
		return queries[:MaxQueries]
	}
	return queries
}
