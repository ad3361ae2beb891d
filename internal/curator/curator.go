// Package curator composes query expansion, live search, filtering, scoring,
// and the cache into the end-to-end "curate N images for a theme" operation.
//
// Curate degrades rather than fails: a dead provider, a cold cache, or a
// broken scorer each cost result quality, never an error. The only errors it
// returns are contract violations by the caller.
package curator

import (
	"context"
	"errors"
	"strings"

	"github.com/avbell/easel/internal/logging"
	"github.com/avbell/easel/internal/store"
)

// Contract violations. Everything else degrades silently.
var (
	ErrEmptyTheme   = errors.New("theme must not be empty")
	ErrInvalidCount = errors.New("target count must be positive")
)

// maxNewCandidates soft-caps how many new images one curation pass collects.
const maxNewCandidates = 15

// Searcher fetches candidate images for one search query.
// pexels.Client satisfies it.
type Searcher interface {
	SearchCandidates(ctx context.Context, query string, perPage int) ([]store.CuratedImage, error)
}

// Expander turns a theme into search queries. query.Expander satisfies it.
type Expander interface {
	Expand(ctx context.Context, theme string, fresh bool) []string
}

// Filter screens candidates for reference suitability.
// reffilter.Filter satisfies it.
type Filter interface {
	Apply(ctx context.Context, theme string, candidates []store.CuratedImage) []store.CuratedImage
}

// Selector performs the weighted draw over a candidate pool.
// scoring.Scorer satisfies it.
type Selector interface {
	Select(candidates []store.CuratedImage, count int, exclude map[string]struct{}) []store.CuratedImage
}

// Curator orchestrates one curation request at a time. It holds no state
// between calls beyond the injected collaborators.
type Curator struct {
	store    *store.Store
	searcher Searcher
	expander Expander
	filter   Filter
	selector Selector

	excludeRecentDays int
	onSelected        func(theme string, images []store.CuratedImage)
}

// New creates a curator.
func New(st *store.Store, searcher Searcher, expander Expander, filter Filter, selector Selector, excludeRecentDays int) *Curator {
	if excludeRecentDays <= 0 {
		excludeRecentDays = 3
	}
	return &Curator{
		store:             st,
		searcher:          searcher,
		expander:          expander,
		filter:            filter,
		selector:          selector,
		excludeRecentDays: excludeRecentDays,
	}
}

// SetOnSelected registers a hook invoked with each curation's final
// selection. Session startup uses it to stage the candidate pool.
func (c *Curator) SetOnSelected(fn func(theme string, images []store.CuratedImage)) {
	c.onSelected = fn
}

// Curate assembles up to targetCount reference images for the theme.
//
// forceFresh bypasses the cache on both ends: cached images are not
// considered and newly fetched ones are not persisted, so an explicit "show
// me something new" request cannot contaminate the theme's learned state.
func (c *Curator) Curate(ctx context.Context, theme string, targetCount int, forceFresh bool) ([]store.CuratedImage, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, ErrEmptyTheme
	}
	if targetCount <= 0 {
		return nil, ErrInvalidCount
	}

	exclude := c.recentlyShown()

	var available []store.CuratedImage
	if !forceFresh {
		available = c.cachedAvailable(theme, exclude)
		if len(available) >= targetCount {
			logging.Info("Curation served from cache", "theme", theme, "cached", len(available))
			return c.finish(theme, available, targetCount, exclude), nil
		}
	}

	needed := targetCount - len(available)
	queries := c.expander.Expand(ctx, theme, forceFresh)
	fresh := c.collectFresh(ctx, theme, queries, needed, available, exclude)
	c.hydrateScores(theme, fresh)

	pool := append(available, fresh...)
	selected := c.finish(theme, pool, targetCount, exclude)

	if len(fresh) > 0 && !forceFresh {
		if err := c.store.SaveTheme(theme, queries, pool); err != nil {
			logging.Warn("Failed to cache curation results", "theme", theme, "error", err)
		}
	}

	logging.Info("Curation complete", "theme", theme,
		"requested", targetCount, "selected", len(selected),
		"cached", len(available), "fetched", len(fresh), "fresh", forceFresh)
	return selected, nil
}

// recentlyShown returns the recency-exclusion set, empty on store failure.
func (c *Curator) recentlyShown() map[string]struct{} {
	shown, err := c.store.ShownRecently(c.excludeRecentDays)
	if err != nil {
		logging.Warn("Failed to load recently shown images", "error", err)
		return map[string]struct{}{}
	}
	return shown
}

// cachedAvailable returns the theme's cached images minus the exclusion set.
func (c *Curator) cachedAvailable(theme string, exclude map[string]struct{}) []store.CuratedImage {
	images, err := c.store.GetImagesForTheme(theme)
	if err != nil {
		logging.Warn("Failed to read theme cache", "theme", theme, "error", err)
		return nil
	}

	available := images[:0:0]
	for _, img := range images {
		if _, skip := exclude[img.ProviderID]; !skip {
			available = append(available, img)
		}
	}
	return available
}

// collectFresh fetches and filters new candidates across the queries,
// deduplicating against the cache-derived pool and within the pass. One
// failed query never aborts the others.
func (c *Curator) collectFresh(ctx context.Context, theme string, queries []string, needed int, available []store.CuratedImage, exclude map[string]struct{}) []store.CuratedImage {
	if len(queries) == 0 || needed <= 0 {
		return nil
	}

	perQuery := 2*needed/len(queries) + 3
	if perQuery < 10 {
		perQuery = 10
	}

	seen := make(map[string]struct{}, len(available))
	for _, img := range available {
		seen[img.ProviderID] = struct{}{}
	}

	var fresh []store.CuratedImage
	for _, q := range queries {
		if len(fresh) >= maxNewCandidates {
			break
		}

		candidates, err := c.searcher.SearchCandidates(ctx, q, perQuery)
		if err != nil {
			logging.Warn("Search query failed, continuing", "query", q, "error", err)
			continue
		}

		for _, img := range c.filter.Apply(ctx, theme, candidates) {
			if _, dup := seen[img.ProviderID]; dup {
				continue
			}
			if _, recent := exclude[img.ProviderID]; recent {
				continue
			}
			seen[img.ProviderID] = struct{}{}
			// Unseen pairs score the default until feedback arrives
			if img.Score == 0 {
				img.Score = 1.0
			}
			fresh = append(fresh, img)
			if len(fresh) >= maxNewCandidates {
				break
			}
		}
	}
	return fresh
}

// hydrateScores overlays stored per-theme score state onto candidates that
// did not come through the cache join. An image fetched live can still carry
// feedback history - earlier force-fresh sessions score images the cache
// never saw - and selection must weigh that history, not the defaults.
func (c *Curator) hydrateScores(theme string, imgs []store.CuratedImage) {
	if len(imgs) == 0 {
		return
	}

	ids := make([]string, len(imgs))
	for i, img := range imgs {
		ids[i] = img.ProviderID
	}

	stats, err := c.store.ScoresFor(ids, theme)
	if err != nil {
		logging.Warn("Failed to load stored scores", "theme", theme, "error", err)
		return
	}

	for i := range imgs {
		if st, ok := stats[imgs[i].ProviderID]; ok {
			imgs[i].Score = st.Score
			imgs[i].TimesShown = st.TimesShown
		}
	}
}

// finish runs the weighted selection over the pool and fires the selection
// hook. The pool is already exclusion-filtered; passing the set again keeps
// the invariant even if a caller hands in an unfiltered pool.
func (c *Curator) finish(theme string, pool []store.CuratedImage, targetCount int, exclude map[string]struct{}) []store.CuratedImage {
	selected := c.selector.Select(pool, targetCount, exclude)
	if c.onSelected != nil && len(selected) > 0 {
		c.onSelected(theme, selected)
	}
	return selected
}
