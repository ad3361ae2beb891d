// Package scoring adapts image selection to user feedback. Each (image,
// theme) pair carries a bounded score; feedback nudges it multiplicatively
// and selection draws images with probability proportional to score plus
// freshness bonuses, without replacement.
package scoring

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/avbell/easel/internal/config"
	"github.com/avbell/easel/internal/logging"
	"github.com/avbell/easel/internal/store"
)

// Scorer applies feedback to stored scores and performs weighted selection.
//
// Score mutation methods hit the database and inherit its serialization;
// Select is pure over its inputs apart from the shared rng, which callers
// must not use concurrently.
type Scorer struct {
	store *store.Store
	cfg   config.CurationConfig
	rng   *rand.Rand
}

// New creates a scorer with a time-seeded rng.
func New(st *store.Store, cfg config.CurationConfig) *Scorer {
	return NewWithRand(st, cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a scorer with the given rng. Tests pass a seeded
// source to make selection reproducible.
func NewWithRand(st *store.Store, cfg config.CurationConfig, rng *rand.Rand) *Scorer {
	return &Scorer{store: st, cfg: cfg, rng: rng}
}

// Score returns the current score for an (image, theme) pair, 1.0 when the
// pair was never tracked.
func (sc *Scorer) Score(providerID, theme string) (float64, error) {
	stats, _, err := sc.store.GetScoreStats(providerID, theme)
	if err != nil {
		return 0, err
	}
	return stats.Score, nil
}

// RecordPositive boosts the pair's score. The first piece of feedback seeds
// the score at the boost factor itself; later feedback compounds, capped at
// the configured maximum.
func (sc *Scorer) RecordPositive(providerID, theme string) (float64, error) {
	stats, found, err := sc.store.GetScoreStats(providerID, theme)
	if err != nil {
		return 0, fmt.Errorf("record positive feedback: %w", err)
	}

	newScore := sc.cfg.PositiveBoost
	if found {
		newScore = stats.Score * sc.cfg.PositiveBoost
	}
	newScore = sc.clamp(newScore)

	if err := sc.store.SetScore(providerID, theme, newScore); err != nil {
		return 0, fmt.Errorf("record positive feedback: %w", err)
	}
	logging.Debug("Positive feedback", "image", providerID, "theme", theme, "score", newScore)
	return newScore, nil
}

// RecordNegative decays the pair's score, floored at the configured minimum.
func (sc *Scorer) RecordNegative(providerID, theme string) (float64, error) {
	stats, found, err := sc.store.GetScoreStats(providerID, theme)
	if err != nil {
		return 0, fmt.Errorf("record negative feedback: %w", err)
	}

	newScore := sc.cfg.NegativeDecay
	if found {
		newScore = stats.Score * sc.cfg.NegativeDecay
	}
	newScore = sc.clamp(newScore)

	if err := sc.store.SetScore(providerID, theme, newScore); err != nil {
		return 0, fmt.Errorf("record negative feedback: %w", err)
	}
	logging.Debug("Negative feedback", "image", providerID, "theme", theme, "score", newScore)
	return newScore, nil
}

// RecordShown marks an image as displayed without explicit feedback.
func (sc *Scorer) RecordShown(providerID, theme string) error {
	return sc.store.TouchScore(providerID, theme)
}

func (sc *Scorer) clamp(score float64) float64 {
	if score < sc.cfg.MinScore {
		return sc.cfg.MinScore
	}
	if score > sc.cfg.MaxScore {
		return sc.cfg.MaxScore
	}
	return score
}

// Select draws up to count images from candidates, weighted by score and
// freshness, without replacement. Candidates in exclude never appear.
// Returns fewer than count when the eligible pool is short - the caller
// decides whether that is acceptable.
func (sc *Scorer) Select(candidates []store.CuratedImage, count int, exclude map[string]struct{}) []store.CuratedImage {
	if count <= 0 {
		return nil
	}

	pool := make([]store.CuratedImage, 0, len(candidates))
	for _, img := range candidates {
		if _, skip := exclude[img.ProviderID]; skip {
			continue
		}
		pool = append(pool, img)
	}
	if len(pool) <= count {
		return pool
	}

	weights := make([]float64, len(pool))
	for i, img := range pool {
		weights[i] = sc.weight(img)
	}

	selected := make([]store.CuratedImage, 0, count)
	for len(selected) < count && len(pool) > 0 {
		idx := sc.draw(weights)
		selected = append(selected, pool[idx])

		last := len(pool) - 1
		pool[idx], pool[last] = pool[last], pool[idx]
		weights[idx], weights[last] = weights[last], weights[idx]
		pool = pool[:last]
		weights = weights[:last]
	}
	return selected
}

// weight is the sampling weight: the score plus a bonus for never having
// been shown under this theme and another for never having been used in any
// session. Stacking both keeps genuinely new material ahead of merely
// unscored material.
func (sc *Scorer) weight(img store.CuratedImage) float64 {
	w := img.Score
	if img.TimesShown == 0 {
		w += sc.cfg.FreshnessBonus
	}
	if img.TimesUsed == 0 {
		w += sc.cfg.FreshnessBonus
	}
	if w < sc.cfg.MinScore {
		w = sc.cfg.MinScore
	}
	return w
}

// draw picks an index with probability proportional to its weight, falling
// back to uniform when the total weight is not positive.
func (sc *Scorer) draw(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return sc.rng.Intn(len(weights))
	}

	target := sc.rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}
