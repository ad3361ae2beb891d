package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ScoreStats is the stored feedback state for one (image, theme) pair.
type ScoreStats struct {
	Score      float64
	TimesShown int
	LastShown  *time.Time
}

// GetScoreStats returns the score row for an (image, theme) pair.
// found is false when the pair was never tracked; the returned stats then
// carry the defaults (score 1.0, never shown).
func (s *Store) GetScoreStats(providerID, theme string) (ScoreStats, bool, error) {
	themeKey := NormalizeTheme(theme)

	var stats ScoreStats
	var lastShown sql.NullTime
	err := s.db.QueryRow(`
		SELECT score, times_shown, last_shown
		FROM image_theme_scores
		WHERE provider_id = ? AND theme = ?
	`, providerID, themeKey).Scan(&stats.Score, &stats.TimesShown, &lastShown)
	if err == sql.ErrNoRows {
		return ScoreStats{Score: 1.0}, false, nil
	}
	if err != nil {
		return ScoreStats{Score: 1.0}, false, fmt.Errorf("query score: %w", err)
	}

	if lastShown.Valid {
		t := lastShown.Time
		stats.LastShown = &t
	}
	return stats, true, nil
}

// SetScore upserts the score for an (image, theme) pair, bumping
// times_shown and refreshing last_shown. Callers compute the new score;
// the store only persists it.
func (s *Store) SetScore(providerID, theme string, score float64) error {
	themeKey := NormalizeTheme(theme)

	_, err := s.db.Exec(`
		INSERT INTO image_theme_scores (provider_id, theme, score, times_shown, last_shown)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(provider_id, theme) DO UPDATE SET
			score = excluded.score,
			times_shown = times_shown + 1,
			last_shown = CURRENT_TIMESTAMP
	`, providerID, themeKey, score)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// TouchScore records that an image was shown without explicit feedback:
// times_shown is bumped and the score is left alone (1.0 on first insert).
func (s *Store) TouchScore(providerID, theme string) error {
	themeKey := NormalizeTheme(theme)

	_, err := s.db.Exec(`
		INSERT INTO image_theme_scores (provider_id, theme, score, times_shown, last_shown)
		VALUES (?, ?, 1.0, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(provider_id, theme) DO UPDATE SET
			times_shown = times_shown + 1,
			last_shown = CURRENT_TIMESTAMP
	`, providerID, themeKey)
	if err != nil {
		return fmt.Errorf("touch score: %w", err)
	}
	return nil
}

// ScoresFor returns the stored score rows for the given ids under a theme.
// Pairs with no row are simply absent from the result map.
func (s *Store) ScoresFor(providerIDs []string, theme string) (map[string]ScoreStats, error) {
	if len(providerIDs) == 0 {
		return map[string]ScoreStats{}, nil
	}
	themeKey := NormalizeTheme(theme)

	placeholders := strings.Repeat("?,", len(providerIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(providerIDs)+1)
	for _, id := range providerIDs {
		args = append(args, id)
	}
	args = append(args, themeKey)

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT provider_id, score, times_shown, last_shown
		FROM image_theme_scores
		WHERE provider_id IN (%s) AND theme = ?
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	result := make(map[string]ScoreStats)
	for rows.Next() {
		var id string
		var stats ScoreStats
		var lastShown sql.NullTime
		if err := rows.Scan(&id, &stats.Score, &stats.TimesShown, &lastShown); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if lastShown.Valid {
			t := lastShown.Time
			stats.LastShown = &t
		}
		result[id] = stats
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return result, nil
}

// LowScoredImages returns provider ids whose score for the theme has
// dropped below threshold.
func (s *Store) LowScoredImages(theme string, threshold float64) ([]string, error) {
	themeKey := NormalizeTheme(theme)

	rows, err := s.db.Query(`
		SELECT provider_id FROM image_theme_scores
		WHERE theme = ? AND score < ?
	`, themeKey, threshold)
	if err != nil {
		return nil, fmt.Errorf("query low scores: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan low score id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResetScores restores every score for a theme to the default 1.0.
func (s *Store) ResetScores(theme string) error {
	themeKey := NormalizeTheme(theme)

	_, err := s.db.Exec("UPDATE image_theme_scores SET score = 1.0 WHERE theme = ?", themeKey)
	if err != nil {
		return fmt.Errorf("reset scores: %w", err)
	}
	return nil
}
