package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avbell/easel/internal/logging"
)

// CuratedImage is a reference photo that passed filtering and is associated
// with a theme. ProviderID is the canonical identifier - deduplication and
// scoring key on it.
type CuratedImage struct {
	ProviderID  string
	Description string
	URL         string
	Thumbnail   string
	Attribution string
	TimesUsed   int
	LastUsed    *time.Time

	// Score and TimesShown are populated by GetImagesForTheme from the
	// joined per-theme score row (1.0 / 0 when the image was never scored).
	Score      float64
	TimesShown int
}

// ThemeCache is a theme's cached query expansion plus its curated images.
type ThemeCache struct {
	Queries []string
	Images  []CuratedImage
}

// NormalizeTheme canonicalizes a theme string for use as a storage key.
func NormalizeTheme(theme string) string {
	return strings.ToLower(strings.TrimSpace(theme))
}

// GetTheme returns the cached queries and images for a theme, or nil if the
// theme is not cached.
//
// A theme with a query record but zero associated images counts as a cache
// miss - callers must be forced back to a live fetch rather than handed an
// empty set.
func (s *Store) GetTheme(theme string) (*ThemeCache, error) {
	themeKey := NormalizeTheme(theme)

	var queriesJSON string
	err := s.db.QueryRow("SELECT queries FROM theme_queries WHERE theme = ?", themeKey).Scan(&queriesJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query theme record: %w", err)
	}

	var queries []string
	if err := json.Unmarshal([]byte(queriesJSON), &queries); err != nil {
		return nil, fmt.Errorf("decode cached queries: %w", err)
	}

	images, err := s.themeImages(themeKey)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	return &ThemeCache{Queries: queries, Images: images}, nil
}

func (s *Store) themeImages(themeKey string) ([]CuratedImage, error) {
	rows, err := s.db.Query(`
		SELECT ci.provider_id, ci.description, ci.url, ci.thumbnail, ci.attribution, ci.times_used, ci.last_used
		FROM curated_images ci
		JOIN theme_images ti ON ci.provider_id = ti.provider_id
		WHERE ti.theme = ?
		ORDER BY ti.position
	`, themeKey)
	if err != nil {
		return nil, fmt.Errorf("query theme images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows, false)
}

// SaveTheme upserts the theme's query record (replacing queries entirely
// and refreshing created_at) and each image. Image upserts refresh only the
// descriptive fields - times_used and last_used survive re-curation.
//
// All writes happen in one transaction so a theme record can never point at
// image rows that were not written.
func (s *Store) SaveTheme(theme string, queries []string, images []CuratedImage) error {
	themeKey := NormalizeTheme(theme)

	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("encode queries: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback is a no-op after commit
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO theme_queries (theme, queries, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(theme) DO UPDATE SET
			queries = excluded.queries,
			created_at = CURRENT_TIMESTAMP
	`, themeKey, string(queriesJSON))
	if err != nil {
		return fmt.Errorf("upsert theme queries: %w", err)
	}

	imgStmt, err := tx.Prepare(`
		INSERT INTO curated_images (provider_id, description, url, thumbnail, attribution)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider_id) DO UPDATE SET
			description = excluded.description,
			url = excluded.url,
			thumbnail = excluded.thumbnail,
			attribution = excluded.attribution
	`)
	if err != nil {
		return fmt.Errorf("prepare image upsert: %w", err)
	}
	defer imgStmt.Close()

	mapStmt, err := tx.Prepare(`
		INSERT INTO theme_images (theme, provider_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(theme, provider_id) DO UPDATE SET position = excluded.position
	`)
	if err != nil {
		return fmt.Errorf("prepare theme mapping upsert: %w", err)
	}
	defer mapStmt.Close()

	for position, img := range images {
		if _, err := imgStmt.Exec(img.ProviderID, img.Description, img.URL, img.Thumbnail, img.Attribution); err != nil {
			return fmt.Errorf("upsert image %s: %w", img.ProviderID, err)
		}
		if _, err := mapStmt.Exec(themeKey, img.ProviderID, position); err != nil {
			return fmt.Errorf("upsert theme mapping %s: %w", img.ProviderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit theme save: %w", err)
	}

	logging.Debug("Theme cached", "theme", themeKey, "queries", len(queries), "images", len(images))
	return nil
}

// GetImagesForTheme returns the theme's cached images with their per-theme
// score and show count joined in. Images that were never scored for this
// theme get the default score 1.0.
func (s *Store) GetImagesForTheme(theme string) ([]CuratedImage, error) {
	themeKey := NormalizeTheme(theme)

	rows, err := s.db.Query(`
		SELECT ci.provider_id, ci.description, ci.url, ci.thumbnail, ci.attribution,
			ci.times_used, ci.last_used,
			COALESCE(its.score, 1.0), COALESCE(its.times_shown, 0)
		FROM curated_images ci
		JOIN theme_images ti ON ci.provider_id = ti.provider_id
		LEFT JOIN image_theme_scores its
			ON ci.provider_id = its.provider_id AND its.theme = ?
		WHERE ti.theme = ?
		ORDER BY ti.position
	`, themeKey, themeKey)
	if err != nil {
		return nil, fmt.Errorf("query scored theme images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows, true)
}

// IncrementUsage bumps times_used and refreshes last_used for an image.
func (s *Store) IncrementUsage(providerID string) error {
	_, err := s.db.Exec(`
		UPDATE curated_images
		SET times_used = times_used + 1, last_used = CURRENT_TIMESTAMP
		WHERE provider_id = ?
	`, providerID)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// scanImages scans image rows, optionally including the score columns.
func scanImages(rows *sql.Rows, withScore bool) ([]CuratedImage, error) {
	var images []CuratedImage
	for rows.Next() {
		var img CuratedImage
		var lastUsed sql.NullTime

		var err error
		if withScore {
			err = rows.Scan(&img.ProviderID, &img.Description, &img.URL, &img.Thumbnail,
				&img.Attribution, &img.TimesUsed, &lastUsed, &img.Score, &img.TimesShown)
		} else {
			err = rows.Scan(&img.ProviderID, &img.Description, &img.URL, &img.Thumbnail,
				&img.Attribution, &img.TimesUsed, &lastUsed)
			img.Score = 1.0
		}
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}

		if lastUsed.Valid {
			t := lastUsed.Time
			img.LastUsed = &t
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}
