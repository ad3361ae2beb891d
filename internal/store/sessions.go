package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Session statuses. A session moves from in_progress to exactly one of
// completed or abandoned.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// Session is one timed practice run over a curated image set.
type Session struct {
	ID               int64
	Theme            string
	DurationPerImage int // seconds allotted per image
	TotalImages      int
	ImagesCompleted  int
	StartedAt        time.Time
	EndedAt          *time.Time
	Status           string
}

// SessionImage is one image slot in a session, fixed at creation time.
type SessionImage struct {
	SessionID  int64
	ProviderID string
	Position   int
	TimeSpent  int // seconds actually spent, 0 until recorded
	Skipped    bool
}

// CreateSession records a new practice session in in_progress status and
// returns its id.
func (s *Store) CreateSession(theme string, durationPerImage, totalImages int) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO practice_sessions (theme, duration_per_image, total_images, started_at)
		VALUES (?, ?, ?, ?)
	`, NormalizeTheme(theme), durationPerImage, totalImages, time.Now())
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return result.LastInsertId()
}

// AddSessionImages records the session's image order. Positions follow
// slice order. Idempotent: re-adding an (session, image) pair is ignored.
func (s *Store) AddSessionImages(sessionID int64, providerIDs []string) error {
	if len(providerIDs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO session_images (session_id, provider_id, position)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare session image insert: %w", err)
	}
	defer stmt.Close()

	for position, id := range providerIDs {
		if _, err := stmt.Exec(sessionID, id, position); err != nil {
			return fmt.Errorf("insert session image %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session images: %w", err)
	}
	return nil
}

// RecordInteraction fills in how the user handled one image of a session.
func (s *Store) RecordInteraction(sessionID int64, providerID string, timeSpent int, skipped bool) error {
	skippedInt := 0
	if skipped {
		skippedInt = 1
	}
	_, err := s.db.Exec(`
		UPDATE session_images
		SET time_spent = ?, skipped = ?
		WHERE session_id = ? AND provider_id = ?
	`, timeSpent, skippedInt, sessionID, providerID)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// CompleteSession finalizes a session with its outcome. Only sessions still
// in_progress are updated, so repeat calls are tolerated and a finalized
// session is never revised.
func (s *Store) CompleteSession(sessionID int64, imagesCompleted int, status string) error {
	_, err := s.db.Exec(`
		UPDATE practice_sessions
		SET images_completed = ?, ended_at = ?, status = ?
		WHERE id = ? AND status = ?
	`, imagesCompleted, time.Now(), status, sessionID, StatusInProgress)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// GetSession returns a session by id, or nil if it does not exist.
func (s *Store) GetSession(sessionID int64) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, theme, duration_per_image, total_images, images_completed, started_at, ended_at, status
		FROM practice_sessions
		WHERE id = ?
	`, sessionID)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// SessionImages returns a session's image slots in position order.
func (s *Store) SessionImages(sessionID int64) ([]SessionImage, error) {
	rows, err := s.db.Query(`
		SELECT session_id, provider_id, position, COALESCE(time_spent, 0), skipped
		FROM session_images
		WHERE session_id = ?
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session images: %w", err)
	}
	defer rows.Close()

	var images []SessionImage
	for rows.Next() {
		var si SessionImage
		var skippedInt int
		if err := rows.Scan(&si.SessionID, &si.ProviderID, &si.Position, &si.TimeSpent, &skippedInt); err != nil {
			return nil, fmt.Errorf("scan session image: %w", err)
		}
		si.Skipped = skippedInt != 0
		images = append(images, si)
	}
	return images, rows.Err()
}

// ShownRecently returns the distinct provider ids shown in any session
// started within the last N days. Abandoned sessions count too - a shown
// image is a shown image.
func (s *Store) ShownRecently(days int) (map[string]struct{}, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := s.db.Query(`
		SELECT DISTINCT si.provider_id
		FROM session_images si
		JOIN practice_sessions ps ON si.session_id = ps.id
		WHERE ps.started_at >= ?
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query recent images: %w", err)
	}
	defer rows.Close()

	shown := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recent id: %w", err)
		}
		shown[id] = struct{}{}
	}
	return shown, rows.Err()
}

// SessionHistory returns the most recent sessions, newest first.
func (s *Store) SessionHistory(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, theme, duration_per_image, total_images, images_completed, started_at, ended_at, status
		FROM practice_sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// TotalPracticeTime sums the wall-clock duration of completed sessions
// started within the last N days.
func (s *Store) TotalPracticeTime(days int) (time.Duration, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := s.db.Query(`
		SELECT started_at, ended_at
		FROM practice_sessions
		WHERE started_at >= ? AND status = ? AND ended_at IS NOT NULL
	`, cutoff, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("query practice time: %w", err)
	}
	defer rows.Close()

	var total time.Duration
	for rows.Next() {
		var started, ended time.Time
		if err := rows.Scan(&started, &ended); err != nil {
			return 0, fmt.Errorf("scan session times: %w", err)
		}
		total += ended.Sub(started)
	}
	return total, rows.Err()
}

// ImagesCompleted sums images_completed over completed sessions started
// within the last N days.
func (s *Store) ImagesCompleted(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	var count int
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(images_completed), 0)
		FROM practice_sessions
		WHERE started_at >= ? AND status = ?
	`, cutoff, StatusCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed images: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for session scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var endedAt sql.NullTime
	err := row.Scan(&sess.ID, &sess.Theme, &sess.DurationPerImage, &sess.TotalImages,
		&sess.ImagesCompleted, &sess.StartedAt, &endedAt, &sess.Status)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}
