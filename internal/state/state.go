package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DB tracks which workout texts have already been submitted to Intervals.icu
// so a re-shared export does not create a second activity.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite state database at dir/state.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS submitted_workouts (
		hash         TEXT PRIMARY KEY,
		activity_id  TEXT NOT NULL,
		submitted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &DB{db: db}, nil
}

// Lookup returns the activity created for hash, if any.
func (s *DB) Lookup(hash string) (string, bool, error) {
	var activityID string
	err := s.db.QueryRow(
		`SELECT activity_id FROM submitted_workouts WHERE hash = ?`, hash,
	).Scan(&activityID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up submission %s: %w", hash, err)
	}
	return activityID, true, nil
}

// MarkSubmitted records that hash produced activityID.
func (s *DB) MarkSubmitted(hash, activityID string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO submitted_workouts (hash, activity_id) VALUES (?, ?)`,
		hash, activityID,
	)
	if err != nil {
		return fmt.Errorf("marking submission %s: %w", hash, err)
	}
	return nil
}

// Close closes the state database.
func (s *DB) Close() error {
	return s.db.Close()
}

// HashText computes the SHA-256 of text with runs of whitespace collapsed,
// so the same export pasted with different line endings hashes the same.
func HashText(text string) string {
	h := sha256.Sum256([]byte(strings.Join(strings.Fields(text), " ")))
	return hex.EncodeToString(h[:])
}
