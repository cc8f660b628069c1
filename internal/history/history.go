// Package history persists answered interactions in a local SQLite
// database, separate from the pgvector content store: content is shared
// infrastructure, interaction history is per-installation.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	user_id TEXT NOT NULL,
	question TEXT NOT NULL,
	preferred_format TEXT NOT NULL,
	content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_interactions_user ON user_interactions(user_id, timestamp);
`

// Interaction is one answered question.
type Interaction struct {
	ID              int64
	Timestamp       time.Time
	UserID          string
	Question        string
	PreferredFormat string
	Content         string
}

// Stats summarizes interaction history.
type Stats struct {
	TotalInteractions int
	UniqueUsers       int
	MostCommonFormat  string // empty when the table is empty
}

// Store records interactions in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at dbPath, creating parent
// directories and the schema as needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records one interaction and returns its assigned id.
func (s *Store) Save(ctx context.Context, userID, question, preferredFormat, content string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO user_interactions (timestamp, user_id, question, preferred_format, content) VALUES (?, ?, ?, ?, ?)",
		time.Now(), userID, question, preferredFormat, content,
	)
	if err != nil {
		return 0, fmt.Errorf("saving interaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading interaction id: %w", err)
	}
	return id, nil
}

// List returns interactions newest first. An empty userID returns all
// users; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	query := "SELECT id, timestamp, user_id, question, preferred_format, content FROM user_interactions"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	var interactions []Interaction
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.ID, &it.Timestamp, &it.UserID, &it.Question, &it.PreferredFormat, &it.Content); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		interactions = append(interactions, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interactions: %w", err)
	}
	return interactions, nil
}

// Stats aggregates totals across all users.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT user_id) FROM user_interactions",
	).Scan(&stats.TotalInteractions, &stats.UniqueUsers)
	if err != nil {
		return Stats{}, fmt.Errorf("counting interactions: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT preferred_format FROM user_interactions GROUP BY preferred_format ORDER BY COUNT(*) DESC, preferred_format LIMIT 1",
	).Scan(&stats.MostCommonFormat)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("finding most common format: %w", err)
	}
	return stats, nil
}
