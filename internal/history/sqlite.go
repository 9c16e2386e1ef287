package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore SQLite history storage implementation
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return store, nil
}

// initTables initializes database tables
func (s *SQLiteStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			term TEXT NOT NULL,
			category TEXT NOT NULL,
			outcome TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_term ON searches(term)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", query, err)
		}
	}

	return nil
}

// Record saves a search entry
func (s *SQLiteStore) Record(entry *Entry) error {
	if strings.TrimSpace(entry.Term) == "" {
		return fmt.Errorf("search term is empty")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(
		"INSERT INTO searches (id, term, category, outcome, result_count, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID, entry.Term, entry.Category, entry.Outcome, entry.ResultCount, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Recent gets the latest entries
func (s *SQLiteStore) Recent(limit int) ([]*Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, term, category, outcome, result_count, created_at
		 FROM searches
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return scanEntries(rows)
}

// Find searches entries by term
func (s *SQLiteStore) Find(text string, limit int) ([]*Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, term, category, outcome, result_count, created_at
		 FROM searches
		 WHERE term LIKE ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		"%"+text+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Term, &e.Category, &e.Outcome, &e.ResultCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return entries, nil
}

// Delete deletes an entry by ID
func (s *SQLiteStore) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM searches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear deletes every entry
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM searches"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
