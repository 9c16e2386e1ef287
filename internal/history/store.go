// Package history keeps a local record of the searches the user ran.
package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an entry ID does not exist.
var ErrNotFound = errors.New("history entry not found")

// Store search history storage interface
type Store interface {
	// Record saves a settled search. ID and CreatedAt are filled in when empty.
	Record(entry *Entry) error

	// Recent returns the newest entries first.
	Recent(limit int) ([]*Entry, error)

	// Find returns entries whose term contains text, newest first.
	Find(text string, limit int) ([]*Entry, error)

	// Delete removes one entry, ErrNotFound when id is unknown.
	Delete(id string) error
	Clear() error

	// Close connection
	Close() error
}

// Entry one search and how it settled. Result payloads are never stored.
type Entry struct {
	ID          string
	Term        string
	Category    string
	Outcome     string // "results" | "empty" | "network_error"
	ResultCount int
	CreatedAt   time.Time
}
