package search

import (
	"github.com/hession/storesearch/internal/itunes"
)

const (
	// AlertTitle and ErrorMessage are shown once per failed search.
	AlertTitle   = "Oops..."
	ErrorMessage = "There was an error accessing the iTunes Store. Please try again."
)

// Kind identifies which state the coordinator is in.
type Kind int

const (
	Idle Kind = iota
	Loading
	Results
	Empty
	NetworkError
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Results:
		return "results"
	case Empty:
		return "empty"
	case NetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Settled reports whether k is a terminal outcome of a search.
func (k Kind) Settled() bool {
	return k == Results || k == Empty || k == NetworkError
}

// Submission is one accepted search request.
type Submission struct {
	Text       string
	Category   itunes.Category
	Generation uint64
}

// State is the coordinator's externally visible state. Exactly one Kind
// applies; ResultSet is only populated for Results and Err only for
// NetworkError, where it carries the diagnostic cause.
type State struct {
	Kind       Kind
	Submission Submission
	ResultSet  itunes.ResultSet
	Err        error
}

// Generation returns the generation that produced the state, 0 when idle.
func (s State) Generation() uint64 {
	return s.Submission.Generation
}
