package itunes

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformed is returned when a payload is not a valid search envelope.
var ErrMalformed = errors.New("malformed search response")

// envelope mirrors the response shape; pointers distinguish a missing
// required field from its zero value.
type envelope struct {
	ResultCount *int            `json:"resultCount"`
	Results     *[]SearchResult `json:"results"`
}

// Parse decodes a search response. Only the envelope is required; absent
// or null item fields decode to their empty values. Results keep the
// upstream order.
func Parse(payload []byte) (ResultSet, error) {
	if !utf8.Valid(payload) {
		return ResultSet{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformed)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ResultSet{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.ResultCount == nil {
		return ResultSet{}, fmt.Errorf("%w: missing resultCount", ErrMalformed)
	}
	if env.Results == nil {
		return ResultSet{}, fmt.Errorf("%w: missing results", ErrMalformed)
	}

	results := *env.Results
	if results == nil {
		results = []SearchResult{}
	}
	return ResultSet{
		Count:   *env.ResultCount,
		Results: results,
	}, nil
}

// Encode writes rs back in the upstream envelope format.
func Encode(rs ResultSet) ([]byte, error) {
	if rs.Results == nil {
		rs.Results = []SearchResult{}
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return data, nil
}
