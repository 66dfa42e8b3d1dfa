// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session owns the state of one search session: the query, the
// identifier sequence it resolved to, the current page and its records, and
// the loading and error flags. State is an immutable value that changes only
// through Reduce, and every operation is tagged with a generation so that a
// slow, superseded operation cannot overwrite the result of a newer one.
package session

import "github.com/pdiddy/met-search/pkg/types"

// FailureMessage is the only error text shown to users.
const FailureMessage = "Failed to fetch results. Please try again."

// State is a snapshot of one session.
type State struct {
	Query          string                   `json:"query"`
	IDs            types.IdentifierSequence `json:"-"`
	TotalMatches   int                      `json:"total_matches"`
	Page           int                      `json:"page"`
	PageSize       int                      `json:"page_size"`
	EstimatedPages int                      `json:"estimated_pages"`
	Results        []types.ObjectRecord     `json:"results"`
	Loading        bool                     `json:"loading"`
	Error          string                   `json:"error,omitempty"`

	// Searched is set once a search has completed, to tell "no matches"
	// apart from "nothing searched yet".
	Searched bool `json:"searched"`

	// Generation identifies the operation whose results the state may
	// accept next.
	Generation uint64 `json:"generation"`
}

// HasPrev reports whether a previous page exists.
func (s State) HasPrev() bool { return s.IDs.Len() > 0 && s.Page > 1 }

// HasNext reports whether the estimated page count allows a next page.
func (s State) HasNext() bool { return s.IDs.Len() > 0 && s.Page < s.EstimatedPages }

// NoMatches reports whether the last search completed without matches.
func (s State) NoMatches() bool {
	return s.Searched && !s.Loading && s.Error == "" && s.IDs.Len() == 0
}

// Event is a discrete state transition.
type Event interface {
	generation() uint64
}

// SearchStarted begins a new search, discarding the previous sequence.
type SearchStarted struct {
	Gen   uint64
	Query string
}

// SearchSucceeded carries a non-empty identifier sequence.
type SearchSucceeded struct {
	Gen uint64
	IDs types.IdentifierSequence
}

// SearchFoundNothing ends a search that matched no objects.
type SearchFoundNothing struct {
	Gen uint64
}

// PageFillStarted begins filling Page from the current sequence.
type PageFillStarted struct {
	Gen  uint64
	Page int
}

// PageFillSucceeded commits the records of a filled page.
type PageFillSucceeded struct {
	Gen     uint64
	Page    int
	Records []types.ObjectRecord
}

// OperationFailed ends a search or page fill with an error.
type OperationFailed struct {
	Gen uint64
	Err error
}

// Cleared resets the session to its initial state.
type Cleared struct {
	Gen uint64
}

func (e SearchStarted) generation() uint64      { return e.Gen }
func (e SearchSucceeded) generation() uint64    { return e.Gen }
func (e SearchFoundNothing) generation() uint64 { return e.Gen }
func (e PageFillStarted) generation() uint64    { return e.Gen }
func (e PageFillSucceeded) generation() uint64  { return e.Gen }
func (e OperationFailed) generation() uint64    { return e.Gen }
func (e Cleared) generation() uint64            { return e.Gen }

// Reduce applies ev to s and returns the new state. Start events adopt their
// generation; completion events from any other generation are ignored.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case SearchStarted:
		return State{
			Query:      e.Query,
			Page:       1,
			PageSize:   s.PageSize,
			Loading:    true,
			Generation: e.Gen,
		}

	case PageFillStarted:
		s.Generation = e.Gen
		s.Page = e.Page
		s.Results = nil
		s.Error = ""
		s.Loading = true
		return s

	case Cleared:
		return State{PageSize: s.PageSize, Generation: e.Gen}
	}

	if ev.generation() != s.Generation {
		return s
	}

	switch e := ev.(type) {
	case SearchSucceeded:
		s.IDs = e.IDs
		s.TotalMatches = e.IDs.Len()
		s.EstimatedPages = e.IDs.EstimatedPages(s.PageSize)
		s.Page = 1
		s.Searched = true

	case SearchFoundNothing:
		s.IDs = nil
		s.TotalMatches = 0
		s.EstimatedPages = 0
		s.Results = nil
		s.Loading = false
		s.Searched = true

	case PageFillSucceeded:
		s.Page = e.Page
		s.Results = e.Records
		s.Loading = false

	case OperationFailed:
		s.IDs = nil
		s.TotalMatches = 0
		s.EstimatedPages = 0
		s.Page = 1
		s.Results = nil
		s.Loading = false
		s.Error = FailureMessage
	}
	return s
}
