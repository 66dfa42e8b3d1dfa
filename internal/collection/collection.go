// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collection queries the museum collection API: the search endpoint
// resolves a free-text query to an identifier sequence and the objects
// endpoint returns one object record per identifier.
package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/met-search/internal/httputil"
	"github.com/pdiddy/met-search/pkg/types"
)

var (
	// ErrEmptyQuery is returned when the query has no searchable text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrSearchFailure marks a search request that failed or returned
	// malformed data.
	ErrSearchFailure = errors.New("search failed")
)

// Searcher resolves a free-text query to an ordered identifier sequence.
type Searcher interface {
	Search(ctx context.Context, query string) (types.IdentifierSequence, error)
}

// ObjectFetcher returns the record for one object identifier.
type ObjectFetcher interface {
	Object(ctx context.Context, id int) (types.ObjectRecord, error)
}

// Client implements Searcher and ObjectFetcher against the collection API.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
}

// NewClient builds a Client from cfg, applying defaults for empty fields.
func NewClient(cfg types.CollectionConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = types.DefaultCollectionBaseURL
	}
	return &Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		BaseURL:   base,
		UserAgent: cfg.UserAgent,
	}
}

// Search returns the identifiers matching query in API order. A response
// without objectIDs (the API sends null for no matches) yields an empty
// sequence and no error.
func (c *Client) Search(ctx context.Context, query string) (types.IdentifierSequence, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	reqURL := c.BaseURL + "/search?" + url.Values{"q": {query}}.Encode()

	var sr searchResponse
	if err := httputil.GetJSON(ctx, c.HTTP, reqURL, c.UserAgent, &sr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailure, err)
	}
	if len(sr.ObjectIDs) == 0 {
		return types.IdentifierSequence{}, nil
	}
	return types.IdentifierSequence(sr.ObjectIDs), nil
}

// Object returns the record for id. The API answers 404 for identifiers it
// no longer serves; those come back as a zero record, which is not
// displayable, rather than as an error.
func (c *Client) Object(ctx context.Context, id int) (types.ObjectRecord, error) {
	reqURL := c.BaseURL + "/objects/" + strconv.Itoa(id)

	var rec types.ObjectRecord
	err := httputil.GetJSON(ctx, c.HTTP, reqURL, c.UserAgent, &rec)
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return types.ObjectRecord{}, nil
		}
		return types.ObjectRecord{}, fmt.Errorf("fetching object %d: %w", id, err)
	}
	return rec, nil
}

// Collection API JSON structures.
type searchResponse struct {
	Total     int   `json:"total"`
	ObjectIDs []int `json:"objectIDs"`
}
