// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for met-search: the object
// records returned by the collection API, identifier sequences produced by a
// search, the pages materialised from them, and configuration.
package types

// UnknownArtist is shown when an object carries no attribution.
const UnknownArtist = "Unknown Artist"

// ObjectRecord describes one catalog object as returned by the collection
// detail endpoint. Field names follow the API's JSON keys.
type ObjectRecord struct {
	// ObjectID is the collection's numeric identifier for the object.
	ObjectID int `json:"objectID" yaml:"object_id"`

	// PrimaryImageSmall is the thumbnail URL; empty when the object has no
	// viewable image.
	PrimaryImageSmall string `json:"primaryImageSmall" yaml:"primary_image_small"`

	Title string `json:"title" yaml:"title"`

	// ArtistDisplayName is the attribution, often empty.
	ArtistDisplayName string `json:"artistDisplayName" yaml:"artist_display_name"`

	ObjectDate string `json:"objectDate" yaml:"object_date"`
}

// Displayable reports whether the record can be rendered as an image card:
// it must carry an identifier and a non-empty thumbnail reference.
func (r ObjectRecord) Displayable() bool {
	return r.ObjectID != 0 && r.PrimaryImageSmall != ""
}

// Artist returns the attribution or UnknownArtist.
func (r ObjectRecord) Artist() string {
	if r.ArtistDisplayName == "" {
		return UnknownArtist
	}
	return r.ArtistDisplayName
}

// IdentifierSequence is the ordered list of object identifiers matched by a
// single search. It is never mutated once fetched; a new search replaces it.
type IdentifierSequence []int

// Len returns the number of identifiers.
func (s IdentifierSequence) Len() int { return len(s) }

// EstimatedPages returns ceil(len/pageSize). This is an upper bound: objects
// without images are skipped when pages are filled, so the true last page
// can only be found by fetching every remaining detail record.
func (s IdentifierSequence) EstimatedPages(pageSize int) int {
	if pageSize <= 0 || len(s) == 0 {
		return 0
	}
	return (len(s) + pageSize - 1) / pageSize
}

// Page is one materialised page of displayable records.
type Page struct {
	Number         int            `json:"page" yaml:"page"`
	PageSize       int            `json:"page_size" yaml:"page_size"`
	EstimatedPages int            `json:"estimated_pages" yaml:"estimated_pages"`
	TotalMatches   int            `json:"total_matches" yaml:"total_matches"`
	Records        []ObjectRecord `json:"records" yaml:"records"`
}
