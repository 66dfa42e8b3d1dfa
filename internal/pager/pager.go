// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pager materialises fixed-size pages of displayable object records
// from an identifier sequence. Many identifiers refer to objects without an
// image, so a page is filled by fetching detail records in batches and
// skipping the ones that cannot be shown until the page is full or the
// sequence runs out.
package pager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/met-search/internal/collection"
	"github.com/pdiddy/met-search/pkg/types"
)

var (
	// ErrFetchFailure marks a fill aborted because a detail fetch failed.
	ErrFetchFailure = errors.New("fetch failed")

	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("page must be >= 1")
)

// Filler fills pages of PageSize displayable records.
type Filler struct {
	Fetcher  collection.ObjectFetcher
	PageSize int

	// BatchMultiplier sizes each batch as BatchMultiplier*PageSize
	// identifiers. It changes how many requests are in flight at once, not
	// which records end up on the page.
	BatchMultiplier int
}

// New returns a Filler configured from cfg.
func New(fetcher collection.ObjectFetcher, cfg types.CollectionConfig) *Filler {
	return &Filler{
		Fetcher:         fetcher,
		PageSize:        cfg.PageSize,
		BatchMultiplier: cfg.BatchMultiplier,
	}
}

// Fill returns up to PageSize displayable records for page, drawn in order
// from ids starting at offset (page-1)*PageSize. Fewer records are returned
// only when the sequence is exhausted. If any detail fetch fails the whole
// fill fails with ErrFetchFailure and no records are returned.
func (f *Filler) Fill(ctx context.Context, ids types.IdentifierSequence, page int) ([]types.ObjectRecord, error) {
	records, _, err := f.FillWithCursor(ctx, ids, page)
	return records, err
}

// FillWithCursor is Fill that also reports the index of the first
// identifier not consumed by the fill.
func (f *Filler) FillWithCursor(ctx context.Context, ids types.IdentifierSequence, page int) ([]types.ObjectRecord, int, error) {
	if page < 1 {
		return nil, 0, ErrInvalidPage
	}
	pageSize := f.pageSize()
	batchSize := pageSize * f.batchMultiplier()

	// Pages past the end are empty; checking before multiplying keeps
	// (page-1)*pageSize from overflowing.
	if page-1 > (len(ids)-1)/pageSize {
		return nil, len(ids), nil
	}

	start := (page - 1) * pageSize
	idx := start
	var found []types.ObjectRecord

	for len(found) < pageSize && idx < len(ids) {
		end := min(idx+batchSize, len(ids))
		batch := ids[idx:end]

		details, err := f.fetchBatch(ctx, batch)
		if err != nil {
			return nil, idx, err
		}
		for _, rec := range details {
			if rec.Displayable() {
				found = append(found, rec)
			}
		}
		idx += len(batch)

		slog.Debug("page batch fetched",
			"page", page, "batch", len(batch), "found", len(found), "cursor", idx)
	}

	if len(found) > pageSize {
		found = found[:pageSize]
	}
	return found, idx, nil
}

// fetchBatch fetches every identifier in batch concurrently and returns the
// records in batch order. The first failure cancels the remaining fetches.
func (f *Filler) fetchBatch(ctx context.Context, batch types.IdentifierSequence) ([]types.ObjectRecord, error) {
	details := make([]types.ObjectRecord, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range batch {
		g.Go(func() error {
			rec, err := f.Fetcher.Object(gctx, id)
			if err != nil {
				return err
			}
			details[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}
	return details, nil
}

func (f *Filler) pageSize() int {
	if f.PageSize <= 0 {
		return types.DefaultPageSize
	}
	return f.PageSize
}

func (f *Filler) batchMultiplier() int {
	if f.BatchMultiplier <= 0 {
		return types.DefaultBatchMultiplier
	}
	return f.BatchMultiplier
}
