// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pdiddy/met-search/internal/collection"
	"github.com/pdiddy/met-search/pkg/types"
)

var (
	// ErrNoSearch is returned when a page is requested before any search
	// produced an identifier sequence.
	ErrNoSearch = errors.New("no search results to page through")

	// ErrPageOutOfRange is returned for pages outside [1, EstimatedPages].
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrSuperseded is returned by an operation whose result was discarded
	// because a newer operation started while it was in flight.
	ErrSuperseded = errors.New("operation superseded")
)

// PageFiller fills one page of displayable records from an identifier sequence.
type PageFiller interface {
	Fill(ctx context.Context, ids types.IdentifierSequence, page int) ([]types.ObjectRecord, error)
}

// Orchestrator runs searches and page navigation for one session.
// Starting an operation cancels the one in flight, and results are committed
// only if no newer operation has started since.
type Orchestrator struct {
	searcher collection.Searcher
	filler   PageFiller
	log      *slog.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewOrchestrator returns an Orchestrator with an empty session.
func NewOrchestrator(searcher collection.Searcher, filler PageFiller, pageSize int, log *slog.Logger) *Orchestrator {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		searcher: searcher,
		filler:   filler,
		log:      log,
		state:    State{PageSize: pageSize},
	}
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Search resolves query to an identifier sequence and fills page 1. A search
// that matches nothing leaves the session in the no-matches state without
// filling a page; that is not an error.
func (o *Orchestrator) Search(ctx context.Context, query string) (State, error) {
	if err := validQuery(query); err != nil {
		return o.State(), err
	}

	ctx, gen, _, _ := o.begin(ctx, func(gen uint64, _ State) (Event, error) {
		return SearchStarted{Gen: gen, Query: query}, nil
	})

	ids, err := o.searcher.Search(ctx, query)
	if err != nil {
		return o.fail(gen, err)
	}
	if ids.Len() == 0 {
		o.log.Info("search matched nothing", "query", query)
		return o.finish(gen, SearchFoundNothing{Gen: gen})
	}
	if _, err := o.finish(gen, SearchSucceeded{Gen: gen, IDs: ids}); err != nil {
		return o.State(), err
	}
	o.log.Info("search resolved", "query", query, "matches", ids.Len())

	return o.fill(ctx, gen, ids, 1)
}

// GoToPage fills page from the current identifier sequence. Pages are never
// cached; each navigation fetches its details again.
func (o *Orchestrator) GoToPage(ctx context.Context, page int) (State, error) {
	var ids types.IdentifierSequence
	ctx, gen, cur, err := o.begin(ctx, func(gen uint64, cur State) (Event, error) {
		if cur.IDs.Len() == 0 {
			return nil, ErrNoSearch
		}
		if page < 1 || page > cur.EstimatedPages {
			return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, page, cur.EstimatedPages)
		}
		ids = cur.IDs
		return PageFillStarted{Gen: gen, Page: page}, nil
	})
	if err != nil {
		return cur, err
	}
	return o.fill(ctx, gen, ids, page)
}

// Clear resets the session and abandons any operation in flight.
func (o *Orchestrator) Clear() State {
	_, gen, _, _ := o.begin(context.Background(), func(gen uint64, _ State) (Event, error) {
		return Cleared{Gen: gen}, nil
	})
	o.release(gen)
	return o.State()
}

func (o *Orchestrator) fill(ctx context.Context, gen uint64, ids types.IdentifierSequence, page int) (State, error) {
	records, err := o.filler.Fill(ctx, ids, page)
	if err != nil {
		return o.fail(gen, err)
	}
	o.log.Debug("page filled", "page", page, "records", len(records))
	return o.finish(gen, PageFillSucceeded{Gen: gen, Page: page, Records: records})
}

// begin builds the start event from the current state under the lock. If
// start accepts, the operation in flight is cancelled, the next generation
// is taken and the event applied; otherwise nothing changes and the current
// state is returned with start's error.
func (o *Orchestrator) begin(parent context.Context, start func(gen uint64, cur State) (Event, error)) (context.Context, uint64, State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ev, err := start(o.gen+1, o.state)
	if err != nil {
		return nil, 0, o.state, err
	}
	if o.cancel != nil {
		o.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	o.cancel = cancel
	o.gen++
	o.state = Reduce(o.state, ev)
	return ctx, o.gen, o.state, nil
}

// finish applies a completion event. The final event of an operation also
// releases its context.
func (o *Orchestrator) finish(gen uint64, ev Event) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.gen {
		return o.state, ErrSuperseded
	}
	o.state = Reduce(o.state, ev)
	if !o.state.Loading && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	return o.state, nil
}

func (o *Orchestrator) fail(gen uint64, err error) (State, error) {
	st, ferr := o.finish(gen, OperationFailed{Gen: gen, Err: err})
	if ferr != nil {
		return st, ferr
	}
	o.log.Warn("operation failed", "error", err)
	return st, err
}

func (o *Orchestrator) release(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.gen && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func validQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return collection.ErrEmptyQuery
	}
	return nil
}
