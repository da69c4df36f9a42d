// Package search runs soundscope's three catalog searches concurrently and
// feeds their batches through a sequence.Sequencer, so the sink sees newest
// results first, then most downloaded, then nearby, whatever order the
// responses arrive in.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/otel"
	"github.com/abelbrown/soundscope/internal/sequence"
)

// Display tiers, highest priority first.
const (
	Newest         = sequence.Primary
	MostDownloaded = sequence.Secondary
	Nearby         = sequence.Tertiary
)

// defaultTimeout bounds a whole search when Options.Timeout is zero.
const defaultTimeout = 45 * time.Second

// CategoryName is the stable identifier stored and logged for c.
func CategoryName(c sequence.Category) string {
	switch c {
	case Newest:
		return "newest"
	case MostDownloaded:
		return "most_downloaded"
	case Nearby:
		return "nearby"
	default:
		return c.String()
	}
}

// CategoryTitle is the section heading shown for c.
func CategoryTitle(c sequence.Category) string {
	switch c {
	case Newest:
		return "Newest sounds"
	case MostDownloaded:
		return "Most downloaded sounds"
	case Nearby:
		return "Nearby sounds"
	default:
		return c.String()
	}
}

// Fetcher performs one catalog search. *catalog.Client satisfies it.
type Fetcher interface {
	Search(ctx context.Context, q catalog.Query) ([]catalog.Sound, error)
}

// Request describes one three-way search.
type Request struct {
	ID         string // generated when empty
	Text       string
	Department string
	PageSize   int               // results per category
	Location   *catalog.Location // nil disables nearby results
	RadiusKm   float64
}

type planned struct {
	cat   sequence.Category
	query catalog.Query
}

// plan returns the catalog queries for r in tier order.
func (r Request) plan() []planned {
	p := []planned{
		{Newest, catalog.NewestQuery(r.Text, r.Department, r.PageSize)},
		{MostDownloaded, catalog.MostDownloadedQuery(r.Text, r.Department, r.PageSize)},
	}
	if r.Location != nil {
		p = append(p, planned{Nearby, catalog.NearbyQuery(r.Text, r.Department, r.PageSize, *r.Location, r.RadiusKm)})
	}
	return p
}

// Summary reports what a search produced.
type Summary struct {
	QueryID   string
	Requested []sequence.Category
	Stats     []sequence.CategoryStats
	Errors    map[sequence.Category]error
	Dur       time.Duration
}

// Emitted returns the number of results delivered to the sink.
func (s Summary) Emitted() int {
	n := 0
	for _, st := range s.Stats {
		n += st.Emitted
	}
	return n
}

// Held returns the number of results that arrived but were never shown
// because a higher tier never produced anything.
func (s Summary) Held() int {
	n := 0
	for _, st := range s.Stats {
		n += st.Dropped
	}
	return n
}

// Options configures a Searcher.
type Options struct {
	Timeout time.Duration
	Logger  *otel.Logger
}

// Searcher runs three-way searches. Safe for concurrent use; each Run has its
// own Sequencer.
type Searcher struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *otel.Logger

	// batchDone, when set, is called after each batch has been ingested.
	batchDone func(sequence.Category)
}

// New creates a Searcher.
func New(f Fetcher, opts Options) *Searcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Searcher{fetcher: f, timeout: opts.Timeout, logger: opts.Logger}
}

// Run performs req, emitting results to sink in display order, and blocks
// until every requested category has completed or failed, or ctx ends.
//
// A failed category emits nothing. When ctx is cancelled or the timeout
// elapses, results still held for ordering are discarded and ctx's error is
// returned. Run also fails when every requested category failed.
func (s *Searcher) Run(ctx context.Context, req Request, sink sequence.Sink[catalog.Sound]) (Summary, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	seq := sequence.New[catalog.Sound](sink, sequence.DefaultTiers)
	plan := req.plan()

	sum := Summary{QueryID: req.ID, Errors: make(map[sequence.Category]error)}
	for _, p := range plan {
		sum.Requested = append(sum.Requested, p.cat)
	}
	s.logger.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindSearchStart,
		Comp:    "search",
		QueryID: req.ID,
		Query:   req.Text,
		Count:   len(plan),
	})

	// Discard held results as soon as the request is abandoned, so a batch
	// completing after cancellation cannot reach the sink.
	stop := make(chan struct{})
	var watch sync.WaitGroup
	watch.Add(1)
	go func() {
		defer watch.Done()
		select {
		case <-ctx.Done():
			seq.Close()
		case <-stop:
		}
	}()

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(len(plan))
	for _, p := range plan {
		g.Go(func() error {
			err := s.runOne(ctx, req.ID, seq, p)
			if err != nil {
				mu.Lock()
				sum.Errors[p.cat] = err
				mu.Unlock()
			}
			return nil // per-category failures never cancel the others
		})
	}
	_ = g.Wait()

	close(stop)
	watch.Wait()
	seq.Close()

	sum.Stats = seq.Stats()
	sum.Dur = time.Since(start)

	if err := ctx.Err(); err != nil {
		s.logger.Emit(otel.Event{
			Level:   otel.LevelWarn,
			Kind:    otel.KindSearchCancel,
			Comp:    "search",
			QueryID: req.ID,
			Count:   sum.Held(),
			Err:     err.Error(),
			Dur:     sum.Dur,
		})
		return sum, fmt.Errorf("search %s: %w", req.ID, err)
	}

	s.logger.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindSearchComplete,
		Comp:    "search",
		QueryID: req.ID,
		Count:   sum.Emitted(),
		Dur:     sum.Dur,
	})

	if len(sum.Errors) == len(plan) {
		errs := make([]error, 0, len(plan))
		for _, p := range plan {
			errs = append(errs, fmt.Errorf("%s: %w", CategoryName(p.cat), sum.Errors[p.cat]))
		}
		return sum, fmt.Errorf("search %s: every category failed: %w", req.ID, errors.Join(errs...))
	}
	return sum, nil
}

// runOne fetches one category and ingests its batch in response order.
func (s *Searcher) runOne(ctx context.Context, qid string, seq *sequence.Sequencer[catalog.Sound], p planned) error {
	name := CategoryName(p.cat)
	start := time.Now()

	sounds, err := s.fetcher.Search(ctx, p.query)
	if err != nil {
		s.logger.Emit(otel.Event{
			Level:    otel.LevelWarn,
			Kind:     otel.KindBatchError,
			Comp:     "search",
			QueryID:  qid,
			Category: name,
			Err:      err.Error(),
			Dur:      time.Since(start),
		})
		return err
	}

	_ = seq.SetTotal(p.cat, len(sounds))
	err = seq.IngestBatch(sounds, p.cat)
	switch {
	case errors.Is(err, sequence.ErrOutOfOrder):
		s.logger.Emit(otel.Event{
			Level:    otel.LevelError,
			Kind:     otel.KindContractBreach,
			Comp:     "search",
			QueryID:  qid,
			Category: name,
			Err:      err.Error(),
		})
	case errors.Is(err, sequence.ErrClosed):
		// Request abandoned; Run reports ctx's error.
		return nil
	case err != nil:
		return err
	}

	s.logger.Emit(otel.Event{
		Level:    otel.LevelInfo,
		Kind:     otel.KindBatchComplete,
		Comp:     "search",
		QueryID:  qid,
		Category: name,
		Count:    len(sounds),
		Dur:      time.Since(start),
	})
	if s.batchDone != nil {
		s.batchDone(p.cat)
	}
	return nil
}
