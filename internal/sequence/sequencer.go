// Package sequence merges whole result batches from independent,
// asynchronously completing sources into one stream that respects a fixed
// tier priority.
//
// A Sequencer holds one buffer per tier and a single unlocked-tier pointer.
// Items of the unlocked tier (and of tiers it has already passed) are emitted
// to the Sink immediately; items of lower tiers are held until the pointer
// reaches them. The pointer advances when the unlocked tier receives its first
// item, and keeps advancing through any lower tier whose buffer was already
// populated at that moment.
package sequence

import (
	"errors"
	"fmt"
	"sync"
)

// Category is a tier in the display priority order. Lower values come first.
type Category int

const (
	Primary Category = iota
	Secondary
	Tertiary
)

// DefaultTiers is the number of tiers used by the search pipeline.
const DefaultTiers = 3

func (c Category) String() string {
	switch c {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Tertiary:
		return "tertiary"
	default:
		return fmt.Sprintf("tier%d", int(c))
	}
}

var (
	// ErrUnknownCategory is returned for a category outside the configured tiers.
	ErrUnknownCategory = errors.New("sequence: unknown category")

	// ErrOutOfOrder is returned when the first item of a tier arrives after the
	// unlocked tier has already moved past it. The item is still emitted.
	ErrOutOfOrder = errors.New("sequence: tier started after it was passed")

	// ErrClosed is returned by ingest calls after Close.
	ErrClosed = errors.New("sequence: closed")
)

// Sink receives items in their final display order.
type Sink[T any] interface {
	Emit(item T, c Category)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc[T any] func(item T, c Category)

// Emit calls f(item, c).
func (f SinkFunc[T]) Emit(item T, c Category) { f(item, c) }

// CategoryStats reports per-tier counters. Reporting only: none of these
// values influence sequencing.
type CategoryStats struct {
	Category Category
	Received int
	Emitted  int
	Buffered int
	Dropped  int // discarded by Close
	Total    int // batch size from SetTotal, -1 until known
}

// Complete reports whether every item of a known-size batch has been emitted.
func (s CategoryStats) Complete() bool {
	return s.Total >= 0 && s.Emitted == s.Total
}

type tier[T any] struct {
	buf      []T
	received int
	emitted  int
	dropped  int
	total    int
}

// Sequencer orders items from up to n tiers. Safe for concurrent use: every
// mutating call runs to completion under one mutex, and the Sink is invoked
// while that mutex is held, so Sink call order is the emitted order.
// The Sink must not call back into the Sequencer.
type Sequencer[T any] struct {
	mu       sync.Mutex
	sink     Sink[T]
	tiers    []tier[T]
	unlocked int
	closed   bool
}

// New creates a Sequencer emitting to sink with n tiers. Panics if sink is nil
// or n < 1.
func New[T any](sink Sink[T], n int) *Sequencer[T] {
	if sink == nil {
		panic("sequence: nil sink")
	}
	if n < 1 {
		panic(fmt.Sprintf("sequence: need at least one tier, got %d", n))
	}
	tiers := make([]tier[T], n)
	for i := range tiers {
		tiers[i].total = -1
	}
	return &Sequencer[T]{sink: sink, tiers: tiers}
}

// Ingest accepts one item of category c.
func (s *Sequencer[T]) Ingest(item T, c Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingest(item, c)
}

// IngestBatch ingests items in order under a single lock acquisition, so no
// other batch can interleave with it. ErrOutOfOrder does not stop the batch;
// the first such error is returned after all items are ingested.
func (s *Sequencer[T]) IngestBatch(items []T, c Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, item := range items {
		err := s.ingest(item, c)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrOutOfOrder) {
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ingest implements the tier contract. Caller must hold s.mu.
func (s *Sequencer[T]) ingest(item T, c Category) error {
	if s.closed {
		return ErrClosed
	}
	if c < 0 || int(c) >= len(s.tiers) {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}

	t := &s.tiers[c]
	first := t.received == 0
	t.received++

	switch {
	case int(c) == s.unlocked:
		s.emit(item, c)
		if first {
			s.advance()
		}
		return nil

	case int(c) > s.unlocked:
		t.buf = append(t.buf, item)
		return nil

	default:
		// Continuation of a tier already passed; only its first item is suspect.
		s.emit(item, c)
		if first {
			return fmt.Errorf("%w: %s", ErrOutOfOrder, c)
		}
		return nil
	}
}

// advance moves the unlocked tier forward by one, flushing the new tier's
// buffer, and keeps going while the flushed buffer was non-empty.
// Caller must hold s.mu.
func (s *Sequencer[T]) advance() {
	for {
		s.unlocked++
		if s.unlocked >= len(s.tiers) {
			return
		}

		c := Category(s.unlocked)
		held := s.tiers[c].buf
		s.tiers[c].buf = nil
		for _, item := range held {
			s.emit(item, c)
		}
		if len(held) == 0 {
			return
		}
	}
}

func (s *Sequencer[T]) emit(item T, c Category) {
	s.sink.Emit(item, c)
	s.tiers[c].emitted++
}

// SetTotal records the size of c's batch once it is known.
func (s *Sequencer[T]) SetTotal(c Category, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c < 0 || int(c) >= len(s.tiers) {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	s.tiers[c].total = n
	return nil
}

// Unlocked returns the tier currently allowed to emit directly. It equals the
// number of tiers once every tier has been passed.
func (s *Sequencer[T]) Unlocked() Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Category(s.unlocked)
}

// Pending returns the number of items currently held across all buffers.
func (s *Sequencer[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.tiers {
		n += len(s.tiers[i].buf)
	}
	return n
}

// Stats returns a snapshot of the per-tier counters in tier order.
func (s *Sequencer[T]) Stats() []CategoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CategoryStats, len(s.tiers))
	for i, t := range s.tiers {
		out[i] = CategoryStats{
			Category: Category(i),
			Received: t.received,
			Emitted:  t.emitted,
			Buffered: len(t.buf),
			Dropped:  t.dropped,
			Total:    t.total,
		}
	}
	return out
}

// Close discards all buffered items without emitting them. Subsequent ingest
// calls return ErrClosed. Safe to call more than once.
func (s *Sequencer[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for i := range s.tiers {
		s.tiers[i].dropped += len(s.tiers[i].buf)
		s.tiers[i].buf = nil
	}
}
