package store

import (
	"sync"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/otel"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
)

// Recorder is a sink that writes each emitted result to the store, then
// passes it on to next. A failed write is logged and never blocks delivery.
type Recorder struct {
	store    *Store
	searchID string
	next     sequence.Sink[catalog.Sound]
	logger   *otel.Logger

	mu     sync.Mutex
	pos    int
	failed int
}

// NewRecorder creates a Recorder for searchID. next may be nil.
func NewRecorder(st *Store, searchID string, next sequence.Sink[catalog.Sound], logger *otel.Logger) *Recorder {
	return &Recorder{store: st, searchID: searchID, next: next, logger: logger}
}

// Emit implements sequence.Sink.
func (r *Recorder) Emit(s catalog.Sound, c sequence.Category) {
	r.mu.Lock()
	pos := r.pos
	r.pos++
	r.mu.Unlock()

	err := r.store.AppendResult(Result{
		SearchID: r.searchID,
		Position: pos,
		Category: search.CategoryName(c),
		SoundID:  s.ID,
		Name:     s.Name,
		Username: s.Username,
		URL:      s.URL,
	})
	if err != nil {
		r.mu.Lock()
		r.failed++
		r.mu.Unlock()
		r.logger.Emit(otel.Event{
			Level:    otel.LevelWarn,
			Kind:     otel.KindStoreError,
			Comp:     "store",
			QueryID:  r.searchID,
			Category: search.CategoryName(c),
			Err:      err.Error(),
		})
	}

	if r.next != nil {
		r.next.Emit(s, c)
	}
}

// Recorded returns how many results were written successfully.
func (r *Recorder) Recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos - r.failed
}
