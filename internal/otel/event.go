// Package otel records soundscope's pipeline activity as JSONL events.
//
// Events are flat structs, one per line. The Logger writes them from a single
// background goroutine fed by a buffered channel, so Emit never blocks a
// search. An attached RingBuffer keeps the most recent events in memory for
// the TUI debug footer.
package otel

import (
	"encoding/json"
	"time"
)

// Level is the event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind is "<subsystem>.<action>".
type EventKind string

const (
	// Catalog client
	KindCatalogRequest EventKind = "catalog.request"
	KindCatalogRetry   EventKind = "catalog.retry"
	KindCatalogError   EventKind = "catalog.error"

	// Search coordinator
	KindSearchStart    EventKind = "search.start"
	KindBatchComplete  EventKind = "search.batch"
	KindBatchError     EventKind = "search.batch_error"
	KindContractBreach EventKind = "search.contract_breach"
	KindSearchComplete EventKind = "search.complete"
	KindSearchCancel   EventKind = "search.cancel"

	// Presentation
	KindResultEmitted EventKind = "ui.emit"
	KindActivate      EventKind = "ui.activate"

	// Store
	KindStoreError EventKind = "store.error"

	// Process
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is a single observability record. Only Kind is required; Time and
// SessionID are filled in by the Logger.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "catalog", "search", "ui", "store", "main"
	SessionID string         `json:"session_id,omitempty"`
	QueryID   string         `json:"qid,omitempty"`
	Category  string         `json:"category,omitempty"` // "newest", "most_downloaded", "nearby"
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Query     string         `json:"query,omitempty"`
	Status    int            `json:"status,omitempty"` // HTTP status
	Attempt   int            `json:"attempt,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON renders Dur as fractional milliseconds.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	p := plain(e)
	if e.Dur > 0 {
		p.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(p)
}
