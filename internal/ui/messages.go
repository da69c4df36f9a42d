// Package ui provides the Bubble Tea TUI for soundscope.
package ui

import (
	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
)

// SearchStarted is sent when a search has been dispatched.
type SearchStarted struct {
	QueryID string
	Text    string
}

// ResultEmitted carries one result in display order.
type ResultEmitted struct {
	QueryID  string // search correlation ID
	Sound    catalog.Sound
	Category sequence.Category
}

// SearchComplete is sent when every category of a search has finished or
// the search was abandoned.
type SearchComplete struct {
	QueryID string
	Summary search.Summary
	Err     error
}

// Activated is sent after a result's page was handed to the browser.
type Activated struct {
	URL string
	Err error
}

// Copied is sent after a result's URL was written to the clipboard.
type Copied struct {
	URL string
	Err error
}
