package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/otel"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards emitted results to the TUI as ResultEmitted messages,
// in the order Emit is called.
type ProgramSink struct {
	p       Sender
	queryID string
	logger  *otel.Logger
}

// NewProgramSink creates a sink tagging every result with queryID.
func NewProgramSink(p Sender, queryID string, logger *otel.Logger) *ProgramSink {
	return &ProgramSink{p: p, queryID: queryID, logger: logger}
}

// Emit implements sequence.Sink.
func (s *ProgramSink) Emit(snd catalog.Sound, c sequence.Category) {
	s.p.Send(ResultEmitted{QueryID: s.queryID, Sound: snd, Category: c})
	if !otel.TraceEnabled() {
		return
	}
	s.logger.Emit(otel.Event{
		Level:    otel.LevelDebug,
		Kind:     otel.KindResultEmitted,
		Comp:     "ui",
		QueryID:  s.queryID,
		Category: search.CategoryName(c),
		Msg:      snd.Name,
	})
}
