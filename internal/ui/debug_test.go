package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/soundscope/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	result := debugOverlay(nil, "", 20, 80, 24)
	if result != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", result)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindBatchComplete, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindBatchComplete, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindBatchError, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindSearchStart, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindSearchComplete, Time: time.Now()})

	result := debugOverlay(ring, "", 20, 80, 40)

	if !strings.Contains(result, "Pipeline Stats") {
		t.Error("overlay should contain 'Pipeline Stats' header")
	}
	if !strings.Contains(result, "2 complete, 1 errors, 0 breaches") {
		t.Errorf("overlay should show batch stats, got:\n%s", result)
	}
	if !strings.Contains(result, "1 started, 1 complete") {
		t.Errorf("overlay should show search stats, got:\n%s", result)
	}
	if !strings.Contains(result, "5 / 64 events") {
		t.Errorf("overlay should show buffer stats, got:\n%s", result)
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindCatalogRequest, Time: time.Now(), Msg: "created_desc"})
	ring.Push(otel.Event{Kind: otel.KindBatchError, Time: time.Now(), Category: "nearby", Err: "timeout"})
	ring.Push(otel.Event{Kind: otel.KindSearchStart, Time: time.Now(), QueryID: "abcdef1234567890"})

	result := debugOverlay(ring, "", 20, 80, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "created_desc") {
		t.Errorf("overlay should show event message, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:timeout") {
		t.Errorf("overlay should show error, got:\n%s", result)
	}
	if !strings.Contains(result, "nearby") {
		t.Errorf("overlay should show category, got:\n%s", result)
	}
	if !strings.Contains(result, "qid:abcdef12") {
		t.Errorf("overlay should show truncated query ID, got:\n%s", result)
	}
}

func TestDebugOverlayCurrentSearch(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindBatchComplete, QueryID: "old", Category: "newest", Count: 3})
	ring.Push(otel.Event{Kind: otel.KindSearchStart, QueryID: "q1"})
	ring.Push(otel.Event{Kind: otel.KindBatchComplete, QueryID: "q1", Category: "most_downloaded", Count: 15, Dur: 230 * time.Millisecond})
	ring.Push(otel.Event{Kind: otel.KindBatchError, QueryID: "q1", Category: "newest", Err: "status 503"})

	result := debugOverlay(ring, "q1", 20, 100, 60)
	if !strings.Contains(result, "Current Search") {
		t.Fatalf("overlay should contain 'Current Search', got:\n%s", result)
	}
	if !strings.Contains(result, "15 results  230ms") {
		t.Errorf("overlay should show the batch, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:status 503") {
		t.Errorf("overlay should show the failed batch, got:\n%s", result)
	}
	if strings.Contains(result, "  3 results") {
		t.Errorf("overlay should not show other searches' batches, got:\n%s", result)
	}

	if got := debugOverlay(ring, "", 20, 100, 60); strings.Contains(got, "Current Search") {
		t.Error("no current search section without a query ID")
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindCatalogRequest, Time: time.Now()})
	}

	result := debugOverlay(ring, "", 30, 80, 10)
	if result == "" {
		t.Error("overlay should still render with small height")
	}

	// With height=10, maxHeight=6, plus border and padding.
	if lines := strings.Count(result, "\n"); lines > 20 {
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestDebugToggle(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	app := NewApp(Options{Ring: ring})
	app.ready = true
	app.width = 80
	app.height = 24
	app.focus = focusList

	if app.showDebug {
		t.Error("debug should be hidden initially")
	}

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'D'}})
	updated := model.(App)
	if !updated.showDebug {
		t.Error("D should show debug overlay")
	}

	view := updated.View()
	if !strings.Contains(view, "[DEBUG]") {
		t.Errorf("debug view should contain '[DEBUG]', got:\n%s", view)
	}

	model, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'D'}})
	updated = model.(App)
	if updated.showDebug {
		t.Error("second D should hide debug overlay")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0ms"},
		{50 * time.Millisecond, "50ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "2m"}, // 1.5 minutes rounds to 2 with %.0f
		{5 * time.Minute, "5m"},
		{-5 * time.Second, "0ms"},
	}
	for _, tt := range tests {
		got := formatAge(tt.dur)
		if got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}
