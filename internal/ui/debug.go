package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/soundscope/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing pipeline stats, the batches of
// search qid and recent events. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, qid string, recentN, width, height int) string {
	if ring == nil {
		return ""
	}
	if recentN <= 0 {
		recentN = 20
	}

	stats := ring.Stats()
	recent := ring.Last(recentN)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Pipeline Stats"))
	lines = append(lines, fmt.Sprintf("  Requests:   %d sent, %d retried, %d failed",
		stats[otel.KindCatalogRequest], stats[otel.KindCatalogRetry], stats[otel.KindCatalogError]))
	lines = append(lines, fmt.Sprintf("  Batches:    %d complete, %d errors, %d breaches",
		stats[otel.KindBatchComplete], stats[otel.KindBatchError], stats[otel.KindContractBreach]))
	lines = append(lines, fmt.Sprintf("  Searches:   %d started, %d complete, %d cancelled",
		stats[otel.KindSearchStart], stats[otel.KindSearchComplete], stats[otel.KindSearchCancel]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	if batches := batchLines(ring.ForQuery(qid)); qid != "" && len(batches) > 0 {
		lines = append(lines, DebugHeaderStyle.Render("Current Search"))
		lines = append(lines, batches...)
		lines = append(lines, "")
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-22s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Category != "" {
			line += "  " + e.Category
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.QueryID != "" {
			qid := e.QueryID
			if len(qid) > 8 {
				qid = qid[:8]
			}
			line += "  qid:" + qid
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// batchLines summarizes the batch outcomes among events, in arrival order.
func batchLines(events []otel.Event) []string {
	var out []string
	for _, e := range events {
		switch e.Kind {
		case otel.KindBatchComplete:
			out = append(out, fmt.Sprintf("  %-16s %3d results  %s", e.Category, e.Count, formatAge(e.Dur)))
		case otel.KindBatchError:
			out = append(out, fmt.Sprintf("  %-16s failed       %s  ERR:%s", e.Category, formatAge(e.Dur), truncateRunes(e.Err, 30)))
		}
	}
	return out
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
