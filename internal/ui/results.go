package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
)

// Row is one result as displayed.
type Row struct {
	Sound    catalog.Sound
	Category sequence.Category
}

// RenderResults renders rows with a category header wherever the category
// changes from the previous row. Rows arrive already in display order.
func RenderResults(rows []Row, cursor, width, height int) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	rendered := 0
	avail := height
	if avail < 1 {
		avail = 1
	}

	offset := calcScrollOffset(rows, cursor, avail)

	// A header belongs to the row that starts a run, so the first visible row
	// only gets one if its predecessor had a different category.
	prev := sequence.Category(-1)
	if offset > 0 {
		prev = rows[offset-1].Category
	}

	for i := offset; i < len(rows) && rendered < avail; i++ {
		r := rows[i]
		if r.Category != prev {
			prev = r.Category
			b.WriteString(categoryHeader(r.Category).Render(search.CategoryTitle(r.Category)))
			b.WriteString("\n")
			rendered++
			if rendered >= avail {
				break
			}
		}
		b.WriteString(renderRow(r, i == cursor, width))
		b.WriteString("\n")
		rendered++
	}
	return b.String()
}

// calcScrollOffset finds the smallest row index such that every line from
// that row through the cursor, headers included, fits in avail lines.
func calcScrollOffset(rows []Row, cursor, avail int) int {
	if len(rows) == 0 || cursor < 0 {
		return 0
	}
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}

	offset := 0
	if cursor >= avail {
		offset = cursor - avail + 1
	}
	for offset <= cursor {
		if visibleLineCount(rows, offset, cursor) <= avail {
			return offset
		}
		offset++
	}
	return cursor
}

// visibleLineCount counts the lines rows[from..to] produce, including any
// category headers inside that range.
func visibleLineCount(rows []Row, from, to int) int {
	lines := 0
	prev := sequence.Category(-1)
	if from > 0 {
		prev = rows[from-1].Category
	}
	for i := from; i <= to && i < len(rows); i++ {
		if rows[i].Category != prev {
			prev = rows[i].Category
			lines++
		}
		lines++
	}
	return lines
}

// renderRow renders "name  user ....... 0:12".
func renderRow(r Row, selected bool, width int) string {
	badge := ""
	if r.Sound.Username != "" {
		badge = UserBadge.Render("👤" + r.Sound.Username)
	}
	length := formatLength(r.Sound.Length())
	metaWidth := 7

	nameWidth := width - lipgloss.Width(badge) - metaWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}
	name := truncateRunes(r.Sound.Name, nameWidth)

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	left := style.Render(name) + " " + badge

	pad := width - lipgloss.Width(left) - metaWidth
	if pad < 1 {
		pad = 1
	}
	meta := strings.Repeat(" ", metaWidth-utf8.RuneCountInString(length)) + length
	return left + strings.Repeat(" ", pad) + MetaItem.Render(meta)
}

// formatLength formats a sound duration as m:ss.
func formatLength(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// RenderStatusBar renders the bottom bar: search state on the left, key hints
// on the right.
func RenderStatusBar(status string, width int) string {
	keys := []string{
		StatusBarKey.Render("/") + StatusBarText.Render(":search"),
		StatusBarKey.Render("tab") + StatusBarText.Render(":dept"),
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("enter") + StatusBarText.Render(":open"),
		StatusBarKey.Render("p") + StatusBarText.Render(":preview"),
		StatusBarKey.Render("y") + StatusBarText.Render(":copy"),
		StatusBarKey.Render("D") + StatusBarText.Render(":debug"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	hints := strings.Join(keys, " ")

	left := " " + status + " "
	padding := width - lipgloss.Width(left) - lipgloss.Width(hints) - 2
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + hints)
}

// renderCounts renders "newest 3/15 · most_downloaded 0/15 · nearby …".
func renderCounts(stats []sequence.CategoryStats, requested []sequence.Category) string {
	parts := make([]string, 0, len(requested))
	for _, c := range requested {
		if int(c) >= len(stats) {
			continue
		}
		st := stats[c]
		total := "?"
		if st.Total >= 0 {
			total = fmt.Sprint(st.Total)
		}
		parts = append(parts, fmt.Sprintf("%s %d/%s", search.CategoryName(c), st.Emitted, total))
	}
	return CountStyle.Render(strings.Join(parts, " · "))
}
