package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
)

// makeRows returns 5 newest, 10 most downloaded, then nearby rows.
func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		c := search.Nearby
		switch {
		case i < 5:
			c = search.Newest
		case i < 15:
			c = search.MostDownloaded
		}
		rows[i] = Row{Sound: catalog.Sound{ID: int64(i), Name: strings.Repeat("x", 20)}, Category: c}
	}
	return rows
}

func TestCalcScrollOffset(t *testing.T) {
	rows := makeRows(40)

	tests := []struct {
		name   string
		cursor int
		height int
		want   int
	}{
		{"cursor at top", 0, 30, 0},
		{"cursor within viewport", 10, 30, 0},
		// rows 0..26 plus three headers fill 30 lines
		{"cursor at viewport edge", 26, 30, 0},
		{"cursor one past edge", 27, 30, 1},
		{"small viewport inside category", 12, 5, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calcScrollOffset(rows, tt.cursor, tt.height)
			if got != tt.want {
				t.Errorf("calcScrollOffset(cursor=%d, height=%d) = %d, want %d",
					tt.cursor, tt.height, got, tt.want)
			}
			if lines := visibleLineCount(rows, got, tt.cursor); lines > tt.height {
				t.Errorf("offset %d leaves %d lines for height %d", got, lines, tt.height)
			}
		})
	}
}

func TestCalcScrollOffsetEmpty(t *testing.T) {
	if got := calcScrollOffset(nil, 3, 10); got != 0 {
		t.Errorf("empty rows: got %d", got)
	}
}

func TestVisibleLineCount(t *testing.T) {
	rows := makeRows(20)
	// header + 5 newest + header + 10 downloaded + header + 5 nearby
	if got := visibleLineCount(rows, 0, 19); got != 23 {
		t.Errorf("visibleLineCount(all) = %d, want 23", got)
	}
	// rows 6..7 continue the most downloaded run: no header
	if got := visibleLineCount(rows, 6, 7); got != 2 {
		t.Errorf("visibleLineCount(6..7) = %d, want 2", got)
	}
}

func TestRenderResultsHeadersOnCategoryChange(t *testing.T) {
	rows := []Row{
		{Sound: catalog.Sound{Name: "n1"}, Category: search.Newest},
		{Sound: catalog.Sound{Name: "d1"}, Category: search.MostDownloaded},
		{Sound: catalog.Sound{Name: "d2"}, Category: search.MostDownloaded},
		{Sound: catalog.Sound{Name: "n2"}, Category: search.Newest},
	}
	out := RenderResults(rows, 0, 80, 20)

	// A late continuation of a higher tier starts a new run under its own header.
	if got := strings.Count(out, "Newest sounds"); got != 2 {
		t.Errorf("expected 2 newest headers, got %d:\n%s", got, out)
	}
	if got := strings.Count(out, "Most downloaded sounds"); got != 1 {
		t.Errorf("expected 1 most downloaded header, got %d", got)
	}
	if strings.Index(out, "n1") > strings.Index(out, "d1") || strings.Index(out, "d2") > strings.Index(out, "n2") {
		t.Error("rows should render in arrival order")
	}
}

func TestRenderResultsFitsHeight(t *testing.T) {
	out := RenderResults(makeRows(40), 39, 80, 10)
	if lines := strings.Count(out, "\n"); lines > 10 {
		t.Errorf("rendered %d lines into height 10", lines)
	}
}

func TestRenderRowShowsUserAndLength(t *testing.T) {
	line := renderRow(Row{Sound: catalog.Sound{Name: "rain on tin", Username: "ana", Duration: 75.4}}, false, 80)
	for _, want := range []string{"rain on tin", "👤ana", "1:15"} {
		if !strings.Contains(line, want) {
			t.Errorf("row should contain %q, got %q", want, line)
		}
	}
}

func TestFormatLength(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, ""},
		{400 * time.Millisecond, "0:00"},
		{9 * time.Second, "0:09"},
		{61*time.Second + 600*time.Millisecond, "1:02"},
		{10 * time.Minute, "10:00"},
	}
	for _, tt := range tests {
		if got := formatLength(tt.d); got != tt.want {
			t.Errorf("formatLength(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestPreviewMarkdown(t *testing.T) {
	md := previewMarkdown(catalog.Sound{
		Name:        "Thunder",
		Username:    "stormchaser",
		Description: "Distant thunder.",
		License:     "http://creativecommons.org/publicdomain/zero/1.0/",
		Created:     "2014-04-16T20:07:11",
		URL:         "https://freesound.org/people/stormchaser/sounds/1/",
		Previews:    map[string]string{"preview-lq-mp3": "https://cdn/1.mp3"},
		Images:      map[string]string{"waveform_l": "https://cdn/1.png"},
		Tags:        []string{"thunder", "storm"},
	})
	for _, want := range []string{
		"## Thunder",
		"![waveform](https://cdn/1.png)",
		"👤 **stormchaser**",
		"[Preview](https://cdn/1.mp3)",
		"Created Apr 16, 2014",
		"Distant thunder.",
		"`thunder` `storm`",
		"License: http://creativecommons.org/publicdomain/zero/1.0/",
		"[Open](https://freesound.org/people/stormchaser/sounds/1/)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("preview should contain %q, got:\n%s", want, md)
		}
	}
}

func TestRenderPreviewFallsBack(t *testing.T) {
	out := renderPreview(nil, catalog.Sound{Name: "plain"})
	if !strings.Contains(out, "## plain") {
		t.Errorf("nil renderer should return markdown, got %q", out)
	}
}

// recordingSender captures messages sent to the program.
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestProgramSinkPreservesOrder(t *testing.T) {
	rec := &recordingSender{}
	sink := NewProgramSink(rec, "q-7", nil)

	seq := sequence.New[catalog.Sound](sink, sequence.DefaultTiers)
	_ = seq.IngestBatch([]catalog.Sound{{Name: "g1"}}, search.Nearby)
	_ = seq.IngestBatch([]catalog.Sound{{Name: "n1"}, {Name: "n2"}}, search.Newest)
	_ = seq.IngestBatch([]catalog.Sound{{Name: "d1"}}, search.MostDownloaded)

	want := []string{"n1", "n2", "d1", "g1"}
	if len(rec.msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(rec.msgs), len(want))
	}
	for i, m := range rec.msgs {
		re, ok := m.(ResultEmitted)
		if !ok {
			t.Fatalf("message %d is %T", i, m)
		}
		if re.QueryID != "q-7" || re.Sound.Name != want[i] {
			t.Errorf("message %d = %+v, want %s", i, re, want[i])
		}
	}
}
