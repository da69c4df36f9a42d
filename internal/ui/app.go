package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/otel"
	"github.com/abelbrown/soundscope/internal/search"
)

// SearchFunc returns a Cmd that runs req, delivering ResultEmitted messages
// while it runs and SearchComplete as its result.
type SearchFunc func(ctx context.Context, req search.Request) tea.Cmd

// URLFunc returns a Cmd acting on a result's page URL.
type URLFunc func(url string) tea.Cmd

// Options wires an App. Only Search is required.
type Options struct {
	Search SearchFunc
	Open   URLFunc // result -> Activated
	Copy   URLFunc // result -> Copied
	Ring   *otel.RingBuffer

	Department string
	PageSize   int
	Location   *catalog.Location
	RadiusKm   float64
	ShowCounts bool
	DebugLines int
}

type focus int

const (
	focusInput focus = iota
	focusList
)

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT run searches or touch the network. It receives
// results via messages and hands requests to the injected SearchFunc.
type App struct {
	opts Options

	input   textinput.Model
	spinner spinner.Model
	focus   focus
	deptIdx int // 0 = all, else catalog.Departments[deptIdx-1]

	queryID   string
	cancel    context.CancelFunc
	searching bool
	rows      []Row
	cursor    int
	summary   *search.Summary
	status    string
	err       error

	preview   bool
	renderer  *glamour.TermRenderer
	showDebug bool

	width  int
	height int
	ready  bool
}

// NewApp creates an App.
func NewApp(opts Options) App {
	ti := textinput.New()
	ti.Placeholder = "Search sounds..."
	ti.Prompt = "🔎 "
	ti.CharLimit = 200
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	a := App{opts: opts, input: ti, spinner: sp, focus: focusInput}
	for i, d := range catalog.Departments {
		if d == opts.Department {
			a.deptIdx = i + 1
		}
	}
	return a
}

// Init starts the cursor blink.
func (a App) Init() tea.Cmd {
	return textinput.Blink
}

// Department returns the active department, empty for all.
func (a App) Department() string {
	if a.deptIdx == 0 {
		return ""
	}
	return catalog.Departments[a.deptIdx-1]
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.input.Width = msg.Width - 20
		a.renderer = newRenderer(msg.Width/2 - 4)
		return a, nil

	case SearchStarted:
		if msg.QueryID == a.queryID {
			a.status = fmt.Sprintf("searching %q", msg.Text)
		}
		return a, nil

	case ResultEmitted:
		if msg.QueryID != a.queryID {
			return a, nil // stale search
		}
		a.rows = append(a.rows, Row{Sound: msg.Sound, Category: msg.Category})
		return a, nil

	case SearchComplete:
		if msg.QueryID != a.queryID {
			return a, nil
		}
		a.searching = false
		sum := msg.Summary
		a.summary = &sum
		switch {
		case errors.Is(msg.Err, context.Canceled):
			a.status = "cancelled"
		case msg.Err != nil:
			a.err = msg.Err
			a.status = ""
		default:
			a.status = fmt.Sprintf("%d results in %s", sum.Emitted(), sum.Dur.Round(10*time.Millisecond))
			if held := sum.Held(); held > 0 {
				a.status += fmt.Sprintf(" (%d held back)", held)
			}
		}
		return a, nil

	case Activated:
		if msg.Err != nil {
			a.err = msg.Err
		} else {
			a.status = "opened " + msg.URL
		}
		return a, nil

	case Copied:
		if msg.Err != nil {
			a.err = msg.Err
		} else {
			a.status = "copied " + msg.URL
		}
		return a, nil

	case spinner.TickMsg:
		if !a.searching {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.focus == focusInput {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.err != nil {
		a.err = nil
	}

	switch msg.String() {
	case "ctrl+c":
		a.stop()
		return a, tea.Quit
	case "tab":
		a.deptIdx = (a.deptIdx + 1) % (len(catalog.Departments) + 1)
		return a, nil
	case "shift+tab":
		a.deptIdx = (a.deptIdx + len(catalog.Departments)) % (len(catalog.Departments) + 1)
		return a, nil
	}

	if a.focus == focusInput {
		switch msg.String() {
		case "enter":
			return a.startSearch()
		case "esc":
			a.focus = focusList
			a.input.Blur()
			return a, nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "q":
		a.stop()
		return a, tea.Quit

	case "/", "i":
		a.focus = focusInput
		return a, a.input.Focus()

	case "esc":
		if a.searching {
			a.stop()
			a.searching = false
			a.status = "cancelled"
		}
		return a, nil

	case "j", "down":
		if a.cursor < len(a.rows)-1 {
			a.cursor++
		}
		return a, nil

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		return a, nil

	case "G", "end":
		if len(a.rows) > 0 {
			a.cursor = len(a.rows) - 1
		}
		return a, nil

	case "enter":
		if s, ok := a.selected(); ok && a.opts.Open != nil && s.URL != "" {
			return a, a.opts.Open(s.URL)
		}
		return a, nil

	case "y":
		if s, ok := a.selected(); ok && a.opts.Copy != nil && s.URL != "" {
			return a, a.opts.Copy(s.URL)
		}
		return a, nil

	case "p":
		a.preview = !a.preview
		return a, nil

	case "D":
		a.showDebug = !a.showDebug
		return a, nil
	}
	return a, nil
}

// startSearch cancels any running search and dispatches a new one.
func (a App) startSearch() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.input.Value())
	if text == "" || a.opts.Search == nil {
		return a, nil
	}
	a.stop()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.queryID = uuid.NewString()
	a.rows = nil
	a.cursor = 0
	a.summary = nil
	a.err = nil
	a.searching = true
	a.status = fmt.Sprintf("searching %q", text)
	a.focus = focusList
	a.input.Blur()

	req := search.Request{
		ID:         a.queryID,
		Text:       text,
		Department: a.Department(),
		PageSize:   a.opts.PageSize,
		Location:   a.opts.Location,
		RadiusKm:   a.opts.RadiusKm,
	}
	return a, tea.Batch(a.opts.Search(ctx, req), a.spinner.Tick)
}

func (a *App) stop() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a App) selected() (catalog.Sound, bool) {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return catalog.Sound{}, false
	}
	return a.rows[a.cursor].Sound, true
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		return debugOverlay(a.opts.Ring, a.queryID, a.opts.DebugLines, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	header := a.renderSearchBar()
	contentHeight := a.height - 2
	if a.opts.ShowCounts && a.summary != nil {
		contentHeight--
	}
	if a.err != nil {
		contentHeight--
	}

	body := a.renderBody(contentHeight)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(body)
	if a.opts.ShowCounts && a.summary != nil {
		b.WriteString(renderCounts(a.summary.Stats, a.summary.Requested))
		b.WriteString("\n")
	}
	if a.err != nil {
		b.WriteString(ErrorStyle.Width(a.width).Render("Error: " + a.err.Error() + " (press any key to dismiss)"))
		b.WriteString("\n")
	}

	status := a.status
	if a.searching {
		status = a.spinner.View() + " " + status
	}
	b.WriteString(RenderStatusBar(status, a.width))
	return b.String()
}

func (a App) renderSearchBar() string {
	dept := "all"
	if d := a.Department(); d != "" {
		dept = d
	}
	content := a.input.View() + "  " + DepartmentBadge.Render("["+dept+"]")
	return SearchBar.Width(a.width).Render(content)
}

func (a App) renderBody(height int) string {
	if len(a.rows) == 0 {
		msg := "Type a query and press Enter."
		if a.searching {
			msg = "Waiting for newest sounds..."
		} else if a.summary != nil {
			msg = "No results."
		}
		return lipgloss.NewStyle().Height(height).Render(HelpStyle.Render(msg)) + "\n"
	}

	listWidth := a.width
	if a.preview {
		listWidth = a.width / 2
	}
	list := lipgloss.NewStyle().Width(listWidth).Height(height).MaxHeight(height).
		Render(strings.TrimRight(RenderResults(a.rows, a.cursor, listWidth, height), "\n"))

	if !a.preview {
		return list + "\n"
	}
	s, _ := a.selected()
	pane := lipgloss.NewStyle().Width(a.width - listWidth).Height(height).MaxHeight(height).
		Render(renderPreview(a.renderer, s))
	return lipgloss.JoinHorizontal(lipgloss.Top, list, pane) + "\n"
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Rows returns the current rows (for testing).
func (a App) Rows() []Row {
	return a.rows
}

// QueryID returns the ID of the current search.
func (a App) QueryID() string {
	return a.queryID
}
