package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/abelbrown/soundscope/internal/catalog"
)

// previewMarkdown describes a sound: waveform, uploader, audio preview,
// creation date with description and license, and a link to its page.
func previewMarkdown(s catalog.Sound) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", s.Name)
	if w := s.Waveform(); w != "" {
		fmt.Fprintf(&b, "![waveform](%s)\n\n", w)
	}
	if s.Username != "" {
		fmt.Fprintf(&b, "👤 **%s**\n\n", s.Username)
	}
	if p := s.PreviewURL(); p != "" {
		fmt.Fprintf(&b, "🔊 [Preview](%s)", p)
		if l := formatLength(s.Length()); l != "" {
			fmt.Fprintf(&b, " (%s)", l)
		}
		b.WriteString("\n\n")
	}

	if t := s.CreatedAt(); !t.IsZero() {
		fmt.Fprintf(&b, "*Created %s*\n\n", t.Format("Jan 2, 2006"))
	}
	if d := strings.TrimSpace(s.Description); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: `%s`\n\n", strings.Join(s.Tags, "` `"))
	}
	if s.License != "" {
		fmt.Fprintf(&b, "License: %s\n\n", s.License)
	}
	if s.URL != "" {
		fmt.Fprintf(&b, "[Open](%s)\n", s.URL)
	}
	return b.String()
}

// newRenderer creates the preview renderer for a pane of the given width.
func newRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderPreview renders s with r, falling back to the raw markdown when r is
// nil or rendering fails.
func renderPreview(r *glamour.TermRenderer, s catalog.Sound) string {
	md := previewMarkdown(s)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
