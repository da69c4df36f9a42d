package main

import (
	"context"
	"io"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/logging"
	"github.com/abelbrown/soundscope/internal/otel"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/ui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	// The browser helper prints to the terminal the TUI owns.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard

	var program *tea.Program

	opts := ui.Options{
		Search: func(ctx context.Context, req search.Request) tea.Cmd {
			return func() tea.Msg {
				program.Send(ui.SearchStarted{QueryID: req.ID, Text: req.Text})
				sum, err := e.run(ctx, req, ui.NewProgramSink(program, req.ID, e.events))
				return ui.SearchComplete{QueryID: req.ID, Summary: sum, Err: err}
			}
		},
		Open: func(url string) tea.Cmd {
			return func() tea.Msg {
				err := browser.OpenURL(url)
				e.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindActivate, Comp: "ui", Msg: url, Err: errString(err)})
				return ui.Activated{URL: url, Err: err}
			}
		},
		Copy: func(url string) tea.Cmd {
			return func() tea.Msg {
				return ui.Copied{URL: url, Err: clipboard.WriteAll(url)}
			}
		},
		Ring:       e.ring,
		Department: e.cfg.Search.Department,
		PageSize:   catalog.PageSize(e.cfg.Search.PageSize),
		RadiusKm:   e.cfg.Search.NearbyRadius,
		ShowCounts: e.cfg.UI.ShowCounts,
		DebugLines: e.cfg.UI.DebugLines,
	}
	if e.cfg.Location.Enabled {
		opts.Location = &catalog.Location{Latitude: e.cfg.Location.Latitude, Longitude: e.cfg.Location.Longitude}
	}

	program = tea.NewProgram(ui.NewApp(opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logging.Error("Program exited", "error", err)
		return err
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
