package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/abelbrown/soundscope/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [search-id]",
	Short: "List past searches, or the results of one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of searches to list")
}

var (
	historyHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA")).Padding(0, 1)
	historyCell   = lipgloss.NewStyle().Padding(0, 1)
	historyBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A"))
)

func runHistory(cmd *cobra.Command, args []string) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	path, err := store.Discover(dataDir)
	if errors.Is(err, store.ErrNoDatabase) {
		fmt.Fprintln(out, "No history yet.")
		return nil
	}
	if err != nil {
		return err
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		results, err := st.Results(args[0])
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("%w: %s", store.ErrNotFound, args[0])
		}
		return printResults(out, results)
	}

	searches, err := st.RecentSearches(historyLimit)
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		fmt.Fprintln(out, "No history yet.")
		return nil
	}
	return printSearches(out, searches)
}

func newHistoryTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(historyBorder).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return historyHeader
			}
			return historyCell
		})
}

func printSearches(w io.Writer, searches []store.Search) error {
	t := newHistoryTable("ID", "Started", "Query", "Dept", "Shown", "Held", "Took", "Error")
	for _, s := range searches {
		t.Row(
			s.ID,
			s.Started.Local().Format("2006-01-02 15:04"),
			clip(s.Query, 32),
			s.Department,
			strconv.Itoa(s.Emitted),
			strconv.Itoa(s.Held),
			took(s),
			clip(s.Err, 40),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func printResults(w io.Writer, results []store.Result) error {
	t := newHistoryTable("#", "Category", "Name", "User", "URL")
	for _, r := range results {
		t.Row(strconv.Itoa(r.Position+1), r.Category, clip(r.Name, 40), r.Username, r.URL)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func took(s store.Search) string {
	if s.Finished.IsZero() {
		return "-"
	}
	return s.Finished.Sub(s.Started).Round(10 * time.Millisecond).String()
}
