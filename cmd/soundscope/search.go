package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
)

var (
	showURLsFlag    bool
	departmentsFlag bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one search and print the merged results",
	Example: `  soundscope search rain
  soundscope search -d birds -n 0 "dawn chorus"
  soundscope search --location 41.39,2.17 bells`,
	Args: func(cmd *cobra.Command, args []string) error {
		if departmentsFlag {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&showURLsFlag, "urls", false, "print each sound's page URL")
	searchCmd.Flags().BoolVar(&departmentsFlag, "departments", false, "list departments and exit")
}

func runSearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if departmentsFlag {
		for _, d := range catalog.Departments {
			fmt.Fprintln(out, d)
		}
		return nil
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	req := e.request(strings.Join(args, " "), e.cfg.Search.Department)
	sink := &textSink{w: out, urls: showURLsFlag}
	sum, err := e.run(ctx, req, sink)

	if sum.Emitted() == 0 && err == nil {
		fmt.Fprintln(out, "No results.")
	}
	printSummary(cmd.ErrOrStderr(), sum)
	return err
}

// textSink prints results as they are emitted, with a heading whenever the
// category changes.
type textSink struct {
	w    io.Writer
	urls bool

	started bool
	last    sequence.Category
}

func (s *textSink) Emit(snd catalog.Sound, c sequence.Category) {
	if !s.started || c != s.last {
		if s.started {
			fmt.Fprintln(s.w)
		}
		fmt.Fprintln(s.w, search.CategoryTitle(c))
		s.started = true
		s.last = c
	}
	line := fmt.Sprintf("  %-48s %-20s %6s", clip(snd.Name, 48), clip("👤"+snd.Username, 20), formatSeconds(snd.Duration))
	fmt.Fprintln(s.w, strings.TrimRight(line, " "))
	if s.urls && snd.URL != "" {
		fmt.Fprintln(s.w, "    "+snd.URL)
	}
}

func printSummary(w io.Writer, sum search.Summary) {
	for _, c := range sum.Requested {
		if err, ok := sum.Errors[c]; ok {
			fmt.Fprintf(w, "%s: failed: %v\n", search.CategoryName(c), err)
		}
	}
	if held := sum.Held(); held > 0 {
		fmt.Fprintf(w, "%d results held back because a higher category produced nothing\n", held)
	}
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func formatSeconds(secs float64) string {
	if secs <= 0 {
		return ""
	}
	total := int(secs + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Compile-time check.
var _ sequence.Sink[catalog.Sound] = (*textSink)(nil)
