// Command soundscope searches Freesound three ways at once and shows the
// newest sounds first, then the most downloaded, then those recorded nearby.
//
// Usage:
//
//	soundscope                 Interactive search (TUI)
//	soundscope search <query>  One-shot search printed to stdout
//	soundscope history [id]    Past searches, or the results of one
//	soundscope events          JSONL event log viewer
//	soundscope config [init]   Show or create the config file
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	dataDirFlag    string
	debugFlag      bool
	traceFlag      bool
	departmentFlag string
	pageSizeFlag   int
	locationFlag   string
	noNearbyFlag   bool
)

var rootCmd = &cobra.Command{
	Use:     "soundscope",
	Short:   "Search Freesound by recency, popularity and proximity",
	Version: version,
	Long: `soundscope runs three Freesound searches for every query and merges them
into one list: newest sounds first, then the most downloaded, then sounds
recorded near you. Results are shown as soon as their place in that order is
settled, whatever order the searches finish in.

Environment:
  FREESOUND_API_KEY    Freesound API token (required)
  SOUNDSCOPE_LOCATION  "lat,lon" for nearby results
  SOUNDSCOPE_DATA_DIR  data directory (default ~/.soundscope)
  SOUNDSCOPE_TRACE     log every emitted result to the event log`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDirFlag, "data-dir", "", "data directory (default $SOUNDSCOPE_DATA_DIR or ~/.soundscope)")
	pf.BoolVar(&debugFlag, "debug", false, "debug level in the log file")
	pf.BoolVar(&traceFlag, "trace", false, "log every emitted result to the event log")
	pf.StringVarP(&departmentFlag, "department", "d", "", "restrict results to one tag (see 'soundscope search --departments')")
	pf.IntVarP(&pageSizeFlag, "page-size", "n", -1, "results per category: 0=3 1=15 2=30 3=45")
	pf.StringVar(&locationFlag, "location", "", `"lat,lon" for nearby results`)
	pf.BoolVar(&noNearbyFlag, "no-nearby", false, "skip nearby results")

	rootCmd.AddCommand(searchCmd, historyCmd, eventsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
