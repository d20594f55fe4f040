// status.go implements the "programapi status" command showing recent runs.
package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/europython/programapi/internal/config"
	"github.com/europython/programapi/internal/history"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent transform runs",
	Long: `Display the most recent transform runs of the configured event,
followed by the warnings of the latest run.`,
	RunE: runStatus,
}

var (
	statusLimit int
	statusAll   bool
)

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of runs to show")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "Show runs of every event")
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	store, err := history.NewStore(filepath.Join(root, config.Dir, history.FileName))
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	event := cfg.Event
	if statusAll {
		event = ""
	}
	return printStatus(cmd.OutOrStdout(), store, event, statusLimit)
}

func printStatus(w io.Writer, store *history.Store, event string, limit int) error {
	runs, err := store.ListRuns(event, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no runs found; start one with: programapi transform")
	}

	fmt.Fprintln(w, "Program API Status")
	fmt.Fprintln(w)
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %-16s  %-10s  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Event, r.Status, formatRunExtra(r))
	}

	latest := runs[0]
	warnings, err := store.GetWarnings(latest.ID)
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Warnings of run %s:\n", latest.ID)
		for _, wn := range warnings {
			fmt.Fprintf(w, "  [%s] %s\n", wn.Kind, wn.Message)
		}
	}
	return nil
}

// formatRunExtra returns the counts or failure details of a run.
func formatRunExtra(r history.Run) string {
	var extra string
	switch r.Status {
	case history.StatusSucceeded:
		extra = fmt.Sprintf("%d sessions, %d speakers, %d days", r.Sessions, r.Speakers, r.Days)
		if r.Warnings > 0 {
			extra += fmt.Sprintf(", %d warning(s)", r.Warnings)
		}
	case history.StatusFailed:
		extra = r.ErrorKind
	}
	if r.DryRun {
		extra += " [dry run]"
	}
	return extra
}
