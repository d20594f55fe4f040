// clean.go implements the "programapi clean" command for pruning archived snapshots.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/europython/programapi/internal/cleanup"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old archived output snapshots",
	Long: `Remove archived output snapshots from <paths.archive>/<event>/.

By default, removes snapshots older than the configured archive.max_age_days
(default 30). Use --keep to keep only the N most recent snapshots instead.
Use --dry-run to preview what would be removed.`,
	RunE: runClean,
}

var (
	keepFlag   int
	dryRunFlag bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the last N snapshots (0 = use age-based cleanup)")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	archiveDir := cfg.ArchiveDir(root)
	if archiveDir == "" {
		return fmt.Errorf("archiving is disabled (paths.archive is empty)")
	}

	var pruned []string
	if keepFlag > 0 {
		pruned, err = cleanup.PruneKeepRecent(archiveDir, keepFlag, dryRunFlag)
	} else {
		maxAge := cfg.Archive.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		pruned, err = cleanup.PruneByAge(archiveDir, maxAge, time.Now(), dryRunFlag)
	}
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(pruned) == 0 {
		fmt.Fprintln(out, "No snapshots to clean up.")
		return nil
	}

	verb := "Removed"
	if dryRunFlag {
		verb = "Would remove"
	}
	for _, name := range pruned {
		fmt.Fprintf(out, "  %s %s\n", verb, name)
	}
	fmt.Fprintf(out, "%s %d snapshot(s).\n", verb, len(pruned))

	return nil
}
