// report.go implements the "programapi report" command showing the last run report.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/europython/programapi/internal/config"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the report of the last successful run",
	Long: `Display the report written by the most recent successful transform
run, including counts, warnings and the output directory.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	path := filepath.Join(root, config.Dir, "report.md")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no completed runs found; start one with: programapi transform")
	}
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
