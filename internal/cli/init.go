// init.go implements the "programapi init" command.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/europython/programapi/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize programapi in the current project",
	Long: `Write .programapi/config.yaml with default settings and create the
raw data directory for the configured event.`,
	RunE: runInit,
}

var (
	initEvent string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initEvent, "event", "", "Event slug to configure (defaults to the built-in event)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	written, err := initProject(root, initEvent, initForce, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil || !written {
		return err
	}

	if err := ensureGitignore(root); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to set up .gitignore: %v\n", err)
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", config.Path(root))
	fmt.Fprintln(cmd.OutOrStdout(), "Next steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Set PRETALX_TOKEN and run: programapi download")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Run: programapi transform")
	return nil
}

// initProject writes the default config. When a config already exists and
// force is false, the user is asked on in before it is replaced. Reports
// whether the config was written.
func initProject(root, event string, force bool, in io.Reader, out io.Writer) (bool, error) {
	if _, err := os.Stat(config.Path(root)); err == nil && !force {
		fmt.Fprintf(out, "Warning: %s already exists.\n", config.Path(root))
		fmt.Fprint(out, "Reinitialize? [y/N]: ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return false, nil
		}
	}

	cfg := config.DefaultConfig()
	if event != "" {
		cfg.Event = event
	}

	if err := config.WriteConfig(root, cfg); err != nil {
		return false, fmt.Errorf("writing config: %w", err)
	}
	if err := os.MkdirAll(cfg.RawDir(root), 0755); err != nil {
		return false, fmt.Errorf("creating raw directory: %w", err)
	}
	return true, nil
}

// ensureGitignore creates or appends to .gitignore with the runtime files
// that should never be committed. Entries already present are not repeated.
func ensureGitignore(dir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	// config.yaml IS committed.
	requiredEntries := []string{
		".env",
		".programapi/log.jsonl",
		".programapi/history.db",
		".programapi/report.md",
	}

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range requiredEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	if existing != "" {
		toAppend.WriteString("\n# Added by programapi init\n")
	}
	for _, entry := range missing {
		toAppend.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}
