// download.go implements the "programapi download" command.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/europython/programapi/internal/download"
	"github.com/europython/programapi/internal/log"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch submissions, speakers and the schedule from pretalx",
	Long: `Download the raw collections of the configured event from the pretalx
API into <paths.raw>/<event>/. The API token is read from download.token
or the PRETALX_TOKEN environment variable.`,
	RunE: runDownload,
}

var downloadEvent string

func init() {
	downloadCmd.Flags().StringVar(&downloadEvent, "event", "", "Override the configured event")
}

func runDownload(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if downloadEvent != "" {
		cfg.Event = downloadEvent
	}
	if cfg.Download.Token == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no pretalx token configured; only public data will be returned")
	}

	logger, err := log.NewLogger(root)
	if err != nil {
		return err
	}

	client := download.NewClient(
		cfg.Download.BaseURL,
		cfg.Event,
		cfg.Download.Token,
		cfg.Download.PageSize,
		time.Duration(cfg.Download.TimeoutSeconds)*time.Second,
	)
	client.Retries = cfg.Download.MaxRetries
	dir := cfg.RawDir(root)
	start := time.Now()

	results, err := download.Download(cmd.Context(), client, dir)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	for _, r := range results {
		if r.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-12s not available, skipped\n", r.Resource)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %5d record(s) -> %s\n", r.Resource, r.Records, r.Path)
		if logErr := logger.Append(log.LogEvent{
			Event:      log.EventDownloadComplete,
			EventName:  cfg.Event,
			Resource:   r.Resource,
			Records:    r.Records,
			Output:     r.Path,
			DurationMs: time.Since(start).Milliseconds(),
		}); logErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to log %s download: %v\n", r.Resource, logErr)
		}
	}
	return nil
}
