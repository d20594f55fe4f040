// transform.go implements the "programapi transform" command.
package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/europython/programapi/internal/config"
	"github.com/europython/programapi/internal/dedupe"
	"github.com/europython/programapi/internal/history"
	"github.com/europython/programapi/internal/log"
	"github.com/europython/programapi/internal/model"
	"github.com/europython/programapi/internal/pipeline"
	"github.com/europython/programapi/internal/relate"
	"github.com/europython/programapi/internal/report"
	"github.com/europython/programapi/internal/ui"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Build and publish the programme documents",
	Long: `Read the downloaded raw data of the configured event, build
sessions.json, speakers.json and schedule.json, and publish them.

A failed run never touches previously published output. Exit codes:
3 malformed record, 4 dangling reference, 5 duplicate collision,
1 any other failure.`,
	RunE: runTransform,
}

// transformFlags are command-line overrides of the config.
type transformFlags struct {
	Event        string
	Duplicates   string
	Dangling     string
	KeepSpeakers bool
	DryRun       bool
}

var tflags transformFlags

func init() {
	transformCmd.Flags().StringVar(&tflags.Event, "event", "", "Override the configured event")
	transformCmd.Flags().StringVar(&tflags.Duplicates, "duplicates", "", "Duplicate policy: FAIL, WARN or ALLOW")
	transformCmd.Flags().StringVar(&tflags.Dangling, "dangling", "", "Dangling reference policy: STRICT or LENIENT")
	transformCmd.Flags().BoolVar(&tflags.KeepSpeakers, "keep-speakers", false, "Publish speakers without any published session")
	transformCmd.Flags().BoolVar(&tflags.DryRun, "dry-run", false, "Run every check without writing output")
}

func runTransform(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	tflags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	progress := ui.NewProgressDisplay(cfg.Event, pipeline.Stages)
	err = transform(cmd.Context(), root, cfg, tflags.DryRun, progress, cmd.OutOrStdout(), cmd.ErrOrStderr())
	progress.Finish()
	return err
}

func (f transformFlags) apply(cfg *config.Config) {
	if f.Event != "" {
		cfg.Event = f.Event
	}
	if f.Duplicates != "" {
		cfg.Policies.Duplicates = f.Duplicates
	}
	if f.Dangling != "" {
		cfg.Policies.DanglingReferences = f.Dangling
	}
	if f.KeepSpeakers {
		cfg.Policies.KeepSpeakersWithoutSessions = true
	}
}

// runOptions builds the pipeline options from a validated config.
func runOptions(root string, cfg *config.Config, dryRun bool) (pipeline.RunOptions, error) {
	dup, err := dedupe.ParsePolicy(cfg.Policies.Duplicates)
	if err != nil {
		return pipeline.RunOptions{}, err
	}
	mode, err := relate.ParseMode(cfg.Policies.DanglingReferences)
	if err != nil {
		return pipeline.RunOptions{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return pipeline.RunOptions{}, err
	}

	return pipeline.RunOptions{
		Options: pipeline.Options{
			Event:                       cfg.Event,
			SiteURL:                     cfg.SiteURL,
			Language:                    cfg.Language,
			Location:                    loc,
			PublishableStates:           cfg.PublishableStates,
			Questions:                   cfg.Questions,
			Duplicates:                  dup,
			CheckSpeakerNames:           cfg.Policies.CheckSpeakerNames,
			Dangling:                    mode,
			KeepSpeakersWithoutSessions: cfg.Policies.KeepSpeakersWithoutSessions,
			Workers:                     cfg.Resolver.Workers,
		},
		RawDir:     cfg.RawDir(root),
		PublicDir:  cfg.PublicDir(root),
		ArchiveDir: cfg.ArchiveDir(root),
		DryRun:     dryRun,
	}, nil
}

// transform runs the pipeline and records the run in the event log and the
// run history. Warnings go to stderr; the report goes to stdout.
func transform(ctx context.Context, root string, cfg *config.Config, dryRun bool, progress pipeline.Progress, stdout, stderr io.Writer) error {
	opts, err := runOptions(root, cfg, dryRun)
	if err != nil {
		return err
	}
	opts.Progress = progress

	logger, err := log.NewLogger(root)
	if err != nil {
		return err
	}
	store, err := history.NewStore(filepath.Join(root, config.Dir, history.FileName))
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	run, err := store.StartRun(cfg.Event, dryRun)
	if err != nil {
		return err
	}
	if Verbose() {
		fmt.Fprintf(stdout, "Run %s: raw %s -> public %s\n", run.ID, opts.RawDir, opts.PublicDir)
	}
	if logErr := logger.Append(log.LogEvent{Event: log.EventRunStarted, RunID: run.ID, EventName: cfg.Event, DryRun: dryRun}); logErr != nil {
		fmt.Fprintf(stderr, "Warning: failed to log run start: %v\n", logErr)
	}

	start := time.Now()
	out, err := pipeline.Run(ctx, opts)
	if err != nil {
		kind := model.ErrorKind(err)
		if histErr := store.Fail(run.ID, kind, err.Error()); histErr != nil {
			fmt.Fprintf(stderr, "Warning: recording failed run: %v\n", histErr)
		}
		if logErr := logger.Append(log.LogEvent{
			Event:      log.EventRunFailed,
			RunID:      run.ID,
			EventName:  cfg.Event,
			Error:      err.Error(),
			ErrorKind:  kind,
			DurationMs: time.Since(start).Milliseconds(),
		}); logErr != nil {
			fmt.Fprintf(stderr, "Warning: failed to log run failure: %v\n", logErr)
		}
		return err
	}

	for _, w := range out.SortedWarnings() {
		if err := store.AddWarning(run.ID, w.Kind, w.Message); err != nil {
			fmt.Fprintf(stderr, "Warning: recording warning: %v\n", err)
		}
		if logErr := logger.Append(log.LogEvent{Event: log.EventWarning, RunID: run.ID, Kind: w.Kind, Message: w.Message, Codes: w.Codes}); logErr != nil {
			fmt.Fprintf(stderr, "Warning: failed to log warning: %v\n", logErr)
		}
		if Verbose() {
			fmt.Fprintf(stderr, "warning: [%s] %s\n", w.Kind, w.Message)
		}
	}
	if len(out.Warnings) > 0 && !Verbose() {
		fmt.Fprintf(stderr, "%d warning(s); see the report below or 'programapi status'\n", len(out.Warnings))
	}
	if out.Published != nil && out.Published.ArchiveErr != nil {
		fmt.Fprintf(stderr, "Warning: previous output not archived: %v\n", out.Published.ArchiveErr)
	}

	counts := out.Counts()
	if err := store.Succeed(run.ID, history.Counts{Sessions: counts.Sessions, Speakers: counts.Speakers, Days: counts.Days}); err != nil {
		fmt.Fprintf(stderr, "Warning: recording run: %v\n", err)
	}
	complete := log.LogEvent{
		Event:      log.EventRunComplete,
		RunID:      run.ID,
		EventName:  cfg.Event,
		Sessions:   counts.Sessions,
		Speakers:   counts.Speakers,
		Days:       counts.Days,
		Warnings:   len(out.Warnings),
		DryRun:     dryRun,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if out.Published != nil {
		complete.Output = out.Published.Dir
	}
	if logErr := logger.Append(complete); logErr != nil {
		fmt.Fprintf(stderr, "Warning: failed to log run completion: %v\n", logErr)
	}

	events, err := logger.ReadRun(run.ID)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: failed to read run log: %v\n", err)
	}
	r := report.GenerateReport(run.ID, out, events)
	fmt.Fprint(stdout, "\n"+report.FormatReport(r))
	if err := report.WriteReport(filepath.Join(root, config.Dir), r); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	return nil
}
