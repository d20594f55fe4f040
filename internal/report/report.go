// Package report generates run summaries after a transform completes.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/europython/programapi/internal/log"
	"github.com/europython/programapi/internal/model"
	"github.com/europython/programapi/internal/pipeline"
)

// Report holds the aggregated statistics and metadata for a completed run.
type Report struct {
	Event    string
	RunID    string
	DryRun   bool
	Sessions int
	Speakers int
	Days     int
	Events   int
	Warnings []model.Warning
	Output   string
	Archived string
	Duration time.Duration
}

// GenerateReport builds a Report from a run outcome. The duration is taken
// from the run's log events when they are available.
func GenerateReport(runID string, out *pipeline.Outcome, events []log.LogEvent) *Report {
	counts := out.Counts()
	r := &Report{
		Event:    out.Event,
		RunID:    runID,
		DryRun:   out.Published == nil,
		Sessions: counts.Sessions,
		Speakers: counts.Speakers,
		Days:     counts.Days,
		Events:   counts.Events,
		Warnings: out.SortedWarnings(),
	}
	if out.Published != nil {
		r.Output = out.Published.Dir
		r.Archived = out.Published.Archived
	}
	r.Duration = computeDuration(log.ForRun(events, runID))
	return r
}

// FormatReport produces a terminal-friendly, human-readable summary string.
func FormatReport(r *Report) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString("  Program API Run Report\n")
	b.WriteString("========================================\n")
	b.WriteString("\n")

	if r.Event != "" {
		fmt.Fprintf(&b, "Event:       %s\n", r.Event)
	}
	if r.RunID != "" {
		fmt.Fprintf(&b, "Run:         %s\n", r.RunID)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Sessions:    %d\n", r.Sessions)
	fmt.Fprintf(&b, "Speakers:    %d\n", r.Speakers)
	fmt.Fprintf(&b, "Days:        %d (%d events)\n", r.Days, r.Events)
	b.WriteString("\n")

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "Warnings:    %d\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - [%s] %s\n", w.Kind, w.Message)
		}
		b.WriteString("\n")
	}

	switch {
	case r.DryRun:
		b.WriteString("Output:      (dry run, nothing written)\n")
	case r.Output != "":
		fmt.Fprintf(&b, "Output:      %s\n", r.Output)
		if r.Archived != "" {
			fmt.Fprintf(&b, "Archived:    %s\n", r.Archived)
		}
	}

	if r.Duration > 0 {
		fmt.Fprintf(&b, "Duration:    %s\n", formatDuration(r.Duration))
	}

	b.WriteString("========================================\n")

	return b.String()
}

// WriteReport writes the formatted report to {dir}/report.md.
// Creates the directory if it does not exist.
func WriteReport(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	content := FormatReport(report)
	path := filepath.Join(dir, "report.md")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}

	return nil
}

// computeDuration calculates the run duration from log events.
// It looks for the first run_started event and uses either the last
// run_complete event or the last event's timestamp as the end point.
func computeDuration(events []log.LogEvent) time.Duration {
	if len(events) == 0 {
		return 0
	}

	var start time.Time
	var end time.Time

	for _, e := range events {
		if e.Event == log.EventRunStarted && start.IsZero() {
			start = e.Time
		}
		// Track the latest event time as a fallback end.
		if !e.Time.IsZero() {
			end = e.Time
		}
		if e.Event == log.EventRunComplete {
			end = e.Time
		}
	}

	if start.IsZero() || end.IsZero() {
		return 0
	}

	d := end.Sub(start)
	if d < 0 {
		return 0
	}

	return d
}

// formatDuration produces a human-readable duration string such as "5m 32s"
// or "1h 12m 5s". Sub-second durations are shown as "< 1s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
