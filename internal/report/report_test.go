package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/europython/programapi/internal/log"
	"github.com/europython/programapi/internal/model"
	"github.com/europython/programapi/internal/pipeline"
	"github.com/europython/programapi/internal/publish"
)

func sampleOutcome() *pipeline.Outcome {
	return &pipeline.Outcome{
		Result: &pipeline.Result{
			Event: "ep2025",
			Sessions: map[string]*model.Session{
				"AAA111": {Code: "AAA111"},
				"BBB222": {Code: "BBB222"},
			},
			Speakers: map[string]*model.Speaker{"SPK001": {Code: "SPK001"}},
			Schedule: model.Schedule{Days: map[string]model.Day{
				"2025-07-14": {Events: []model.Event{{}, {}}},
			}},
			Warnings: []model.Warning{
				{Kind: model.WarningDuplicate, Message: "b"},
				{Kind: model.WarningDanglingReference, Message: "a"},
			},
		},
		Published: &publish.Result{Dir: "/srv/public/ep2025", Archived: "/srv/archive/ep2025/20250714-090000"},
	}
}

func TestGenerateReport(t *testing.T) {
	start := time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)
	events := []log.LogEvent{
		{Time: start, Event: log.EventRunStarted, RunID: "run-1"},
		{Time: start.Add(time.Hour), Event: log.EventRunStarted, RunID: "other"},
		{Time: start.Add(3 * time.Second), Event: log.EventRunComplete, RunID: "run-1"},
	}

	r := GenerateReport("run-1", sampleOutcome(), events)

	if r.Sessions != 2 || r.Speakers != 1 || r.Days != 1 || r.Events != 2 {
		t.Errorf("counts = %+v", r)
	}
	if r.DryRun {
		t.Error("DryRun = true for a published outcome")
	}
	if r.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", r.Duration)
	}
	if r.Warnings[0].Kind != model.WarningDanglingReference {
		t.Errorf("warnings not sorted: %+v", r.Warnings)
	}
}

func TestFormatReport(t *testing.T) {
	r := GenerateReport("run-1", sampleOutcome(), nil)
	out := FormatReport(r)

	for _, want := range []string{
		"Event:       ep2025",
		"Sessions:    2",
		"Days:        1 (2 events)",
		"Warnings:    2",
		"[duplicate] b",
		"Output:      /srv/public/ep2025",
		"Archived:    /srv/archive/ep2025/20250714-090000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatReportDryRun(t *testing.T) {
	o := sampleOutcome()
	o.Published = nil
	out := FormatReport(GenerateReport("run-1", o, nil))
	if !strings.Contains(out, "dry run") {
		t.Errorf("dry run not reported:\n%s", out)
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	if err := WriteReport(dir, &Report{Event: "ep2025"}); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "report.md"))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.Contains(string(data), "ep2025") {
		t.Errorf("report content = %q", data)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "< 1s"},
		{42 * time.Second, "42s"},
		{5*time.Minute + 32*time.Second, "5m 32s"},
		{time.Hour + 12*time.Minute + 5*time.Second, "1h 12m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
