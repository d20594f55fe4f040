package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestProgressDisplayPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplayTo(&buf, false, "ep2025", []string{"load", "publish"})

	p.Begin("load")
	p.Begin("load")
	p.End("load", nil)
	p.Begin("publish")
	p.End("publish", errors.New("disk full"))
	p.Finish()

	out := buf.String()
	if got := strings.Count(out, "[RUNNING] load"); got != 1 {
		t.Errorf("RUNNING load printed %d times, want 1\n%s", got, out)
	}
	if !strings.Contains(out, "[DONE [") {
		t.Errorf("missing DONE line:\n%s", out)
	}
	if !strings.Contains(out, "[FAILED] publish") {
		t.Errorf("missing FAILED line:\n%s", out)
	}
	if !strings.Contains(out, "Stages: 1/2 completed, 1 failed") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestProgressDisplayUnknownStage(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplayTo(&buf, false, "ep2025", nil)
	p.Begin("extra")
	p.End("extra", nil)

	stages := p.Stages()
	if len(stages) != 1 || stages[0].Name != "extra" || stages[0].Status != StatusCompleted {
		t.Errorf("Stages() = %+v", stages)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{3723 * time.Second, "1h2m3s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
