// Package ui provides terminal UI components for programapi.
// This file implements the stage progress display shown during a run.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// StageStatus represents the status of a single pipeline stage.
type StageStatus int

const (
	StatusPending   StageStatus = iota // Not started yet
	StatusRunning                      // Currently running
	StatusCompleted                    // Finished successfully
	StatusFailed                       // Returned an error
)

// StageState holds the display state of a single stage.
type StageState struct {
	Name    string
	Status  StageStatus
	Elapsed time.Duration
	Err     error
}

// ProgressDisplay manages a live-updating terminal progress view.
type ProgressDisplay struct {
	mu          sync.Mutex
	out         io.Writer
	title       string
	stages      []*StageState
	stageIndex  map[string]int // name -> index in stages slice
	started     bool
	isTTY       bool
	linesDrawn  int
	startTimes  map[string]time.Time
	lastPrinted map[string]StageStatus // tracks last printed status per stage (non-TTY)
}

// NewProgressDisplay creates a ProgressDisplay writing to stdout.
func NewProgressDisplay(title string, stages []string) *ProgressDisplay {
	return NewProgressDisplayTo(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), title, stages)
}

// NewProgressDisplayTo creates a ProgressDisplay writing to w. isTTY selects
// in-place redraws over plain transition lines.
func NewProgressDisplayTo(w io.Writer, isTTY bool, title string, stages []string) *ProgressDisplay {
	p := &ProgressDisplay{
		out:         w,
		title:       title,
		stageIndex:  make(map[string]int),
		startTimes:  make(map[string]time.Time),
		lastPrinted: make(map[string]StageStatus),
		isTTY:       isTTY,
	}
	for _, name := range stages {
		p.stageIndex[name] = len(p.stages)
		p.stages = append(p.stages, &StageState{Name: name})
	}
	return p
}

// Begin marks a stage as running. Unknown stages are appended.
func (p *ProgressDisplay) Begin(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stage(stage)
	s.Status = StatusRunning
	p.startTimes[stage] = time.Now()
	p.started = true
	p.render()
}

// End marks a stage as completed, or failed when err is non-nil.
func (p *ProgressDisplay) End(stage string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stage(stage)
	s.Err = err
	if err != nil {
		s.Status = StatusFailed
	} else {
		s.Status = StatusCompleted
	}
	if start, ok := p.startTimes[stage]; ok {
		s.Elapsed = time.Since(start)
	}
	if p.started {
		p.render()
	}
}

// Finish moves the cursor below the display and prints a summary line.
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := 0
	failed := 0
	for _, s := range p.stages {
		switch s.Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		}
	}

	fmt.Fprintf(p.out, "\nStages: %d/%d completed", completed, len(p.stages))
	if failed > 0 {
		fmt.Fprintf(p.out, ", %d failed", failed)
	}
	fmt.Fprintln(p.out)
}

// Stages returns a snapshot of the stage states.
func (p *ProgressDisplay) Stages() []StageState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]StageState, len(p.stages))
	for i, s := range p.stages {
		out[i] = *s
	}
	return out
}

func (p *ProgressDisplay) stage(name string) *StageState {
	if idx, ok := p.stageIndex[name]; ok {
		return p.stages[idx]
	}
	s := &StageState{Name: name}
	p.stageIndex[name] = len(p.stages)
	p.stages = append(p.stages, s)
	return s
}

// render draws or redraws the progress display.
func (p *ProgressDisplay) render() {
	if !p.isTTY {
		p.renderPlain()
		return
	}
	p.renderTTY()
}

// renderTTY draws the progress display using ANSI escape codes for in-place updates.
func (p *ProgressDisplay) renderTTY() {
	if p.linesDrawn > 0 {
		fmt.Fprintf(p.out, "\033[%dA", p.linesDrawn)
	}

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("\033[2K\033[1mprogramapi - %s\033[0m\n", p.title))
	buf.WriteString("\033[2K\n")
	for _, s := range p.stages {
		buf.WriteString("\033[2K")
		buf.WriteString(formatStageLine(s, p.startTimes))
		buf.WriteString("\n")
	}

	fmt.Fprint(p.out, buf.String())
	p.linesDrawn = len(p.stages) + 2 // header + blank + stages
}

// renderPlain writes non-TTY output (for CI/piping).
// Only prints on status transitions to avoid duplicate lines.
func (p *ProgressDisplay) renderPlain() {
	for _, s := range p.stages {
		if s.Status == StatusPending {
			continue
		}
		if prev, seen := p.lastPrinted[s.Name]; seen && prev == s.Status {
			continue
		}
		fmt.Fprintln(p.out, formatStageLinePlain(s))
		p.lastPrinted[s.Name] = s.Status
	}
}

func formatStageLine(s *StageState, startTimes map[string]time.Time) string {
	return fmt.Sprintf("  %s %-10s %s", statusIcon(s.Status), s.Name, statusDetail(s, startTimes))
}

func formatStageLinePlain(s *StageState) string {
	var status string
	switch s.Status {
	case StatusPending:
		status = "PENDING"
	case StatusRunning:
		status = "RUNNING"
	case StatusCompleted:
		status = fmt.Sprintf("DONE [%s]", formatDuration(s.Elapsed))
	case StatusFailed:
		status = "FAILED"
	}
	return fmt.Sprintf("[%s] %s", status, s.Name)
}

func statusIcon(status StageStatus) string {
	switch status {
	case StatusCompleted:
		return "\033[32m✅\033[0m" // green checkmark
	case StatusRunning:
		return "\033[33m⏳\033[0m" // yellow hourglass
	case StatusFailed:
		return "\033[31m❌\033[0m" // red X
	default:
		return "\033[90m○\033[0m" // dim circle
	}
}

func statusDetail(s *StageState, startTimes map[string]time.Time) string {
	switch s.Status {
	case StatusCompleted:
		return fmt.Sprintf("\033[90m[%s]\033[0m", formatDuration(s.Elapsed))
	case StatusRunning:
		return fmt.Sprintf("\033[33m[%s]\033[0m", formatDuration(time.Since(startTimes[s.Name])))
	case StatusFailed:
		return "\033[31m[failed]\033[0m"
	default:
		return "\033[90m[pending]\033[0m"
	}
}

// formatDuration formats a duration in a human-readable way. Sub-second
// durations are shown in milliseconds.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", h, m, s)
}
