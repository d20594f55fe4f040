package history

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one recorded transform run.
type Run struct {
	ID         string
	Event      string
	Status     string
	ErrorKind  string
	Error      string
	DryRun     bool
	Sessions   int
	Speakers   int
	Days       int
	Warnings   int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns how long a finished run took, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Warning is a warning recorded for a run.
type Warning struct {
	ID      int64
	RunID   string
	Kind    string
	Message string
}

// Counts are the entity counts of a successful run.
type Counts struct {
	Sessions int
	Speakers int
	Days     int
}
