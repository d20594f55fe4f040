// Package pipeline runs the transformation from a raw pretalx snapshot to
// the published program documents.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/europython/programapi/internal/dedupe"
	"github.com/europython/programapi/internal/model"
	"github.com/europython/programapi/internal/normalize"
	"github.com/europython/programapi/internal/publish"
	"github.com/europython/programapi/internal/raw"
	"github.com/europython/programapi/internal/relate"
	"github.com/europython/programapi/internal/schedule"
)

// Stage names reported to a Progress.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageResolve   = "resolve"
	StageCheck     = "check"
	StageBuild     = "build"
	StagePublish   = "publish"
)

// Stages lists every stage of a full run in order.
var Stages = []string{StageLoad, StageNormalize, StageResolve, StageCheck, StageBuild, StagePublish}

// DefaultPublishableStates are the submission states that are published.
var DefaultPublishableStates = []string{"accepted", "confirmed"}

// Progress receives stage transitions.
type Progress interface {
	Begin(stage string)
	End(stage string, err error)
}

type noProgress struct{}

func (noProgress) Begin(string)      {}
func (noProgress) End(string, error) {}

// Options configures a transformation. The zero value uses the default
// publishable states, WARN for duplicates and STRICT for dangling references.
type Options struct {
	// Event tags the result; it does not change how records are processed.
	Event             string
	SiteURL           string
	Language          string
	Location          *time.Location
	PublishableStates []string
	Questions         normalize.Questions

	Duplicates        dedupe.Policy
	CheckSpeakerNames bool
	Dangling          relate.Mode

	KeepSpeakersWithoutSessions bool
	Workers                     int

	Progress Progress
}

func (o Options) progress() Progress {
	if o.Progress == nil {
		return noProgress{}
	}
	return o.Progress
}

func (o Options) normalizeOptions() normalize.Options {
	return normalize.Options{
		Language:  o.Language,
		Location:  o.Location,
		Questions: o.Questions,
	}
}

// Result is the outcome of a successful transformation.
type Result struct {
	Event    string
	Sessions map[string]*model.Session
	Speakers map[string]*model.Speaker
	Schedule model.Schedule
	Warnings []model.Warning
}

// Documents returns the publishable documents of the result.
func (r *Result) Documents() publish.Documents {
	return publish.Documents{
		Sessions: r.Sessions,
		Speakers: r.Speakers,
		Schedule: r.Schedule,
	}
}

// Transform turns a raw snapshot into the public entity set. It does not
// touch the filesystem.
func Transform(ctx context.Context, snap *raw.Snapshot, opts Options) (*Result, error) {
	progress := opts.progress()

	progress.Begin(StageNormalize)
	sessions, speakers, breaks, err := normalizeSnapshot(snap, opts)
	progress.End(StageNormalize, err)
	if err != nil {
		return nil, err
	}

	progress.Begin(StageResolve)
	resolved, err := relate.Resolve(ctx, sessions, speakers, relate.Options{
		Mode:                     opts.Dangling,
		KeepUnreferencedSpeakers: opts.KeepSpeakersWithoutSessions,
		Workers:                  opts.Workers,
	})
	progress.End(StageResolve, err)
	if err != nil {
		return nil, fmt.Errorf("resolving references: %w", err)
	}

	progress.Begin(StageCheck)
	policy := opts.Duplicates
	if policy == "" {
		policy = dedupe.Warn
	}
	duplicates, err := dedupe.Gate(resolved.Sessions, resolved.Speakers, dedupe.Options{
		Policy:            policy,
		CheckSpeakerNames: opts.CheckSpeakerNames,
	})
	progress.End(StageCheck, err)
	if err != nil {
		return nil, fmt.Errorf("checking duplicates: %w", err)
	}

	warnings := append([]model.Warning(nil), resolved.Warnings...)
	for _, d := range duplicates {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarningDuplicate,
			Message: d.String(),
			Codes:   d.Codes,
		})
	}

	progress.Begin(StageBuild)
	sched := schedule.Build(resolved.Sessions, resolved.Speakers, breaks)
	progress.End(StageBuild, nil)

	return &Result{
		Event:    opts.Event,
		Sessions: resolved.Sessions,
		Speakers: resolved.Speakers,
		Schedule: sched,
		Warnings: warnings,
	}, nil
}

// normalizeSnapshot normalizes the publishable submissions, the speakers
// they need and the schedule breaks, then assigns unique slugs.
func normalizeSnapshot(snap *raw.Snapshot, opts Options) ([]*model.Session, []*model.Speaker, []model.Break, error) {
	nopts := opts.normalizeOptions()

	publishable := opts.PublishableStates
	if len(publishable) == 0 {
		publishable = DefaultPublishableStates
	}
	states := make(map[string]bool, len(publishable))
	for _, s := range publishable {
		states[strings.ToLower(strings.TrimSpace(s))] = true
	}

	slots := snap.Schedule.SlotsByCode()

	var sessions []*model.Session
	sessionCodes := make(map[string]bool)
	referenced := make(map[string]bool)
	for _, rec := range snap.Submissions {
		if !states[normalize.StateOf(rec, opts.Language)] {
			continue
		}
		code := strings.TrimSpace(rec.Code.Resolve(""))
		if rec.Malformed != nil {
			return nil, nil, nil, withCode(rec.Malformed, code)
		}
		s, err := normalize.Session(rec, slots[code], nopts)
		if err != nil {
			return nil, nil, nil, err
		}
		if sessionCodes[s.Code] {
			return nil, nil, nil, &model.MalformedRecordError{Kind: "submission", Code: s.Code, Field: "code", Reason: "duplicate code"}
		}
		sessionCodes[s.Code] = true
		for _, sp := range s.Speakers {
			referenced[sp] = true
		}
		sessions = append(sessions, s)
	}

	var speakers []*model.Speaker
	speakerCodes := make(map[string]bool)
	for _, rec := range snap.Speakers {
		code := strings.TrimSpace(rec.Code.Resolve(""))
		if !referenced[code] && !opts.KeepSpeakersWithoutSessions {
			continue
		}
		if rec.Malformed != nil {
			return nil, nil, nil, withCode(rec.Malformed, code)
		}
		sp, err := normalize.Speaker(rec, nopts)
		if err != nil {
			return nil, nil, nil, err
		}
		if speakerCodes[sp.Code] {
			return nil, nil, nil, &model.MalformedRecordError{Kind: "speaker", Code: sp.Code, Field: "code", Reason: "duplicate code"}
		}
		speakerCodes[sp.Code] = true
		speakers = append(speakers, sp)
	}

	breaks := make([]model.Break, 0, len(snap.Schedule.Breaks))
	for _, rec := range snap.Schedule.Breaks {
		b, err := normalize.Break(rec, nopts)
		if err != nil {
			return nil, nil, nil, err
		}
		breaks = append(breaks, *b)
	}

	normalize.AssignSessionSlugs(sessions, opts.SiteURL)
	normalize.AssignSpeakerSlugs(speakers, opts.SiteURL)

	return sessions, speakers, breaks, nil
}

// withCode names a record that failed to decode by its code when one was
// recovered, instead of its position in the collection.
func withCode(err *model.MalformedRecordError, code string) error {
	named := *err
	if code != "" {
		named.Code = code
	}
	return &named
}

// RunOptions configures Run.
type RunOptions struct {
	Options
	RawDir     string
	PublicDir  string
	ArchiveDir string
	// DryRun transforms without publishing.
	DryRun bool
	// Now is used to name archived snapshots. Defaults to time.Now.
	Now func() time.Time
}

// Outcome is the result of Run.
type Outcome struct {
	*Result
	// Published is nil on a dry run.
	Published *publish.Result
}

// Run loads the raw snapshot, transforms it and publishes the documents.
// Nothing is written unless every stage succeeds.
func Run(ctx context.Context, opts RunOptions) (*Outcome, error) {
	progress := opts.progress()

	progress.Begin(StageLoad)
	snap, err := raw.LoadSnapshot(opts.RawDir)
	progress.End(StageLoad, err)
	if err != nil {
		return nil, fmt.Errorf("loading raw data: %w", err)
	}

	res, err := Transform(ctx, snap, opts.Options)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Result: res}
	if opts.DryRun {
		return out, nil
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	progress.Begin(StagePublish)
	published, err := publish.Publish(opts.PublicDir, opts.ArchiveDir, res.Documents(), now())
	progress.End(StagePublish, err)
	if err != nil {
		return nil, fmt.Errorf("publishing: %w", err)
	}
	out.Published = published
	return out, nil
}

// Counts summarizes a result.
type Counts struct {
	Sessions int
	Speakers int
	Days     int
	Events   int
}

// Counts returns the entity counts of the result.
func (r *Result) Counts() Counts {
	c := Counts{
		Sessions: len(r.Sessions),
		Speakers: len(r.Speakers),
		Days:     len(r.Schedule.Days),
	}
	for _, d := range r.Schedule.Days {
		c.Events += len(d.Events)
	}
	return c
}

// SortedWarnings returns the warnings ordered by kind, then message.
func (r *Result) SortedWarnings() []model.Warning {
	out := append([]model.Warning(nil), r.Warnings...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Message < out[j].Message
	})
	return out
}
