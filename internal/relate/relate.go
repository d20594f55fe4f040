// Package relate links sessions and speakers and computes the temporal
// relationships between sessions.
package relate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/europython/programapi/internal/model"
)

// Mode selects how sessions referencing unknown speakers are handled.
type Mode string

const (
	// Strict fails the run with a DanglingReferenceError.
	Strict Mode = "strict"
	// Lenient drops the reference and records a warning.
	Lenient Mode = "lenient"
)

// ParseMode parses a dangling-reference policy, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Strict, "":
		return Strict, nil
	case Lenient:
		return Lenient, nil
	}
	return "", fmt.Errorf("unknown dangling reference policy %q (want STRICT or LENIENT)", s)
}

// Options controls Resolve.
type Options struct {
	Mode Mode
	// KeepUnreferencedSpeakers retains speakers without any session, with an
	// empty submissions list. By default they are dropped.
	KeepUnreferencedSpeakers bool
	// Workers bounds the number of rooms processed concurrently.
	Workers int
}

// Result is the enriched, cross-referenced entity set.
type Result struct {
	Sessions map[string]*model.Session
	Speakers map[string]*model.Speaker
	Warnings []model.Warning
}

// Resolve links sessions and speakers and fills in all derived session
// fields. Inputs are copied; the returned entities share no slices with them.
func Resolve(ctx context.Context, sessions []*model.Session, speakers []*model.Speaker, opts Options) (*Result, error) {
	res := &Result{
		Sessions: make(map[string]*model.Session, len(sessions)),
		Speakers: make(map[string]*model.Speaker, len(speakers)),
	}

	for _, sp := range speakers {
		cp := *sp
		cp.Submissions = nil
		res.Speakers[cp.Code] = &cp
	}

	ordered := make([]*model.Session, 0, len(sessions))
	for _, s := range sessions {
		ordered = append(ordered, cloneSession(s))
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })

	var dangling []model.DanglingReference
	for _, s := range ordered {
		kept := make([]string, 0, len(s.Speakers))
		for _, code := range s.Speakers {
			if _, ok := res.Speakers[code]; !ok {
				dangling = append(dangling, model.DanglingReference{Session: s.Code, Speaker: code})
				continue
			}
			kept = append(kept, code)
		}
		s.Speakers = kept
		res.Sessions[s.Code] = s
	}

	if len(dangling) > 0 {
		if opts.Mode != Lenient {
			return nil, &model.DanglingReferenceError{References: dangling}
		}
		for _, d := range dangling {
			res.Warnings = append(res.Warnings, model.Warning{
				Kind:    model.WarningDanglingReference,
				Message: d.String() + "; reference dropped",
				Codes:   []string{d.Session, d.Speaker},
			})
		}
	}

	// Speaker submissions are exactly the inverse of session speakers.
	for _, s := range ordered {
		for _, code := range s.Speakers {
			sp := res.Speakers[code]
			sp.Submissions = append(sp.Submissions, s.Code)
		}
	}
	for code, sp := range res.Speakers {
		if len(sp.Submissions) == 0 {
			if !opts.KeepUnreferencedSpeakers {
				delete(res.Speakers, code)
				continue
			}
			sp.Submissions = []string{}
		}
		sort.Strings(sp.Submissions)
	}

	if err := computeTimings(ctx, ordered, opts.Workers); err != nil {
		return nil, err
	}

	return res, nil
}

func cloneSession(s *model.Session) *model.Session {
	cp := *s
	cp.Speakers = append([]string(nil), s.Speakers...)
	cp.Rooms = append([]string(nil), s.Rooms...)
	if s.Resources != nil {
		cp.Resources = append([]model.Resource(nil), s.Resources...)
	}
	cp.SessionsInParallel = []string{}
	cp.SessionsAfter = []string{}
	cp.SessionsBefore = []string{}
	cp.NextSession = nil
	cp.PrevSession = nil
	return &cp
}
