// Package dedupe detects likely duplicate sessions and speakers and decides,
// by policy, whether the pipeline may continue. It never modifies entities.
package dedupe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/europython/programapi/internal/model"
	"github.com/europython/programapi/internal/normalize"
)

// Policy selects what happens when duplicates are found.
type Policy string

const (
	// Fail aborts the run with a DuplicateCollisionError.
	Fail Policy = "fail"
	// Warn reports the duplicates and lets the run continue.
	Warn Policy = "warn"
	// Allow skips detection entirely.
	Allow Policy = "allow"
)

// ParsePolicy parses a duplicate policy, case-insensitively. The empty
// string selects Warn.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case Warn, "":
		return Warn, nil
	case Fail:
		return Fail, nil
	case Allow:
		return Allow, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want FAIL, WARN or ALLOW)", s)
}

// Options controls Gate.
type Options struct {
	Policy            Policy
	CheckSpeakerNames bool
}

// Gate runs detection according to the policy. Under Fail any duplicate
// yields a DuplicateCollisionError; under Warn the duplicates are returned
// for reporting; under Allow nothing is checked.
func Gate(sessions map[string]*model.Session, speakers map[string]*model.Speaker, opts Options) ([]model.DuplicateWarning, error) {
	if opts.Policy == Allow {
		return nil, nil
	}

	found := Detect(sessions, speakers, opts.CheckSpeakerNames)
	if len(found) > 0 && opts.Policy == Fail {
		return nil, &model.DuplicateCollisionError{Collisions: found}
	}
	return found, nil
}

// Detect returns all duplicates in a deterministic order: room overlaps,
// then titles, then speaker names, each sorted by codes.
func Detect(sessions map[string]*model.Session, speakers map[string]*model.Speaker, checkSpeakers bool) []model.DuplicateWarning {
	var out []model.DuplicateWarning
	out = append(out, roomOverlaps(sessions)...)

	titles := make(map[string][]string)
	for code, s := range sessions {
		key := normalizedKey(s.Title)
		titles[key] = append(titles[key], code)
	}
	out = append(out, groups(model.DuplicateTitle, titles, func(code string) string {
		return sessions[code].Title
	})...)

	if checkSpeakers {
		names := make(map[string][]string)
		for code, sp := range speakers {
			key := normalizedKey(sp.Name)
			names[key] = append(names[key], code)
		}
		out = append(out, groups(model.DuplicateSpeakerName, names, func(code string) string {
			return speakers[code].Name
		})...)
	}
	return out
}

// roomOverlaps reports each pair of sessions that overlap in time and share
// a room. Overlap comes from the already computed parallel relation.
func roomOverlaps(sessions map[string]*model.Session) []model.DuplicateWarning {
	var out []model.DuplicateWarning
	for _, code := range sortedKeys(sessions) {
		s := sessions[code]
		for _, other := range s.SessionsInParallel {
			if other <= code {
				continue
			}
			o, ok := sessions[other]
			if !ok {
				continue
			}
			if room, shared := sharedRoom(s, o); shared {
				out = append(out, model.DuplicateWarning{
					Kind:  model.DuplicateRoomOverlap,
					Value: room,
					Codes: []string{code, other},
				})
			}
		}
	}
	return out
}

func sharedRoom(a, b *model.Session) (string, bool) {
	var shared []string
	for _, r := range a.Rooms {
		if b.HasRoom(r) {
			shared = append(shared, r)
		}
	}
	if len(shared) == 0 {
		return "", false
	}
	sort.Strings(shared)
	return shared[0], true
}

// groups turns every key shared by two or more codes into a warning whose
// value is the display text of the lowest code.
func groups(kind model.DuplicateKind, byKey map[string][]string, display func(string) string) []model.DuplicateWarning {
	var out []model.DuplicateWarning
	for _, codes := range byKey {
		if len(codes) < 2 {
			continue
		}
		sorted := append([]string(nil), codes...)
		sort.Strings(sorted)
		out = append(out, model.DuplicateWarning{Kind: kind, Value: display(sorted[0]), Codes: sorted})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i].Codes, ",") < strings.Join(out[j].Codes, ",")
	})
	return out
}

// normalizedKey folds case, accents and punctuation so that "Intro to Go!"
// and "intro to go" compare equal. Text without any ASCII letters or digits
// falls back to lower-cased, whitespace-collapsed form.
func normalizedKey(s string) string {
	if key := normalize.Slugify(s); key != "" {
		return key
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
