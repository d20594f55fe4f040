// Package normalize converts raw pretalx records into public entities.
//
// Each function handles exactly one record and performs no lookups across
// records; set-level steps (unique slugs) are separate functions.
package normalize

import (
	"sort"
	"strings"
	"time"

	"github.com/europython/programapi/internal/model"
	"github.com/europython/programapi/internal/raw"
)

// SpeakerQuestions holds the pretalx question texts answered by speakers.
type SpeakerQuestions struct {
	Affiliation string `yaml:"affiliation"`
	Homepage    string `yaml:"homepage"`
	Twitter     string `yaml:"twitter"`
	Mastodon    string `yaml:"mastodon"`
	LinkedIn    string `yaml:"linkedin"`
	GitX        string `yaml:"gitx"`
}

// SubmissionQuestions holds the pretalx question texts answered per submission.
type SubmissionQuestions struct {
	Tweet    string `yaml:"tweet"`
	Delivery string `yaml:"delivery"`
	Level    string `yaml:"level"`
}

// Questions groups the question texts used to extract answers.
type Questions struct {
	Speaker    SpeakerQuestions    `yaml:"speaker"`
	Submission SubmissionQuestions `yaml:"submission"`
}

// DefaultQuestions returns the question texts of the EuroPython pretalx forms.
func DefaultQuestions() Questions {
	return Questions{
		Speaker: SpeakerQuestions{
			Affiliation: "Company / Organization / Educational Institution",
			Homepage:    "Social (Homepage)",
			Twitter:     "Social (X/Twitter)",
			Mastodon:    "Social (Mastodon)",
			LinkedIn:    "Social (LinkedIn)",
			GitX:        "Social (Github/Gitlab)",
		},
		Submission: SubmissionQuestions{
			Tweet:    "Abstract as a tweet / toot",
			Delivery: "My presentation can be delivered",
			Level:    "Expected audience expertise",
		},
	}
}

// Options controls normalization.
type Options struct {
	Language  string
	Location  *time.Location
	Questions Questions
}

func malformed(kind, code, field, reason string) error {
	return &model.MalformedRecordError{Kind: kind, Code: code, Field: field, Reason: reason}
}

// requiredText resolves a mandatory text field.
func requiredText(t raw.Text, lang, kind, code, field string) (string, error) {
	if t.Invalid() {
		return "", malformed(kind, code, field, "unexpected type")
	}
	v := strings.TrimSpace(t.Resolve(lang))
	if v == "" {
		return "", malformed(kind, code, field, "missing")
	}
	return v, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// answerIndex maps trimmed question text to trimmed answer text.
func answerIndex(answers []raw.Answer, lang string) map[string]string {
	idx := make(map[string]string, len(answers))
	for _, a := range answers {
		q := strings.TrimSpace(a.Question.Resolve(lang))
		if q == "" {
			continue
		}
		idx[q] = strings.TrimSpace(a.Answer.Resolve(lang))
	}
	return idx
}

// StateOf returns the normalized state of a raw submission without
// validating the rest of the record.
func StateOf(rec raw.Submission, lang string) string {
	state := ParseState(rec.State.Resolve(lang))
	return state
}

// Session normalizes a raw submission. slots are the schedule assignments
// for this submission from the schedule listing; they are merged with any
// slots embedded in the record.
func Session(rec raw.Submission, slots []raw.Slot, opts Options) (*model.Session, error) {
	const kind = "submission"
	lang := opts.Language

	code, err := requiredText(rec.Code, lang, kind, "", "code")
	if err != nil {
		return nil, err
	}
	title, err := requiredText(rec.Title, lang, kind, code, "title")
	if err != nil {
		return nil, err
	}

	sessionType := strings.TrimSpace(rec.SubmissionType.Resolve(lang))

	speakers := make([]string, 0, len(rec.Speakers))
	seen := make(map[string]bool, len(rec.Speakers))
	for _, ref := range rec.Speakers {
		c := strings.TrimSpace(ref.Code)
		if ref.Invalid || c == "" {
			return nil, malformed(kind, code, "speakers", "speaker reference without code")
		}
		if !seen[c] {
			seen[c] = true
			speakers = append(speakers, c)
		}
	}
	sort.Strings(speakers)
	if len(speakers) == 0 && !model.IsAnnouncement(sessionType) {
		return nil, malformed(kind, code, "speakers", "no speakers")
	}

	state := ParseState(rec.State.Resolve(lang))

	s := &model.Session{
		Code:        code,
		Title:       title,
		Speakers:    speakers,
		SessionType: sessionType,
		Slug:        Slugify(title),
		Track:       optionalString(rec.Track.Resolve(lang)),
		State:       state,
		Abstract:    strings.TrimSpace(rec.Abstract.Resolve(lang)),
	}
	if s.Slug == "" {
		s.Slug = strings.ToLower(code)
	}

	answers := answerIndex(rec.Answers, lang)
	q := opts.Questions.Submission
	s.Tweet = answers[q.Tweet]
	s.Level = ParseLevel(answers[q.Level])
	s.Delivery = ParseDelivery(answers[q.Delivery])

	for _, r := range rec.Resources {
		url := strings.TrimSpace(r.Resource.Resolve(lang))
		if url == "" {
			continue
		}
		s.Resources = append(s.Resources, model.Resource{
			Resource:    url,
			Description: strings.TrimSpace(r.Description.Resolve(lang)),
		})
	}

	if err := applySlots(s, collectSlots(rec, slots), opts); err != nil {
		return nil, err
	}

	if d, ok := ParseDuration(rec.Duration.Resolve(lang)); ok {
		s.Duration = d
	} else if s.Timed() {
		s.Duration = int(s.End.Sub(*s.Start) / time.Minute)
	}

	return s, nil
}

func collectSlots(rec raw.Submission, external []raw.Slot) []raw.Slot {
	all := make([]raw.Slot, 0, 1+len(rec.Slots)+len(external))
	if rec.Slot != nil {
		all = append(all, *rec.Slot)
	}
	all = append(all, rec.Slots...)
	return append(all, external...)
}

type parsedSlot struct {
	room  string
	start *time.Time
	end   *time.Time
}

// applySlots merges slot assignments into the session. Rooms are the
// distinct slot rooms ordered by slot start; start and end span all slots.
func applySlots(s *model.Session, slots []raw.Slot, opts Options) error {
	var parsed []parsedSlot
	seen := make(map[string]bool)
	for _, sl := range slots {
		p := parsedSlot{
			room:  strings.TrimSpace(sl.Room.Resolve(opts.Language)),
			start: ParseTime(sl.Start.Resolve(""), opts.Location),
			end:   ParseTime(sl.End.Resolve(""), opts.Location),
		}
		if p.room == "" && p.start == nil && p.end == nil {
			continue
		}
		key := p.room + "|" + timeKey(p.start) + "|" + timeKey(p.end)
		if seen[key] {
			continue
		}
		seen[key] = true
		parsed = append(parsed, p)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		a, b := parsed[i], parsed[j]
		if ka, kb := timeKey(a.start), timeKey(b.start); ka != kb {
			if a.start == nil || b.start == nil {
				return b.start == nil
			}
			return a.start.Before(*b.start)
		}
		return a.room < b.room
	})

	roomSeen := make(map[string]bool)
	for _, p := range parsed {
		if p.room != "" && !roomSeen[p.room] {
			roomSeen[p.room] = true
			s.Rooms = append(s.Rooms, p.room)
		}
		if p.start != nil && (s.Start == nil || p.start.Before(*s.Start)) {
			s.Start = p.start
		}
		if p.end != nil && (s.End == nil || p.end.After(*s.End)) {
			s.End = p.end
		}
	}
	if len(s.Rooms) > 0 {
		room := s.Rooms[0]
		s.Room = &room
	}

	if s.Timed() && !s.End.After(*s.Start) {
		return malformed("submission", s.Code, "slot.end", "end is not after start")
	}
	return nil
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Speaker normalizes a raw speaker. Submissions are left empty; they are
// derived from sessions by the relate package.
func Speaker(rec raw.Speaker, opts Options) (*model.Speaker, error) {
	const kind = "speaker"
	lang := opts.Language

	code, err := requiredText(rec.Code, lang, kind, "", "code")
	if err != nil {
		return nil, err
	}
	name, err := requiredText(rec.Name, lang, kind, code, "name")
	if err != nil {
		return nil, err
	}

	sp := &model.Speaker{
		Code:        code,
		Name:        name,
		Biography:   optionalString(rec.Biography.Resolve(lang)),
		Avatar:      optionalString(rec.Avatar.Resolve(lang)),
		Slug:        Slugify(name),
		Submissions: []string{},
	}
	if sp.Slug == "" {
		sp.Slug = strings.ToLower(code)
	}

	answers := answerIndex(rec.Answers, lang)
	q := opts.Questions.Speaker
	sp.Affiliation = optionalString(answers[q.Affiliation])
	sp.Homepage = optionalString(answers[q.Homepage])
	sp.TwitterURL = optionalString(TwitterURL(firstToken(answers[q.Twitter])))
	sp.MastodonURL = optionalString(MastodonURL(firstToken(answers[q.Mastodon])))
	sp.LinkedInURL = optionalString(LinkedInURL(firstToken(answers[q.LinkedIn])))
	sp.GitX = optionalString(firstToken(answers[q.GitX]))

	return sp, nil
}

// Break normalizes a schedule break. Room, start and end are required.
func Break(rec raw.ScheduleBreak, opts Options) (*model.Break, error) {
	const kind = "break"
	a := rec.Assignment()

	room := strings.TrimSpace(a.Room.Resolve(opts.Language))
	start := ParseTime(a.Start.Resolve(""), opts.Location)
	end := ParseTime(a.End.Resolve(""), opts.Location)
	switch {
	case room == "":
		return nil, malformed(kind, "", "room", "missing")
	case start == nil:
		return nil, malformed(kind, room, "start", "missing or unparseable")
	case end == nil:
		return nil, malformed(kind, room, "end", "missing or unparseable")
	case !end.After(*start):
		return nil, malformed(kind, room, "end", "end is not after start")
	}

	title := strings.TrimSpace(rec.Description.Resolve(opts.Language))
	if title == "" {
		title = "Break"
	}
	return &model.Break{Title: title, Room: room, Start: *start, End: *end}, nil
}
