// Package raw holds the loosely-typed records delivered by the pretalx API
// and the reader that loads previously downloaded collections from disk.
//
// The types here only describe shape. Required-field checks, type coercion
// and enum validation happen in the normalize package.
package raw

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/europython/programapi/internal/model"
)

// Text is a string field that the API delivers as a plain string, a number,
// or a map of language code to string. Any other JSON type marks it invalid.
type Text struct {
	set       bool
	invalid   bool
	plain     string
	localized map[string]string
}

// NewText returns a plain Text holding s.
func NewText(s string) Text {
	return Text{set: true, plain: s}
}

// NewLocalized returns a localized Text.
func NewLocalized(values map[string]string) Text {
	return Text{set: true, localized: values}
}

// UnmarshalJSON implements json.Unmarshaler. It only fails on invalid JSON.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	t.set = true

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &t.plain)
	case '{':
		var m map[string]*string
		if err := json.Unmarshal(data, &m); err != nil {
			// Nested objects or non-string values.
			t.invalid = true
			return nil
		}
		t.localized = make(map[string]string, len(m))
		for lang, v := range m {
			if v != nil {
				t.localized[lang] = *v
			}
		}
		return nil
	case '[', 't', 'f':
		t.invalid = true
		return nil
	default:
		// Numbers are kept verbatim.
		t.plain = string(data)
		return nil
	}
}

// IsSet reports whether the field was present and not null.
func (t Text) IsSet() bool { return t.set }

// Invalid reports whether the field had a JSON type that cannot be text.
func (t Text) Invalid() bool { return t.invalid }

// Resolve returns the value for lang. Localized values fall back to "en" and
// then to the lexically first language.
func (t Text) Resolve(lang string) string {
	if !t.set || t.invalid {
		return ""
	}
	if t.localized == nil {
		return t.plain
	}
	if v, ok := t.localized[lang]; ok {
		return v
	}
	if v, ok := t.localized["en"]; ok {
		return v
	}
	langs := make([]string, 0, len(t.localized))
	for l := range t.localized {
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		return ""
	}
	sort.Strings(langs)
	return t.localized[langs[0]]
}

// SpeakerRef is a speaker reference inside a submission. The API sends
// either bare codes or speaker objects; only the code is kept.
type SpeakerRef struct {
	Code    string
	Invalid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *SpeakerRef) UnmarshalJSON(data []byte) error {
	*r = SpeakerRef{}
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		r.Invalid = true
	case data[0] == '"':
		return json.Unmarshal(data, &r.Code)
	case data[0] == '{':
		var obj struct {
			Code Text `json:"code"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.Code = obj.Code.Resolve("")
		r.Invalid = !obj.Code.IsSet() || obj.Code.Invalid()
	default:
		r.Invalid = true
	}
	return nil
}

// Answer is a reply to a custom pretalx question.
type Answer struct {
	Question Text
	Answer   Text
}

// UnmarshalJSON implements json.Unmarshaler. The question is either a plain
// string or an object whose "question" member holds the (localized) text.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var aux struct {
		Question json.RawMessage `json:"question"`
		Answer   Text            `json:"answer"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Answer{Answer: aux.Answer}

	q := bytes.TrimSpace(aux.Question)
	if len(q) > 0 && q[0] == '{' {
		var obj struct {
			Question Text `json:"question"`
		}
		if err := json.Unmarshal(q, &obj); err != nil {
			return err
		}
		a.Question = obj.Question
		return nil
	}
	if len(q) > 0 {
		return json.Unmarshal(q, &a.Question)
	}
	return nil
}

// Resource is an attached link on a submission.
type Resource struct {
	Resource    Text `json:"resource"`
	Description Text `json:"description"`
}

// Slot is a room and time assignment.
type Slot struct {
	Room  Text `json:"room"`
	Start Text `json:"start"`
	End   Text `json:"end"`
}

// Submission is a raw pretalx submission. Fields not listed here (emails,
// internal notes, reviewer data) are dropped on decode.
type Submission struct {
	Code           Text         `json:"code"`
	Title          Text         `json:"title"`
	Speakers       []SpeakerRef `json:"speakers"`
	SubmissionType Text         `json:"submission_type"`
	Track          Text         `json:"track"`
	State          Text         `json:"state"`
	Abstract       Text         `json:"abstract"`
	Duration       Text         `json:"duration"`
	Resources      []Resource   `json:"resources"`
	Answers        []Answer     `json:"answers"`
	Slot           *Slot        `json:"slot"`
	Slots          []Slot       `json:"slots"`

	// Malformed is set when the record failed to decode. Only Code and
	// State are populated then.
	Malformed *model.MalformedRecordError `json:"-"`
}

// Speaker is a raw pretalx speaker.
type Speaker struct {
	Code        Text     `json:"code"`
	Name        Text     `json:"name"`
	Biography   Text     `json:"biography"`
	Avatar      Text     `json:"avatar"`
	Submissions []Text   `json:"submissions"`
	Answers     []Answer `json:"answers"`

	// Malformed is set when the record failed to decode. Only Code is
	// populated then.
	Malformed *model.MalformedRecordError `json:"-"`
}

// ScheduleSlot assigns a submission to a room and time. The submission code
// is read from "submission" or, for full submission objects, "code"; times
// may be top-level or nested under "slot".
type ScheduleSlot struct {
	Submission Text  `json:"submission"`
	Code       Text  `json:"code"`
	Room       Text  `json:"room"`
	Start      Text  `json:"start"`
	End        Text  `json:"end"`
	Slot       *Slot `json:"slot"`
}

// SubmissionCode returns the code of the scheduled submission.
func (s ScheduleSlot) SubmissionCode() string {
	if s.Submission.IsSet() {
		return strings.TrimSpace(s.Submission.Resolve(""))
	}
	return strings.TrimSpace(s.Code.Resolve(""))
}

// Assignment returns the room and time of the slot.
func (s ScheduleSlot) Assignment() Slot {
	if s.Slot != nil {
		return *s.Slot
	}
	return Slot{Room: s.Room, Start: s.Start, End: s.End}
}

// ScheduleBreak is a non-session block in one room.
type ScheduleBreak struct {
	Room        Text  `json:"room"`
	Start       Text  `json:"start"`
	End         Text  `json:"end"`
	Description Text  `json:"description"`
	Slot        *Slot `json:"slot"`
}

// Assignment returns the room and time of the break.
func (b ScheduleBreak) Assignment() Slot {
	if b.Slot != nil {
		return *b.Slot
	}
	return Slot{Room: b.Room, Start: b.Start, End: b.End}
}

// Schedule is the raw schedule listing.
type Schedule struct {
	Slots  []ScheduleSlot  `json:"slots"`
	Breaks []ScheduleBreak `json:"breaks"`
}

// SlotsByCode groups schedule slots by submission code, preserving order.
func (s Schedule) SlotsByCode() map[string][]Slot {
	out := make(map[string][]Slot)
	for _, slot := range s.Slots {
		code := slot.SubmissionCode()
		if code == "" {
			continue
		}
		out[code] = append(out[code], slot.Assignment())
	}
	return out
}

// Snapshot is the full set of raw collections for one event.
type Snapshot struct {
	Submissions []Submission
	Speakers    []Speaker
	Schedule    Schedule
}
