// reader.go loads raw collections previously written by the download step.
package raw

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/europython/programapi/internal/model"
)

// Resource names used for the raw files: <resource>_latest.json.
const (
	ResourceSubmissions = "submissions"
	ResourceSpeakers    = "speakers"
	ResourceSchedule    = "schedule"
)

// Path returns the file path of a raw resource inside dir.
func Path(dir, resource string) string {
	return filepath.Join(dir, resource+"_latest.json")
}

// LoadSnapshot reads all raw collections from dir. The schedule file is
// optional; submissions and speakers are required.
func LoadSnapshot(dir string) (*Snapshot, error) {
	subs, err := LoadSubmissions(Path(dir, ResourceSubmissions))
	if err != nil {
		return nil, err
	}
	speakers, err := LoadSpeakers(Path(dir, ResourceSpeakers))
	if err != nil {
		return nil, err
	}
	schedule, err := LoadSchedule(Path(dir, ResourceSchedule))
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Submissions: subs,
		Speakers:    speakers,
		Schedule:    *schedule,
	}, nil
}

// LoadSubmissions reads a submissions file. The file is either a JSON array
// of records or an object keyed by submission code.
func LoadSubmissions(path string) ([]Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading submissions: %w", err)
	}
	return decodeCollection(data, "submission", func(s *Submission, key string) {
		if !s.Code.IsSet() {
			s.Code = NewText(key)
		}
	})
}

// LoadSpeakers reads a speakers file (array or object keyed by code).
func LoadSpeakers(path string) ([]Speaker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading speakers: %w", err)
	}
	return decodeCollection(data, "speaker", func(s *Speaker, key string) {
		if !s.Code.IsSet() {
			s.Code = NewText(key)
		}
	})
}

// LoadSchedule reads the schedule file. A missing file yields an empty
// schedule, since events without a published schedule are valid input.
// Besides the {"slots": [...], "breaks": [...]} form, a bare array or a
// code-keyed object of slots is accepted.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Schedule{}, nil
		}
		return nil, fmt.Errorf("reading schedule: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, fmt.Errorf("parsing schedule: %w", err)
		}
		_, hasSlots := probe["slots"]
		_, hasBreaks := probe["breaks"]
		if hasSlots || hasBreaks {
			var sched Schedule
			if slots, ok := probe["slots"]; ok {
				sched.Slots, err = decodeCollection(slots, "slot", setSlotCode)
				if err != nil {
					return nil, err
				}
			}
			if breaks, ok := probe["breaks"]; ok {
				sched.Breaks, err = decodeCollection[ScheduleBreak](breaks, "break", nil)
				if err != nil {
					return nil, err
				}
			}
			return &sched, nil
		}
	}

	slots, err := decodeCollection(trimmed, "slot", setSlotCode)
	if err != nil {
		return nil, err
	}
	return &Schedule{Slots: slots}, nil
}

func setSlotCode(s *ScheduleSlot, key string) {
	if !s.Submission.IsSet() && !s.Code.IsSet() {
		s.Submission = NewText(key)
	}
}

// salvager is implemented by records that can be kept after a decode
// failure. Whether such a record aborts the run depends on fields decided
// later, such as a submission's state.
type salvager interface {
	salvage(data json.RawMessage, malformed *model.MalformedRecordError) bool
}

func (s *Submission) salvage(data json.RawMessage, malformed *model.MalformedRecordError) bool {
	var head struct {
		Code  Text `json:"code"`
		State Text `json:"state"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return false
	}
	*s = Submission{Code: head.Code, State: head.State, Malformed: malformed}
	return true
}

func (s *Speaker) salvage(data json.RawMessage, malformed *model.MalformedRecordError) bool {
	var head struct {
		Code Text `json:"code"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return false
	}
	*s = Speaker{Code: head.Code, Malformed: malformed}
	return true
}

// decodeCollection decodes an array or code-keyed object of records. Object
// entries are visited in key order so that the result is deterministic.
// A record that cannot be decoded is reported as a MalformedRecordError,
// unless it is a salvager that keeps the error for later.
func decodeCollection[T any](data []byte, kind string, setKey func(*T, string)) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var keys []string
	var records []json.RawMessage

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing %s collection: %w", kind, err)
		}
		keys = make([]string, len(records))
	case '{':
		var byKey map[string]json.RawMessage
		if err := json.Unmarshal(data, &byKey); err != nil {
			return nil, fmt.Errorf("parsing %s collection: %w", kind, err)
		}
		keys = make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		records = make([]json.RawMessage, len(keys))
		for i, k := range keys {
			records[i] = byKey[k]
		}
	default:
		return nil, fmt.Errorf("parsing %s collection: expected array or object", kind)
	}

	out := make([]T, 0, len(records))
	for i, rec := range records {
		var item T
		if err := json.Unmarshal(rec, &item); err != nil {
			code := keys[i]
			if code == "" {
				code = "#" + strconv.Itoa(i)
			}
			malformed := &model.MalformedRecordError{
				Kind:   kind,
				Code:   code,
				Reason: err.Error(),
			}
			s, ok := any(&item).(salvager)
			if !ok || !s.salvage(rec, malformed) {
				return nil, malformed
			}
		}
		if setKey != nil && keys[i] != "" {
			setKey(&item, keys[i])
		}
		out = append(out, item)
	}
	return out, nil
}
