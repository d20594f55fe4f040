package raw

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/europython/programapi/internal/model"
)

func writeFile(t *testing.T, dir, resource, content string) {
	t.Helper()
	if err := os.WriteFile(Path(dir, resource), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", resource, err)
	}
}

func TestLoadSubmissionsArrayAndObject(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, ResourceSubmissions, `[{"code": "BBB", "title": "B"}, {"code": "AAA", "title": "A"}]`)
	subs, err := LoadSubmissions(Path(dir, ResourceSubmissions))
	if err != nil {
		t.Fatalf("LoadSubmissions(array): %v", err)
	}
	if len(subs) != 2 || subs[0].Code.Resolve("") != "BBB" {
		t.Errorf("array order not preserved: %+v", subs)
	}

	writeFile(t, dir, ResourceSubmissions, `{"ZZZ": {"title": "Z"}, "AAA": {"code": "AAA", "title": "A"}}`)
	subs, err = LoadSubmissions(Path(dir, ResourceSubmissions))
	if err != nil {
		t.Fatalf("LoadSubmissions(object): %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
	if subs[0].Code.Resolve("") != "AAA" || subs[1].Code.Resolve("") != "ZZZ" {
		t.Errorf("object keys not sorted or code not filled: %q, %q", subs[0].Code.Resolve(""), subs[1].Code.Resolve(""))
	}
}

func TestLoadSubmissionsMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ResourceSubmissions, `[{"code": "AAA"}, {"code": "BBB", "state": "rejected", "speakers": "not a list"}]`)

	subs, err := LoadSubmissions(Path(dir, ResourceSubmissions))
	if err != nil {
		t.Fatalf("LoadSubmissions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
	if subs[0].Malformed != nil {
		t.Errorf("AAA marked malformed: %v", subs[0].Malformed)
	}
	bad := subs[1]
	if bad.Malformed == nil || bad.Malformed.Code != "#1" || bad.Malformed.Kind != "submission" {
		t.Fatalf("Malformed = %+v", bad.Malformed)
	}
	if bad.Code.Resolve("") != "BBB" || bad.State.Resolve("") != "rejected" {
		t.Errorf("code and state not kept: %q, %q", bad.Code.Resolve(""), bad.State.Resolve(""))
	}
}

func TestLoadSubmissionsUnsalvageableRecord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ResourceSubmissions, `{"AAA": {"title": "A"}, "BBB": 5}`)

	_, err := LoadSubmissions(Path(dir, ResourceSubmissions))
	var malformed *model.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedRecordError", err)
	}
	if malformed.Code != "BBB" {
		t.Errorf("malformed = %+v", malformed)
	}
}

func TestLoadSpeakersMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ResourceSpeakers, `{"S1": {"name": "Ada", "answers": {"oops": true}}}`)

	speakers, err := LoadSpeakers(Path(dir, ResourceSpeakers))
	if err != nil {
		t.Fatalf("LoadSpeakers: %v", err)
	}
	if len(speakers) != 1 || speakers[0].Malformed == nil {
		t.Fatalf("speakers = %+v", speakers)
	}
	if got := speakers[0].Code.Resolve(""); got != "S1" {
		t.Errorf("code = %q, want S1 from key", got)
	}
}

func TestLoadSubmissionsNotACollection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ResourceSubmissions, `"nope"`)

	_, err := LoadSubmissions(Path(dir, ResourceSubmissions))
	if err == nil {
		t.Fatal("expected error")
	}
	var malformed *model.MalformedRecordError
	if errors.As(err, &malformed) {
		t.Errorf("collection-level error reported as malformed record: %v", err)
	}
}

func TestLoadScheduleForms(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		slots  int
		breaks int
		first  string
	}{
		{"slots and breaks", `{"slots": [{"submission": "AAA", "room": "R1"}], "breaks": [{"room": "R1"}]}`, 1, 1, "AAA"},
		{"bare array", `[{"code": "AAA"}, {"code": "BBB"}]`, 2, 0, "AAA"},
		{"keyed object", `{"BBB": {"room": "R2"}, "AAA": {"room": "R1"}}`, 2, 0, "AAA"},
		{"only breaks", `{"breaks": []}`, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, ResourceSchedule, tt.input)
			sched, err := LoadSchedule(Path(dir, ResourceSchedule))
			if err != nil {
				t.Fatalf("LoadSchedule: %v", err)
			}
			if len(sched.Slots) != tt.slots || len(sched.Breaks) != tt.breaks {
				t.Fatalf("got %d slots, %d breaks", len(sched.Slots), len(sched.Breaks))
			}
			if tt.first != "" && sched.Slots[0].SubmissionCode() != tt.first {
				t.Errorf("first slot code = %q, want %q", sched.Slots[0].SubmissionCode(), tt.first)
			}
		})
	}
}

func TestLoadSnapshotOptionalSchedule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ResourceSubmissions, `[]`)
	writeFile(t, dir, ResourceSpeakers, `{}`)

	snap, err := LoadSnapshot(dir)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Schedule.Slots) != 0 || len(snap.Schedule.Breaks) != 0 {
		t.Errorf("schedule = %+v, want empty", snap.Schedule)
	}
}

func TestLoadSnapshotMissingSpeakers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ResourceSubmissions, `[]`)

	if _, err := LoadSnapshot(dir); err == nil {
		t.Fatal("expected error for missing speakers file")
	}
	if _, err := os.Stat(filepath.Join(dir, "speakers_latest.json")); !os.IsNotExist(err) {
		t.Fatal("unexpected speakers file")
	}
}

func TestSlotsByCode(t *testing.T) {
	sched := Schedule{Slots: []ScheduleSlot{
		{Submission: NewText("AAA"), Room: NewText("R1")},
		{Submission: NewText("AAA"), Room: NewText("R2")},
		{Room: NewText("orphan")},
	}}
	got := sched.SlotsByCode()
	if len(got) != 1 || len(got["AAA"]) != 2 {
		t.Fatalf("SlotsByCode() = %+v", got)
	}
	if got["AAA"][1].Room.Resolve("") != "R2" {
		t.Errorf("slot order not preserved")
	}
}
