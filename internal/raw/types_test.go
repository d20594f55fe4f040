package raw

import (
	"encoding/json"
	"testing"
)

func TestTextUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		lang    string
		want    string
		set     bool
		invalid bool
	}{
		{"string", `"Hello"`, "", "Hello", true, false},
		{"number", `45`, "", "45", true, false},
		{"float", `45.5`, "", "45.5", true, false},
		{"null", `null`, "", "", false, false},
		{"localized requested", `{"de": "Hallo", "en": "Hello"}`, "de", "Hallo", true, false},
		{"localized fallback en", `{"de": "Hallo", "en": "Hello"}`, "fr", "Hello", true, false},
		{"localized first lexical", `{"it": "Ciao", "de": "Hallo"}`, "fr", "Hallo", true, false},
		{"localized null value", `{"en": null}`, "en", "", true, false},
		{"array", `["a"]`, "", "", true, true},
		{"bool", `true`, "", "", true, true},
		{"nested object", `{"en": {"x": 1}}`, "en", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txt Text
			if err := json.Unmarshal([]byte(tt.input), &txt); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if txt.IsSet() != tt.set {
				t.Errorf("IsSet() = %v, want %v", txt.IsSet(), tt.set)
			}
			if txt.Invalid() != tt.invalid {
				t.Errorf("Invalid() = %v, want %v", txt.Invalid(), tt.invalid)
			}
			if got := txt.Resolve(tt.lang); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.lang, got, tt.want)
			}
		})
	}
}

func TestSpeakerRefUnmarshal(t *testing.T) {
	var refs []SpeakerRef
	input := `["AAA", {"code": "BBB", "name": "Ada"}, {"name": "no code"}, 42, null]`
	if err := json.Unmarshal([]byte(input), &refs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []SpeakerRef{
		{Code: "AAA"},
		{Code: "BBB"},
		{Invalid: true},
		{Invalid: true},
		{Invalid: true},
	}
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d", len(refs), len(want))
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %+v, want %+v", i, refs[i], want[i])
		}
	}
}

func TestAnswerUnmarshal(t *testing.T) {
	tests := []struct {
		input    string
		question string
		answer   string
	}{
		{`{"question": "Level", "answer": "Beginner"}`, "Level", "Beginner"},
		{`{"question": {"id": 3, "question": {"en": "Level"}}, "answer": "Advanced"}`, "Level", "Advanced"},
		{`{"answer": "orphan"}`, "", "orphan"},
	}
	for _, tt := range tests {
		var a Answer
		if err := json.Unmarshal([]byte(tt.input), &a); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.input, err)
		}
		if got := a.Question.Resolve("en"); got != tt.question {
			t.Errorf("question = %q, want %q", got, tt.question)
		}
		if got := a.Answer.Resolve("en"); got != tt.answer {
			t.Errorf("answer = %q, want %q", got, tt.answer)
		}
	}
}

func TestScheduleSlotAccessors(t *testing.T) {
	var nested ScheduleSlot
	if err := json.Unmarshal([]byte(`{"code": " AAA ", "slot": {"room": "R1", "start": "s", "end": "e"}}`), &nested); err != nil {
		t.Fatal(err)
	}
	if got := nested.SubmissionCode(); got != "AAA" {
		t.Errorf("SubmissionCode() = %q, want AAA", got)
	}
	if got := nested.Assignment().Room.Resolve(""); got != "R1" {
		t.Errorf("Assignment().Room = %q, want R1", got)
	}

	var flat ScheduleSlot
	if err := json.Unmarshal([]byte(`{"submission": "BBB", "code": "ignored", "room": "R2"}`), &flat); err != nil {
		t.Fatal(err)
	}
	if got := flat.SubmissionCode(); got != "BBB" {
		t.Errorf("SubmissionCode() = %q, want BBB", got)
	}
	if got := flat.Assignment().Room.Resolve(""); got != "R2" {
		t.Errorf("Assignment().Room = %q, want R2", got)
	}
}
