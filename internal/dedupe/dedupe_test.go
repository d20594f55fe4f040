package dedupe

import (
	"errors"
	"reflect"
	"testing"

	"github.com/europython/programapi/internal/model"
)

func sessions(list ...*model.Session) map[string]*model.Session {
	out := make(map[string]*model.Session, len(list))
	for _, s := range list {
		out[s.Code] = s
	}
	return out
}

func titled(code, title string) *model.Session {
	return &model.Session{Code: code, Title: title}
}

func TestParsePolicy(t *testing.T) {
	tests := map[string]Policy{"FAIL": Fail, "warn": Warn, "": Warn, " Allow ": Allow}
	for in, want := range tests {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("ignore"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestDetectTitles(t *testing.T) {
	got := Detect(sessions(
		titled("CCC", "Intro to Go!"),
		titled("AAA", "intro to go"),
		titled("BBB", "Something else"),
		titled("DDD", "Café culture"),
		titled("EEE", "cafe CULTURE"),
	), nil, false)

	want := []model.DuplicateWarning{
		{Kind: model.DuplicateTitle, Value: "intro to go", Codes: []string{"AAA", "CCC"}},
		{Kind: model.DuplicateTitle, Value: "Café culture", Codes: []string{"DDD", "EEE"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Detect = %+v\nwant %+v", got, want)
	}
}

func TestDetectRoomOverlap(t *testing.T) {
	r1 := "R1"
	a := &model.Session{Code: "AAA", Title: "A", Rooms: []string{"R1"}, Room: &r1, SessionsInParallel: []string{"BBB", "CCC"}}
	b := &model.Session{Code: "BBB", Title: "B", Rooms: []string{"R2", "R1"}, SessionsInParallel: []string{"AAA"}}
	c := &model.Session{Code: "CCC", Title: "C", Rooms: []string{"R3"}, SessionsInParallel: []string{"AAA"}}

	got := Detect(sessions(a, b, c), nil, false)
	want := []model.DuplicateWarning{
		{Kind: model.DuplicateRoomOverlap, Value: "R1", Codes: []string{"AAA", "BBB"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Detect = %+v, want %+v", got, want)
	}
}

func TestDetectSpeakerNames(t *testing.T) {
	speakers := map[string]*model.Speaker{
		"S2": {Code: "S2", Name: "Jane  Doe"},
		"S1": {Code: "S1", Name: "jane doe"},
		"S3": {Code: "S3", Name: "John Doe"},
	}
	if got := Detect(nil, speakers, false); len(got) != 0 {
		t.Errorf("speaker names checked while disabled: %+v", got)
	}
	got := Detect(nil, speakers, true)
	if len(got) != 1 || got[0].Kind != model.DuplicateSpeakerName || !reflect.DeepEqual(got[0].Codes, []string{"S1", "S2"}) {
		t.Errorf("Detect = %+v", got)
	}
}

func TestGatePolicies(t *testing.T) {
	input := sessions(titled("AAA", "Same"), titled("BBB", "Same"))

	_, err := Gate(input, nil, Options{Policy: Fail})
	var collision *model.DuplicateCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("Fail: err = %v, want DuplicateCollisionError", err)
	}
	if !reflect.DeepEqual(collision.Collisions[0].Codes, []string{"AAA", "BBB"}) {
		t.Errorf("Fail: collisions = %+v", collision.Collisions)
	}

	found, err := Gate(input, nil, Options{Policy: Warn})
	if err != nil || len(found) != 1 {
		t.Errorf("Warn: found = %+v, err = %v", found, err)
	}

	found, err = Gate(input, nil, Options{Policy: Allow})
	if err != nil || found != nil {
		t.Errorf("Allow: found = %+v, err = %v", found, err)
	}
}

func TestGateCleanInput(t *testing.T) {
	found, err := Gate(sessions(titled("AAA", "One"), titled("BBB", "Two")), nil, Options{Policy: Fail})
	if err != nil || len(found) != 0 {
		t.Errorf("found = %+v, err = %v", found, err)
	}
}
