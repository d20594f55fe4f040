// Package testutil provides test helper utilities for programapi tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// Record is a raw pretalx record as it appears in the API JSON.
type Record = map[string]any

// Submission returns a raw submission in the accepted state.
func Submission(code, title string, speakers ...string) Record {
	return Record{
		"code":            code,
		"title":           title,
		"speakers":        speakerRefs(speakers),
		"submission_type": "Talk",
		"state":           "accepted",
		"abstract":        "About " + title,
		"duration":        30,
	}
}

// Scheduled returns a submission with an embedded slot.
func Scheduled(code, title, room, start, end string, speakers ...string) Record {
	s := Submission(code, title, speakers...)
	s["slot"] = Slot(room, start, end)
	return s
}

// Slot returns a raw room and time assignment.
func Slot(room, start, end string) Record {
	return Record{"room": room, "start": start, "end": end}
}

// Speaker returns a raw speaker.
func Speaker(code, name string) Record {
	return Record{
		"code":      code,
		"name":      name,
		"biography": name + " speaks at conferences.",
	}
}

// Answer returns a raw question answer.
func Answer(question, answer string) Record {
	return Record{"question": Record{"question": Record{"en": question}}, "answer": answer}
}

// Break returns a raw schedule break.
func Break(room, start, end, description string) Record {
	return Record{"room": room, "start": start, "end": end, "description": description}
}

func speakerRefs(codes []string) []Record {
	refs := make([]Record, 0, len(codes))
	for _, c := range codes {
		refs = append(refs, Record{"code": c, "name": c})
	}
	return refs
}

// RawFiles returns the project files of a raw snapshot under dir.
// schedule may be nil to omit the schedule file.
func RawFiles(dir string, submissions, speakers []Record, schedule Record) map[string]string {
	files := map[string]string{
		filepath.Join(dir, "submissions_latest.json"): mustJSON(submissions),
		filepath.Join(dir, "speakers_latest.json"):    mustJSON(speakers),
	}
	if schedule != nil {
		files[filepath.Join(dir, "schedule_latest.json")] = mustJSON(schedule)
	}
	return files
}

// WriteJSON writes v as JSON to path, creating directories as needed.
func WriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(mustJSON(v)), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
}

func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}
