package publish

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/europython/programapi/internal/model"
)

func docs(title string) Documents {
	room := "Forum <Hall>"
	return Documents{
		Sessions: map[string]*model.Session{
			"BBB": {Code: "BBB", Title: "B", Speakers: []string{}, Room: &room},
			"AAA": {Code: "AAA", Title: title, Speakers: []string{"S1"}},
		},
		Speakers: map[string]*model.Speaker{
			"S1": {Code: "S1", Name: "Ada", Submissions: []string{"AAA"}},
		},
		Schedule: model.Schedule{Days: map[string]model.Day{}},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestEncodeDeterministic(t *testing.T) {
	d := docs("A & B")
	first, err := Encode(d.Sessions)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Encode(docs("A & B").Sessions)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding differs between runs")
		}
	}

	out := string(first)
	if strings.Index(out, `"AAA"`) > strings.Index(out, `"BBB"`) {
		t.Error("keys not sorted")
	}
	if !strings.Contains(out, `"A & B"`) || !strings.Contains(out, `"Forum <Hall>"`) {
		t.Errorf("HTML characters escaped:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") || !strings.Contains(out, "\n  \"AAA\": {") {
		t.Errorf("unexpected layout:\n%s", out)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := WriteFileAtomic(path, []byte("one"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if got := readFile(t, path); got != "two" {
		t.Errorf("content = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestPublishFirstRun(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "public", "ep2025")
	archiveDir := filepath.Join(root, "archive", "ep2025")

	res, err := Publish(dir, archiveDir, docs("First"), time.Now())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Dir != dir || res.Archived != "" || res.ArchiveErr != nil {
		t.Errorf("Result = %+v", res)
	}
	for _, name := range []string{SessionsFile, SpeakersFile, ScheduleFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if got := readFile(t, filepath.Join(dir, ScheduleFile)); got != "{\n  \"days\": {}\n}\n" {
		t.Errorf("schedule.json = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(dir))
	if len(entries) != 1 {
		t.Errorf("staging left behind: %v", entries)
	}
}

func TestPublishArchivesPrevious(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "public")
	archiveDir := filepath.Join(root, "archive")
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.Local)

	if _, err := Publish(dir, archiveDir, docs("First"), now); err != nil {
		t.Fatalf("Publish 1: %v", err)
	}
	res, err := Publish(dir, archiveDir, docs("Second"), now)
	if err != nil {
		t.Fatalf("Publish 2: %v", err)
	}
	wantArchive := filepath.Join(archiveDir, "20250701-120000")
	if res.Archived != wantArchive {
		t.Errorf("Archived = %q, want %q", res.Archived, wantArchive)
	}
	if !strings.Contains(readFile(t, filepath.Join(wantArchive, SessionsFile)), "First") {
		t.Error("archive does not hold the previous output")
	}
	if !strings.Contains(readFile(t, filepath.Join(dir, SessionsFile)), "Second") {
		t.Error("output not replaced")
	}

	res, err = Publish(dir, archiveDir, docs("Third"), now)
	if err != nil {
		t.Fatalf("Publish 3: %v", err)
	}
	if res.Archived != wantArchive+"-1" {
		t.Errorf("Archived = %q, want suffixed name", res.Archived)
	}
}

func TestPublishWithoutArchive(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "public")
	for _, title := range []string{"First", "Second"} {
		res, err := Publish(dir, "", docs(title), time.Now())
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}
		if res.Archived != "" || res.ArchiveErr != nil {
			t.Errorf("Result = %+v", res)
		}
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 1 || entries[0].Name() != "public" {
		t.Errorf("root entries = %v, want only public", entries)
	}
}

func TestPublishFailureKeepsPrevious(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "public")
	if _, err := Publish(dir, "", docs("First"), time.Now()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	bad := docs("Second")
	year := time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
	bad.Sessions["AAA"].Start = &year

	if _, err := Publish(dir, "", bad, time.Now()); err == nil {
		t.Fatal("expected encoding error")
	}
	if !strings.Contains(readFile(t, filepath.Join(dir, SessionsFile)), "First") {
		t.Error("previous output was modified")
	}
}
