package cleanup

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// createSnapshot creates a directory with the given timestamp-based name.
func createSnapshot(t *testing.T, archiveDir string, ts time.Time, suffix string) string {
	t.Helper()
	name := ts.Format(snapshotLayout) + suffix
	path := filepath.Join(archiveDir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("creating snapshot %s: %v", name, err)
	}
	return name
}

func TestPruneByAge_RemovesOldSnapshots(t *testing.T) {
	archiveDir := t.TempDir()

	now := time.Now()
	old := createSnapshot(t, archiveDir, now.AddDate(0, 0, -60), "")
	recent := createSnapshot(t, archiveDir, now.AddDate(0, 0, -5), "")

	pruned, err := PruneByAge(archiveDir, 30, now, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}

	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, old)); !os.IsNotExist(err) {
		t.Errorf("expected %s to be deleted", old)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, recent)); err != nil {
		t.Errorf("expected %s to still exist: %v", recent, err)
	}
}

func TestPruneByAge_DryRun(t *testing.T) {
	archiveDir := t.TempDir()

	now := time.Now()
	old := createSnapshot(t, archiveDir, now.AddDate(0, 0, -60), "")

	pruned, err := PruneByAge(archiveDir, 30, now, true)
	if err != nil {
		t.Fatalf("PruneByAge dry-run failed: %v", err)
	}
	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, old)); err != nil {
		t.Errorf("dry run deleted %s", old)
	}
}

func TestPruneByAge_MissingDir(t *testing.T) {
	pruned, err := PruneByAge(filepath.Join(t.TempDir(), "missing"), 30, time.Now(), false)
	if err != nil {
		t.Fatalf("PruneByAge: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("pruned = %v, want none", pruned)
	}
}

func TestPruneKeepRecent(t *testing.T) {
	archiveDir := t.TempDir()

	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.Local)
	a := createSnapshot(t, archiveDir, base, "")
	b := createSnapshot(t, archiveDir, base, "-2")
	c := createSnapshot(t, archiveDir, base, "-10")
	d := createSnapshot(t, archiveDir, base.Add(time.Hour), "")

	// Non-snapshot entries are ignored.
	if err := os.MkdirAll(filepath.Join(archiveDir, "notes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "README"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	pruned, err := PruneKeepRecent(archiveDir, 2, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent: %v", err)
	}
	if want := []string{a, b}; !reflect.DeepEqual(pruned, want) {
		t.Errorf("pruned = %v, want %v", pruned, want)
	}

	left, err := List(archiveDir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(left) != 2 || left[0].Name != c || left[1].Name != d {
		t.Errorf("left = %+v", left)
	}
	if _, err := os.Stat(filepath.Join(archiveDir, "notes")); err != nil {
		t.Error("non-snapshot directory was removed")
	}
}

func TestPruneKeepRecent_FewerThanKeep(t *testing.T) {
	archiveDir := t.TempDir()
	createSnapshot(t, archiveDir, time.Now(), "")

	pruned, err := PruneKeepRecent(archiveDir, 5, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("pruned = %v, want none", pruned)
	}
}

func TestParseSnapshot(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"20250714-090000", true},
		{"20250714-090000-3", true},
		{"20250714-090000-0", false},
		{"20250714-090000x", false},
		{"2025", false},
		{"latest", false},
	}
	for _, tt := range tests {
		if _, ok := parseSnapshot(tt.name); ok != tt.ok {
			t.Errorf("parseSnapshot(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}
	}
}
