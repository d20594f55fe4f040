// Package cleanup implements pruning of archived output snapshots.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// snapshotLayout is the format used for archived snapshot directory names.
// Snapshots archived within the same second get a "-N" suffix.
const snapshotLayout = "20060102-150405"

// Snapshot is an archived output directory.
type Snapshot struct {
	Name string
	Time time.Time
	seq  int
}

// parseSnapshot parses "<timestamp>" or "<timestamp>-<n>".
func parseSnapshot(name string) (Snapshot, bool) {
	if len(name) < len(snapshotLayout) {
		return Snapshot{}, false
	}
	t, err := time.ParseInLocation(snapshotLayout, name[:len(snapshotLayout)], time.Local)
	if err != nil {
		return Snapshot{}, false
	}
	rest := name[len(snapshotLayout):]
	seq := 0
	if rest != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
		if !strings.HasPrefix(rest, "-") || err != nil || n < 1 {
			return Snapshot{}, false
		}
		seq = n
	}
	return Snapshot{Name: name, Time: t, seq: seq}, true
}

// List returns the archived snapshots in archiveDir, oldest first.
// Entries that are not snapshot directories are ignored.
func List(archiveDir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if s, ok := parseSnapshot(entry.Name()); ok {
			snaps = append(snaps, s)
		}
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].Time.Equal(snaps[j].Time) {
			return snaps[i].Time.Before(snaps[j].Time)
		}
		return snaps[i].seq < snaps[j].seq
	})
	return snaps, nil
}

// PruneByAge removes snapshots archived more than maxAgeDays before now.
// If dryRun is true, no directories are deleted; the function only returns
// the names that would be removed. Returns the list of pruned directory names.
func PruneByAge(archiveDir string, maxAgeDays int, now time.Time, dryRun bool) ([]string, error) {
	snaps, err := List(archiveDir)
	if err != nil {
		return nil, err
	}

	cutoff := now.AddDate(0, 0, -maxAgeDays)
	var old []string
	for _, s := range snaps {
		if s.Time.Before(cutoff) {
			old = append(old, s.Name)
		}
	}
	return remove(archiveDir, old, dryRun)
}

// PruneKeepRecent removes all snapshots except the most recent keep.
// If dryRun is true, no directories are deleted. Returns the list of
// pruned directory names.
func PruneKeepRecent(archiveDir string, keep int, dryRun bool) ([]string, error) {
	snaps, err := List(archiveDir)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(snaps) <= keep {
		return nil, nil
	}

	var old []string
	for _, s := range snaps[:len(snaps)-keep] {
		old = append(old, s.Name)
	}
	return remove(archiveDir, old, dryRun)
}

func remove(archiveDir string, names []string, dryRun bool) ([]string, error) {
	var pruned []string
	for _, name := range names {
		if !dryRun {
			if err := os.RemoveAll(filepath.Join(archiveDir, name)); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", name, err)
			}
		}
		pruned = append(pruned, name)
	}
	return pruned, nil
}
