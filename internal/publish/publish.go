// Package publish writes the public JSON documents. A run either replaces
// the whole published directory or leaves it untouched.
package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/europython/programapi/internal/model"
)

// Output file names.
const (
	SessionsFile = "sessions.json"
	SpeakersFile = "speakers.json"
	ScheduleFile = "schedule.json"
)

// SnapshotLayout is the name format of archived snapshot directories.
const SnapshotLayout = "20060102-150405"

// Documents are the three mutually consistent outputs of a run.
type Documents struct {
	Sessions map[string]*model.Session
	Speakers map[string]*model.Speaker
	Schedule model.Schedule
}

// Files encodes the documents, keyed by file name.
func (d Documents) Files() (map[string][]byte, error) {
	files := make(map[string][]byte, 3)
	for name, v := range map[string]any{
		SessionsFile: d.Sessions,
		SpeakersFile: d.Speakers,
		ScheduleFile: d.Schedule,
	} {
		data, err := Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		files[name] = data
	}
	return files, nil
}

// Result describes a successful publish.
type Result struct {
	Dir string
	// Archived is where the previous snapshot was moved, if there was one
	// and an archive directory was configured.
	Archived string
	// ArchiveErr is set when the swap succeeded but moving the previous
	// snapshot into the archive failed. It does not affect the new output.
	ArchiveErr error
}

// Publish writes docs into a temporary directory next to dir and swaps it
// in. The previous contents of dir, if any, are moved to
// archiveDir/<timestamp>, or removed when archiveDir is empty.
func Publish(dir, archiveDir string, docs Documents, now time.Time) (*Result, error) {
	files, err := docs.Files()
	if err != nil {
		return nil, err
	}

	parent := filepath.Dir(dir)
	base := filepath.Base(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("creating output parent: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+base+".staging-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	if err := os.Chmod(staging, 0755); err != nil {
		_ = os.RemoveAll(staging)
		return nil, fmt.Errorf("setting staging permissions: %w", err)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(staging, name), data, 0644); err != nil {
			_ = os.RemoveAll(staging)
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}

	res := &Result{Dir: dir}

	previous := ""
	if _, err := os.Stat(dir); err == nil {
		previous = filepath.Join(parent, "."+base+".previous-"+now.Format(SnapshotLayout))
		if err := os.Rename(dir, previous); err != nil {
			_ = os.RemoveAll(staging)
			return nil, fmt.Errorf("moving previous output aside: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		_ = os.RemoveAll(staging)
		return nil, fmt.Errorf("checking output directory: %w", err)
	}

	if err := os.Rename(staging, dir); err != nil {
		if previous != "" {
			_ = os.Rename(previous, dir)
		}
		_ = os.RemoveAll(staging)
		return nil, fmt.Errorf("swapping in new output: %w", err)
	}

	if previous == "" {
		return res, nil
	}
	if archiveDir == "" {
		res.ArchiveErr = os.RemoveAll(previous)
		return res, nil
	}
	archived, err := archive(previous, archiveDir, now)
	if err != nil {
		res.ArchiveErr = err
		return res, nil
	}
	res.Archived = archived
	return res, nil
}

// archive moves a previous snapshot into archiveDir under a timestamp name,
// adding a numeric suffix if that name is taken.
func archive(previous, archiveDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}
	name := now.Format(SnapshotLayout)
	target := filepath.Join(archiveDir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			break
		}
		target = filepath.Join(archiveDir, name+"-"+strconv.Itoa(i))
	}
	if err := os.Rename(previous, target); err != nil {
		return "", fmt.Errorf("archiving previous output: %w", err)
	}
	return target, nil
}
