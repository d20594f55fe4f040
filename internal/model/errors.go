package model

import (
	"errors"
	"fmt"
	"strings"
)

// MalformedRecordError is returned when a raw record is missing a required
// field or carries a value that cannot be coerced. It aborts the whole run.
type MalformedRecordError struct {
	Kind   string // "submission", "speaker", "slot", "break"
	Code   string
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	var b strings.Builder
	b.WriteString("malformed ")
	b.WriteString(e.Kind)
	if e.Code != "" {
		fmt.Fprintf(&b, " %q", e.Code)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// DanglingReference is a session that lists a speaker code with no speaker.
type DanglingReference struct {
	Session string
	Speaker string
}

func (r DanglingReference) String() string {
	return fmt.Sprintf("session %s references unknown speaker %s", r.Session, r.Speaker)
}

// DanglingReferenceError is returned in strict mode when sessions reference
// speakers that do not exist.
type DanglingReferenceError struct {
	References []DanglingReference
}

// Error implements the error interface.
func (e *DanglingReferenceError) Error() string {
	parts := make([]string, 0, len(e.References))
	for _, r := range e.References {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("%d dangling reference(s): %s", len(e.References), strings.Join(parts, "; "))
}

// DuplicateKind classifies a detected collision.
type DuplicateKind string

const (
	DuplicateRoomOverlap DuplicateKind = "room_overlap"
	DuplicateTitle       DuplicateKind = "title"
	DuplicateSpeakerName DuplicateKind = "speaker_name"
)

// DuplicateWarning describes a group of entities that look like duplicates.
// Codes are sorted; Value is the shared room or normalized title/name.
type DuplicateWarning struct {
	Kind  DuplicateKind
	Value string
	Codes []string
}

func (w DuplicateWarning) String() string {
	switch w.Kind {
	case DuplicateRoomOverlap:
		return fmt.Sprintf("sessions %s overlap in room %q", strings.Join(w.Codes, ", "), w.Value)
	case DuplicateTitle:
		return fmt.Sprintf("sessions %s share the title %q", strings.Join(w.Codes, ", "), w.Value)
	case DuplicateSpeakerName:
		return fmt.Sprintf("speakers %s share the name %q", strings.Join(w.Codes, ", "), w.Value)
	}
	return fmt.Sprintf("%s %q: %s", w.Kind, w.Value, strings.Join(w.Codes, ", "))
}

// DuplicateCollisionError is returned when duplicates are found and the
// duplicate policy is FAIL.
type DuplicateCollisionError struct {
	Collisions []DuplicateWarning
}

// Error implements the error interface.
func (e *DuplicateCollisionError) Error() string {
	parts := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("%d duplicate collision(s): %s", len(e.Collisions), strings.Join(parts, "; "))
}

// Warning kinds surfaced alongside a successful result.
const (
	WarningDanglingReference = "dangling_reference"
	WarningDuplicate         = "duplicate"
)

// Warning is a recoverable problem recorded during a run.
type Warning struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Codes   []string `json:"codes,omitempty"`
}

// ErrorKind maps pipeline errors to a stable label used in logs, the run
// history and exit codes.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var malformed *MalformedRecordError
	if errors.As(err, &malformed) {
		return "malformed_record"
	}
	var dangling *DanglingReferenceError
	if errors.As(err, &dangling) {
		return "dangling_reference"
	}
	var duplicate *DuplicateCollisionError
	if errors.As(err, &duplicate) {
		return "duplicate_collision"
	}

	return "unexpected"
}
