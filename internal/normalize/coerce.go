// coerce.go converts loosely-typed raw values into typed fields.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Known enumeration values. Unknown values are passed through unchanged so
// that new states or levels added upstream do not break the pipeline.
var (
	knownStates = map[string]bool{
		"submitted": true,
		"accepted":  true,
		"confirmed": true,
		"rejected":  true,
		"withdrawn": true,
		"canceled":  true,
		"draft":     true,
	}
	knownLevels = map[string]bool{
		"beginner":     true,
		"intermediate": true,
		"advanced":     true,
	}
)

const (
	DeliveryInPerson = "in-person"
	DeliveryRemote   = "remote"
)

// ParseState lower-cases a recognised submission state. Unrecognised values
// come back trimmed but otherwise untouched, so they never match a filter.
func ParseState(s string) string {
	return parseEnum(s, knownStates)
}

// ParseLevel lower-cases a recognised audience expertise level.
func ParseLevel(s string) string {
	return parseEnum(s, knownLevels)
}

// ParseDelivery maps a free-text delivery answer to in-person or remote.
func ParseDelivery(s string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "in-person"), strings.Contains(lower, "in person"):
		return DeliveryInPerson
	case strings.Contains(lower, "remote"), strings.Contains(lower, "online"):
		return DeliveryRemote
	}
	return trimmed
}

func parseEnum(s string, known map[string]bool) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	if known[lower] {
		return lower
	}
	return trimmed
}

var (
	durationPattern = regexp.MustCompile(`^(?:(\d+)\s*(?:h|hr|hrs|hour|hours))?\s*(?:(\d+)\s*(?:m|min|mins|minute|minutes)?)?$`)
	clockPattern    = regexp.MustCompile(`^(\d+):([0-5]\d)$`)
)

// MaxDuration caps parsed durations at one week, in minutes. Larger values
// are treated as unusable input.
const MaxDuration = 7 * 24 * 60

// ParseDuration parses a duration in minutes from values such as "45",
// 45.0, "45 min", "1h 30m" or "1:30". ok is false when nothing usable is
// found, or when the value is negative or above MaxDuration.
func ParseDuration(s string) (minutes int, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		return boundDuration(0, n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 || f > MaxDuration || math.IsNaN(f) {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		return hoursAndMinutes(m[1], m[2])
	}
	if m := durationPattern.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		return hoursAndMinutes(m[1], m[2])
	}
	return 0, false
}

// hoursAndMinutes adds two optional digit strings as hours and minutes.
func hoursAndMinutes(hours, mins string) (int, bool) {
	h, m := 0, 0
	var err error
	if hours != "" {
		if h, err = strconv.Atoi(hours); err != nil {
			return 0, false
		}
	}
	if mins != "" {
		if m, err = strconv.Atoi(mins); err != nil {
			return 0, false
		}
	}
	return boundDuration(h, m)
}

// boundDuration returns h*60+m when it lies within [0, MaxDuration]. The
// range checks run before the arithmetic so it cannot overflow.
func boundDuration(h, m int) (int, bool) {
	if h < 0 || m < 0 || h > MaxDuration/60 || m > MaxDuration {
		return 0, false
	}
	total := h*60 + m
	if total > MaxDuration {
		return 0, false
	}
	return total, true
}

var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z0700",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// ParseTime parses an ISO 8601 timestamp. Timestamps with an offset are
// converted to loc when loc is non-nil. Timestamps without an offset are only
// accepted when loc is non-nil and are interpreted in it. Anything else
// yields nil.
func ParseTime(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if loc != nil {
				t = t.In(loc)
			}
			return &t
		}
	}
	if loc == nil {
		return nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}
