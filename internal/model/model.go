// Package model defines the public entities produced by the transform
// pipeline: sessions, speakers and the day-indexed schedule.
package model

import (
	"strings"
	"time"
)

// Resource is an extra link attached to a session (slides, repository, ...).
type Resource struct {
	Resource    string `json:"resource"`
	Description string `json:"description"`
}

// Session is a published conference session as written to sessions.json.
type Session struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Speakers    []string   `json:"speakers"`
	SessionType string     `json:"session_type"`
	Slug        string     `json:"slug"`
	Track       *string    `json:"track"`
	State       string     `json:"state"`
	Abstract    string     `json:"abstract"`
	Tweet       string     `json:"tweet"`
	Duration    int        `json:"duration"`
	Level       string     `json:"level"`
	Delivery    string     `json:"delivery"`
	Resources   []Resource `json:"resources"`
	Room        *string    `json:"room"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	WebsiteURL  string     `json:"website_url"`

	// Rooms lists every room the session occupies. Room is Rooms[0].
	Rooms []string `json:"-"`

	SessionsInParallel []string `json:"sessions_in_parallel"`
	SessionsAfter      []string `json:"sessions_after"`
	SessionsBefore     []string `json:"sessions_before"`
	NextSession        *string  `json:"next_session"`
	PrevSession        *string  `json:"prev_session"`
}

// Timed reports whether both start and end are known.
func (s *Session) Timed() bool {
	return s.Start != nil && s.End != nil
}

// HasRoom reports whether the session takes place in room.
func (s *Session) HasRoom(room string) bool {
	for _, r := range s.Rooms {
		if r == room {
			return true
		}
	}
	return false
}

// IsAnnouncement reports whether the session type is announcement-like.
// Such sessions are allowed to have no speakers.
func IsAnnouncement(sessionType string) bool {
	t := strings.ToLower(sessionType)
	return strings.Contains(t, "announcement")
}

// Speaker is a published speaker as written to speakers.json.
type Speaker struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Biography   *string  `json:"biography"`
	Avatar      *string  `json:"avatar"`
	Slug        string   `json:"slug"`
	Submissions []string `json:"submissions"`
	Affiliation *string  `json:"affiliation"`
	Homepage    *string  `json:"homepage"`
	TwitterURL  *string  `json:"twitter_url"`
	MastodonURL *string  `json:"mastodon_url"`
	LinkedInURL *string  `json:"linkedin_url"`
	GitX        *string  `json:"gitx"`
	WebsiteURL  string   `json:"website_url"`
}

// EventType distinguishes sessions from breaks in the schedule.
type EventType string

const (
	EventTypeSession EventType = "session"
	EventTypeBreak   EventType = "break"
)

// ScheduleSpeaker is the speaker display data embedded in schedule events.
type ScheduleSpeaker struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	Avatar     *string `json:"avatar"`
	WebsiteURL string  `json:"website_url"`
}

// Event is a single entry of a schedule day.
type Event struct {
	EventType   EventType         `json:"event_type"`
	Code        string            `json:"code,omitempty"`
	Slug        string            `json:"slug,omitempty"`
	Title       string            `json:"title"`
	SessionType string            `json:"session_type,omitempty"`
	Speakers    []ScheduleSpeaker `json:"speakers,omitempty"`
	Tweet       string            `json:"tweet,omitempty"`
	Level       string            `json:"level,omitempty"`
	Rooms       []string          `json:"rooms"`
	Start       time.Time         `json:"start"`
	Duration    int               `json:"duration"`
	WebsiteURL  string            `json:"website_url,omitempty"`
}

// Day holds the events of one calendar date, ordered by start time.
type Day struct {
	Rooms  []string `json:"rooms"`
	Events []Event  `json:"events"`
}

// Schedule is the document written to schedule.json.
type Schedule struct {
	Days map[string]Day `json:"days"`
}

// Break is a normalized schedule break (lunch, coffee, ...) in a single room.
type Break struct {
	Title string
	Room  string
	Start time.Time
	End   time.Time
}
