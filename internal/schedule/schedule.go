// Package schedule derives the day-indexed public schedule from the enriched
// session set. It only reads sessions and speakers.
package schedule

import (
	"sort"
	"time"

	"github.com/europython/programapi/internal/model"
)

// DateLayout is the layout of day keys in schedule.json.
const DateLayout = "2006-01-02"

// Build groups sessions and breaks by the calendar date of their start time.
// Sessions without a start time are left out. A session held in several
// rooms is emitted once with all of its rooms.
func Build(sessions map[string]*model.Session, speakers map[string]*model.Speaker, breaks []model.Break) model.Schedule {
	var events []model.Event

	for _, s := range sessions {
		if s.Start == nil {
			continue
		}
		events = append(events, sessionEvent(s, speakers))
	}
	events = append(events, mergeBreaks(breaks)...)

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Title < b.Title
	})

	days := make(map[string]model.Day)
	roomSets := make(map[string]map[string]bool)
	for _, e := range events {
		key := e.Start.Format(DateLayout)
		day := days[key]
		day.Events = append(day.Events, e)
		days[key] = day

		if roomSets[key] == nil {
			roomSets[key] = make(map[string]bool)
		}
		for _, r := range e.Rooms {
			roomSets[key][r] = true
		}
	}
	for key, day := range days {
		day.Rooms = make([]string, 0, len(roomSets[key]))
		for r := range roomSets[key] {
			day.Rooms = append(day.Rooms, r)
		}
		sort.Strings(day.Rooms)
		days[key] = day
	}

	return model.Schedule{Days: days}
}

func sessionEvent(s *model.Session, speakers map[string]*model.Speaker) model.Event {
	e := model.Event{
		EventType:   model.EventTypeSession,
		Code:        s.Code,
		Slug:        s.Slug,
		Title:       s.Title,
		SessionType: s.SessionType,
		Tweet:       s.Tweet,
		Level:       s.Level,
		Rooms:       append([]string{}, s.Rooms...),
		Start:       *s.Start,
		Duration:    s.Duration,
		WebsiteURL:  s.WebsiteURL,
	}
	for _, code := range s.Speakers {
		sp, ok := speakers[code]
		if !ok {
			continue
		}
		e.Speakers = append(e.Speakers, model.ScheduleSpeaker{
			Code:       sp.Code,
			Name:       sp.Name,
			Slug:       sp.Slug,
			Avatar:     sp.Avatar,
			WebsiteURL: sp.WebsiteURL,
		})
	}
	return e
}

type breakKey struct {
	start time.Time
	end   time.Time
	title string
}

// mergeBreaks folds breaks sharing start, end and title into one event
// listing every room. The first break of a group provides the start time,
// keeping its location so the day bucket matches the sessions around it.
func mergeBreaks(breaks []model.Break) []model.Event {
	var order []breakKey
	first := make(map[breakKey]model.Break)
	rooms := make(map[breakKey][]string)
	for _, b := range breaks {
		key := breakKey{start: b.Start.UTC(), end: b.End.UTC(), title: b.Title}
		if _, ok := first[key]; !ok {
			order = append(order, key)
			first[key] = b
		}
		rooms[key] = appendUnique(rooms[key], b.Room)
	}

	events := make([]model.Event, 0, len(order))
	for _, key := range order {
		b := first[key]
		rs := rooms[key]
		sort.Strings(rs)
		events = append(events, model.Event{
			EventType: model.EventTypeBreak,
			Title:     key.title,
			Rooms:     rs,
			Start:     b.Start,
			Duration:  int(b.End.Sub(b.Start) / time.Minute),
		})
	}
	return events
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
