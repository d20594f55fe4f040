package normalize

import (
	"reflect"
	"testing"
	"time"

	"github.com/europython/programapi/internal/model"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"Café crème", "cafe-creme"},
		{"  Python: 3.13 & beyond!  ", "python-3-13-beyond"},
		{"Ünïcödé", "unicode"},
		{"---", ""},
		{"日本語", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueSlugs(t *testing.T) {
	got := uniqueSlugs([]string{"talk", "talk", "talk-1", "talk", "other"})
	want := []string{"talk", "talk-1", "talk-1-1", "talk-2", "other"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("uniqueSlugs = %v, want %v", got, want)
	}
}

func at(hour int) *time.Time {
	t := time.Date(2025, 7, 14, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestAssignSessionSlugsOrder(t *testing.T) {
	unscheduled := &model.Session{Code: "AAA", Slug: "intro"}
	late := &model.Session{Code: "BBB", Slug: "intro", Start: at(11)}
	early := &model.Session{Code: "CCC", Slug: "intro", Start: at(9)}

	AssignSessionSlugs([]*model.Session{unscheduled, late, early}, "https://ep.example/")

	if early.Slug != "intro" || late.Slug != "intro-1" || unscheduled.Slug != "intro-2" {
		t.Errorf("slugs = %s, %s, %s", early.Slug, late.Slug, unscheduled.Slug)
	}
	if late.WebsiteURL != "https://ep.example/session/intro-1" {
		t.Errorf("WebsiteURL = %q", late.WebsiteURL)
	}
}

func TestAssignSpeakerSlugs(t *testing.T) {
	b := &model.Speaker{Code: "B", Slug: "ada"}
	a := &model.Speaker{Code: "A", Slug: "ada"}

	AssignSpeakerSlugs([]*model.Speaker{b, a}, "")

	if a.Slug != "ada" || b.Slug != "ada-1" {
		t.Errorf("slugs = %s, %s", a.Slug, b.Slug)
	}
	if a.WebsiteURL != "" {
		t.Errorf("WebsiteURL without site = %q", a.WebsiteURL)
	}
}
