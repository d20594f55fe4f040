// slug.go builds URL slugs and makes them unique across a collection.
package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/europython/programapi/internal/model"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts s into a lower-case, hyphen separated ASCII slug.
// Accented letters are folded to their base letter ("Café" becomes "cafe");
// any other non-alphanumeric character becomes a separator.
func Slugify(s string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonSlugChars.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}

// uniqueSlugs returns slugs in the same order as the input with duplicates
// suffixed by -1, -2, ... The first occurrence keeps the bare slug.
func uniqueSlugs(slugs []string) []string {
	out := make([]string, len(slugs))
	used := make(map[string]bool, len(slugs))
	counts := make(map[string]int)

	for i, slug := range slugs {
		if !used[slug] {
			used[slug] = true
			out[i] = slug
			continue
		}
		candidate := slug
		for used[candidate] {
			counts[slug]++
			candidate = slug + "-" + strconv.Itoa(counts[slug])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// AssignSessionSlugs makes session slugs unique and derives website URLs.
// Sessions are ordered by start time (unscheduled last), then code, so the
// suffixes do not depend on input order.
func AssignSessionSlugs(sessions []*model.Session, siteURL string) {
	ordered := append([]*model.Session(nil), sessions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.Start == nil && b.Start != nil:
			return false
		case a.Start != nil && b.Start == nil:
			return true
		case a.Start != nil && b.Start != nil && !a.Start.Equal(*b.Start):
			return a.Start.Before(*b.Start)
		}
		return a.Code < b.Code
	})

	slugs := make([]string, len(ordered))
	for i, s := range ordered {
		slugs[i] = s.Slug
	}
	for i, slug := range uniqueSlugs(slugs) {
		ordered[i].Slug = slug
		ordered[i].WebsiteURL = pageURL(siteURL, "session", slug)
	}
}

// AssignSpeakerSlugs makes speaker slugs unique, in code order, and derives
// website URLs.
func AssignSpeakerSlugs(speakers []*model.Speaker, siteURL string) {
	ordered := append([]*model.Speaker(nil), speakers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Code < ordered[j].Code
	})

	slugs := make([]string, len(ordered))
	for i, s := range ordered {
		slugs[i] = s.Slug
	}
	for i, slug := range uniqueSlugs(slugs) {
		ordered[i].Slug = slug
		ordered[i].WebsiteURL = pageURL(siteURL, "speaker", slug)
	}
}

func pageURL(siteURL, kind, slug string) string {
	if siteURL == "" {
		return ""
	}
	return strings.TrimRight(siteURL, "/") + "/" + kind + "/" + slug
}
