// social.go turns free-text social profile answers into canonical URLs.
package normalize

import "strings"

// firstToken returns the first whitespace separated word of s.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func hasScheme(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// forceHTTPS replaces any http(s) scheme with https and drops the query.
func forceHTTPS(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return stripQuery("https://" + s)
}

func stripQuery(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i]
	}
	return s
}

// TwitterURL accepts "@handle", "handle" or a profile URL.
func TwitterURL(text string) string {
	switch {
	case text == "":
		return ""
	case strings.HasPrefix(text, "@"):
		return stripQuery("https://x.com/" + text[1:])
	case !hasScheme(text) && !strings.HasPrefix(text, "www."):
		return stripQuery("https://x.com/" + text)
	}
	return forceHTTPS(text)
}

// MastodonURL accepts "@user@instance" or a profile URL.
func MastodonURL(text string) string {
	if text == "" {
		return ""
	}
	if !hasScheme(text) && strings.Count(text, "@") == 2 {
		parts := strings.Split(text, "@")
		return stripQuery("https://" + parts[2] + "/@" + parts[1])
	}
	return forceHTTPS(text)
}

// LinkedInURL accepts "in/name", "name" or a profile URL.
func LinkedInURL(text string) string {
	switch {
	case text == "":
		return ""
	case strings.HasPrefix(text, "in/"):
		return stripQuery("https://linkedin.com/" + text)
	case !hasScheme(text) && !strings.HasPrefix(text, "www."):
		return stripQuery("https://linkedin.com/in/" + text)
	}
	return forceHTTPS(text)
}
