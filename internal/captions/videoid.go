package captions

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	pathIDPattern = regexp.MustCompile(`^/(?:embed|v|shorts|live)/([A-Za-z0-9_-]{11})(?:/|$)`)
)

// ParseVideoID extracts the 11-character YouTube id from a watch, short,
// embed, shorts, or live URL, or accepts a bare id.
func ParseVideoID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if bareIDPattern.MatchString(ref) {
		return ref, true
	}
	candidate := ref
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if bareIDPattern.MatchString(id) {
			return id, true
		}
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if id := u.Query().Get("v"); bareIDPattern.MatchString(id) {
			return id, true
		}
		if m := pathIDPattern.FindStringSubmatch(u.Path); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// ResolveURL turns a reference into something a caption source can open:
// recognised ids become watch URLs, anything else is passed through.
func ResolveURL(ref string) string {
	if id, ok := ParseVideoID(ref); ok {
		return WatchURL(id)
	}
	return strings.TrimSpace(ref)
}
