package engine

import (
	"net/url"
	"regexp"
	"strings"
)

// videoMarkerRE finds the id segment after the last recognised marker.
// The greedy prefix makes the last marker in the string win.
var videoMarkerRE = regexp.MustCompile(`^.*(youtu\.be/|v/|e/|u/\w+/|embed/|v=)([^#&?]*).*`)

var videoTokenRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// youtubeHosts are the registrable domains accepted when the input has a host.
var youtubeHosts = []string{"youtube.com", "youtube-nocookie.com"}

// ExtractVideoID pulls the 11-char video id out of a YouTube URL.
// ok is false when the input cannot be resolved to an id.
func ExtractVideoID(raw string) (id VideoID, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !allowedHost(raw) {
		return "", false
	}
	m := videoMarkerRE.FindStringSubmatch(raw)
	if len(m) < 3 || !videoTokenRE.MatchString(m[2]) {
		return "", false
	}
	return VideoID(m[2]), true
}

// allowedHost rejects inputs whose host is not a YouTube domain.
// Inputs without a scheme are parsed as https URLs.
func allowedHost(raw string) bool {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if host == "youtu.be" {
		return true
	}
	for _, h := range youtubeHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ParseVideoID accepts either a bare 11-char id or a YouTube URL.
func ParseVideoID(s string) (VideoID, bool) {
	s = strings.TrimSpace(s)
	if videoTokenRE.MatchString(s) {
		return VideoID(s), true
	}
	return ExtractVideoID(s)
}
