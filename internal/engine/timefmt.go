package engine

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// FormatTime renders seconds as h:mm:ss when there is at least one hour,
// otherwise m:ss. Fractions are truncated; negative values clamp to zero.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var errEmptyTime = errors.New("empty timestamp")

// ParseTime converts m:ss, h:mm:ss or a bare number of seconds back into
// seconds. It is the inverse of FormatTime.
func ParseTime(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyTime
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("timestamp %q: too many fields", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("timestamp %q: invalid field %q", s, p)
		}
		// Only the leading field may exceed 59.
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("timestamp %q: field %q out of range", s, p)
		}
		nums[i] = n
	}
	switch len(nums) {
	case 1:
		return nums[0], nil
	case 2:
		return nums[0]*60 + nums[1], nil
	default:
		return nums[0]*3600 + nums[1]*60 + nums[2], nil
	}
}

// WatchURL returns the canonical watch page for id.
func WatchURL(id VideoID) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(string(id))
}

// DeepLink builds a playback URL starting at the formatted timestamp ts.
func DeepLink(id VideoID, ts string) (string, error) {
	secs, err := ParseTime(ts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s&t=%ds", WatchURL(id), secs), nil
}
