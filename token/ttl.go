package token

import (
	"strconv"
	"strings"
	"time"
)

// DefaultRefreshTTL is the fallback lifetime applied when a TTL string does
// not parse. Falling back long rather than failing keeps a misconfigured
// deployment usable; hosts that prefer a hard error can check the second
// return value of [ParseTTL] at configuration load.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// ParseTTL parses the compact duration grammar used in configuration:
// an integer followed by one of the units s, m, h, or d ("30s", "15m",
// "12h", "7d"). The second return value is false when the input did not
// parse and the conservative default was applied.
func ParseTTL(s string) (time.Duration, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) < 2 {
		return DefaultRefreshTTL, false
	}

	unit := s[len(s)-1]
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || n <= 0 {
		return DefaultRefreshTTL, false
	}

	switch unit {
	case 's':
		return time.Duration(n) * time.Second, true
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	default:
		return DefaultRefreshTTL, false
	}
}
