// Package transform maps source API nodes onto destination records.
// Mapping is pure: no I/O, and the same node with the same identity
// always produces the same record.
package transform

import (
	"strconv"
	"strings"
)

// Mapper binds the per-run identity stamped onto every produced record.
type Mapper struct {
	AccountID       string
	SyncJobID       string
	EngagementScore int
}

// NumericID extracts the platform-local id from a GID: the segment
// after the last slash, with any query parameters stripped.
// "gid://shopify/Customer/632910392" yields "632910392".
func NumericID(gid string) string {
	s := gid
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// ParseMoney parses a decimal amount string, defaulting to 0 when the
// value is empty or malformed.
func ParseMoney(amount string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return 0
	}
	return v
}
