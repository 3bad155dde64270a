package utils

import (
	"strconv"
	"strings"
	"time"
)

// SplitList splits a comma or space separated list, dropping empty entries.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// UnixMillis formats t as a stringified integer of milliseconds since epoch.
func UnixMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseUnixMillis is the inverse of UnixMillis.
func ParseUnixMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
